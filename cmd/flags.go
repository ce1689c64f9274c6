package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/conneroisu/srcmerge/internal/config"
	"github.com/conneroisu/srcmerge/internal/language"
)

// MergeFlags holds the flags of the root merge command
type MergeFlags struct {
	Roots       []string
	Exclude     []string
	Profile     string
	RewriteMode string
	ImportOrder string
	MetricsFile string
	Once        bool
}

// flagKeys maps flag names to the configuration keys they override. Flags
// without an entry, such as --once, are read from MergeFlags directly.
var flagKeys = map[string]string{
	"root":         "sources.roots",
	"exclude":      "sources.exclude",
	"profile":      "language.profile",
	"rewrite-mode": "language.rewrite_mode",
	"import-order": "output.import_order",
	"metrics-file": "metrics.file",
	"log-format":   "log.format",
	"log-level":    "log.level",
}

func addMergeFlags(cmd *cobra.Command, flags *MergeFlags) {
	d := config.Default()

	cmd.Flags().StringSliceVarP(&flags.Roots, "root", "r", nil, "Directory to watch (repeatable)")
	cmd.Flags().StringSliceVar(&flags.Exclude, "exclude", d.Sources.Exclude, "Directory name patterns to skip")
	cmd.Flags().StringVar(&flags.Profile, "profile", d.Language.Profile,
		fmt.Sprintf("Language profile (%s)", strings.Join(language.Names(), "|")))
	cmd.Flags().StringVar(&flags.RewriteMode, "rewrite-mode", d.Language.RewriteMode, "Visibility rewrite mode (naive|tokenized)")
	cmd.Flags().StringVar(&flags.ImportOrder, "import-order", d.Output.ImportOrder, "Import block order (first-seen|sorted)")
	cmd.Flags().StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus textfile metrics here")
	cmd.Flags().BoolVar(&flags.Once, "once", false, "Merge once and exit instead of watching")
}

// bindFlags binds every known flag of fs to its configuration key. Only
// flags the user actually set override file and environment values.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		key, ok := flagKeys[f.Name]
		if !ok || bindErr != nil {
			return
		}
		bindErr = v.BindPFlag(key, f)
	})
	return bindErr
}
