package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
	"github.com/conneroisu/srcmerge/internal/version"
)

var (
	versionFormat string
	versionShort  bool
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long: `Display the srcmerge version, commit, build time, Go version and platform.

Examples:
  srcmerge version               # Show version
  srcmerge version --short       # Version string only
  srcmerge version --format json # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runVersionCommand,
}

func init() {
	rootCmd.AddCommand(versionCmd)

	versionCmd.Flags().StringVarP(&versionFormat, "format", "f", "text", "Output format (text, json)")
	versionCmd.Flags().BoolVar(&versionShort, "short", false, "Show short version only")
}

func runVersionCommand(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	switch versionFormat {
	case "json":
		return writeVersionJSON(out)
	case "text":
		if versionShort {
			_, err := fmt.Fprintln(out, version.GetShortVersion())
			return err
		}
		return writeVersionText(out)
	default:
		return mergeerrors.NewConfigError(mergeerrors.ErrCodeInvalidArguments,
			fmt.Sprintf("unsupported format: %s (supported: text, json)", versionFormat))
	}
}

func writeVersionText(out io.Writer) error {
	info := version.GetBuildInfo()

	fmt.Fprintf(out, "srcmerge %s", version.GetShortVersion())
	if info.Dirty {
		fmt.Fprint(out, " (dirty)")
	}
	fmt.Fprintln(out)

	if !info.BuildTime.IsZero() {
		fmt.Fprintf(out, "Built: %s\n", info.BuildTime.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
	_, err := fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	return err
}

func writeVersionJSON(out io.Writer) error {
	info := version.GetBuildInfo()

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(struct {
		*version.BuildInfo
		IsRelease bool `json:"is_release"`
	}{info, version.IsRelease()})
}
