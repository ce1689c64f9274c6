package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/srcmerge/internal/config"
	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
)

const configFileName = ".srcmerge.yml"

var (
	initForce  bool
	initRoots  []string
	initOutput string
)

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Write a default .srcmerge.yml configuration file",
	Long: `Write a .srcmerge.yml configuration file holding every option with its
default value. If no directory is given the file is created in the current
directory. An existing file is left alone unless --force is given.

Examples:
  srcmerge init
  srcmerge init --root src/main/java --output build/Main.java
  srcmerge init project --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing configuration file")
	initCmd.Flags().StringSliceVar(&initRoots, "root", nil, "Source root to record (repeatable)")
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "", "Merged output path to record")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	path, err := writeConfigFile(dir, initRoots, initOutput, initForce)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
	return nil
}

// writeConfigFile renders the default configuration with roots and output
// filled in and writes it to dir/.srcmerge.yml.
func writeConfigFile(dir string, roots []string, output string, force bool) (string, error) {
	path := filepath.Join(dir, configFileName)

	if _, err := os.Stat(path); err == nil && !force {
		return "", mergeerrors.NewConfigError(mergeerrors.ErrCodeInvalidArguments,
			path+" already exists, use --force to overwrite")
	}

	cfg := config.Default()
	cfg.Sources.Roots = config.SplitRoots(roots)
	if cfg.Sources.Roots == nil {
		cfg.Sources.Roots = []string{}
	}
	cfg.Output.Path = output

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", mergeerrors.WrapConfig(err, mergeerrors.ErrCodeInvalidConfig, "cannot encode configuration")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputWrite, dir)
	}

	header := []byte("# srcmerge configuration\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return "", mergeerrors.WrapWrite(err, mergeerrors.ErrCodeOutputWrite, path)
	}

	return path, nil
}
