// Package cmd provides the command-line interface for srcmerge with layered
// configuration management.
//
// Configuration System:
//
//	Values are resolved with the following precedence:
//	1. Positional arguments and command-line flags - highest priority
//	2. Individual environment variables (SRCMERGE_OUTPUT_PATH, etc.)
//	3. Configuration file (--config, SRCMERGE_CONFIG_FILE or .srcmerge.yml)
//	4. Built-in defaults - lowest priority
//
// A .env file in the working directory is loaded into the environment
// before any of the above is read.
//
// Environment Variables:
//
//	SRCMERGE_CONFIG_FILE: Path to custom configuration file
//	SRCMERGE_SOURCES_ROOTS: "|"-separated watch roots
//	SRCMERGE_OUTPUT_PATH: Merged output file
//	SRCMERGE_LANGUAGE_PROFILE: Language profile name
//	And every other key following the SRCMERGE_<SECTION>_<OPTION> pattern
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/srcmerge/internal/config"
	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
	"github.com/conneroisu/srcmerge/internal/logging"
	"github.com/conneroisu/srcmerge/internal/services"
	"github.com/conneroisu/srcmerge/internal/version"
)

const usageLine = "srcmerge <roots> <output> [once|watch]"

var (
	cfgFile    string
	mergeFlags MergeFlags
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   usageLine,
	Short: "Merge a multi-file source tree into one compilation unit",
	Long: `srcmerge watches one or more source trees and keeps a single merged file
up to date. Package lines are dropped, imports are deduplicated and top-level
public qualifiers are removed so that every declaration fits in one unit.

<roots> is a "|"-separated list of directories. The optional third argument
selects the mode: "watch" (default) keeps running and regenerates the output
on every change, "once" merges a single time and exits.

Examples:
  srcmerge src/main/java build/Main.java
  srcmerge "game|engine" out/Bot.java once
  srcmerge --profile kotlin --root src --root lib out/Bot.kt
  srcmerge init                   Write a default .srcmerge.yml`,
	Args: validateArgs,
	RunE: runMerge,
}

// Execute runs the root command. Interrupt and SIGTERM cancel the command
// context, which stops the watch loop cleanly.
func Execute() error {
	return fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(version.GetShortVersion()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	)
}

// Exit statuses returned by ExitCode.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitStartup = 3
)

// ExitCode maps the error returned by Execute to a process exit status.
// Usage and configuration errors exit with 2, other fatal startup errors
// with 3 and everything else with 1.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case mergeerrors.IsType(err, mergeerrors.ErrorTypeConfig):
		return exitUsage
	case mergeerrors.IsFatal(err):
		return exitStartup
	default:
		return exitFailure
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .srcmerge.yml, can also use SRCMERGE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json, pretty)")
	addMergeFlags(rootCmd, &mergeFlags)

	if err := bindFlags(viper.GetViper(), rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	if err := bindFlags(viper.GetViper(), rootCmd.Flags()); err != nil {
		panic(err)
	}
}

// initConfig initializes the configuration system with support for multiple config sources.
//
// Configuration File Priority (highest to lowest):
//  1. --config flag: Explicitly specified config file path
//  2. SRCMERGE_CONFIG_FILE environment variable: Custom config file path
//  3. Default: .srcmerge.yml in current directory
//
// Missing files are not an error; defaults and environment still apply.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: cannot load .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("SRCMERGE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".srcmerge")
	}

	viper.SetEnvPrefix("SRCMERGE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// validateArgs accepts no positional arguments (everything from config),
// <roots> <output>, or <roots> <output> <mode>.
func validateArgs(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 0, 2:
		return nil
	case 3:
		if args[2] != config.ModeOnce && args[2] != config.ModeWatch {
			return usageError(fmt.Sprintf("unknown mode %q, expected once or watch", args[2]))
		}
		return nil
	default:
		return usageError(fmt.Sprintf("expected 2 or 3 arguments, got %d", len(args)))
	}
}

func usageError(msg string) error {
	return mergeerrors.NewConfigError(mergeerrors.ErrCodeInvalidArguments, msg+"\nusage: "+usageLine)
}

// applyArgs copies positional arguments into v, where they take precedence
// over every other source.
func applyArgs(v *viper.Viper, args []string, once bool) {
	if len(args) >= 2 {
		v.Set("sources.roots", config.SplitRoots([]string{args[0]}))
		v.Set("output.path", args[1])
	}
	if len(args) == 3 {
		v.Set("output.mode", args[2])
	} else if once {
		v.Set("output.mode", config.ModeOnce)
	}
}

func runMerge(cmd *cobra.Command, args []string) error {
	applyArgs(viper.GetViper(), args, mergeFlags.Once)

	if len(args) == 0 && len(viper.GetStringSlice("sources.roots")) == 0 {
		return usageError("no source roots given")
	}

	cfg, err := config.Load()
	if err != nil {
		return mergeerrors.WithSuggestions(err)
	}

	logger, err := newLogger(cfg, cmd)
	if err != nil {
		return err
	}

	svc, err := services.NewMergeService(cfg, logger)
	if err != nil {
		return mergeerrors.WithSuggestions(err)
	}

	return mergeerrors.WithSuggestions(svc.Run(cmd.Context(), cfg.Output.Mode))
}

func newLogger(cfg *config.Config, cmd *cobra.Command) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return nil, mergeerrors.WrapConfig(err, mergeerrors.ErrCodeInvalidConfig, "invalid log level")
	}

	return logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    cfg.Log.Format,
		Output:    cmd.ErrOrStderr(),
		Component: "srcmerge",
	}), nil
}
