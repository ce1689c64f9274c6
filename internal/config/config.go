// Package config provides configuration management for srcmerge using Viper
// for layered loading from files, environment variables, and command-line
// flags.
//
// Values are read from .srcmerge.yml (or the file named by --config /
// SRCMERGE_CONFIG_FILE), overridden by SRCMERGE_<SECTION>_<OPTION>
// environment variables and finally by flags bound in the cmd package.
// Load applies defaults and validates the result with go-playground/validator.
package config

import (
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
)

// Run modes.
const (
	ModeWatch = "watch"
	ModeOnce  = "once"
)

// Import orderings accepted by output.import_order.
const (
	ImportOrderFirstSeen = "first-seen"
	ImportOrderSorted    = "sorted"
)

// Rewrite modes accepted by language.rewrite_mode.
const (
	RewriteNaive     = "naive"
	RewriteTokenized = "tokenized"
)

// Config is the fully resolved configuration of one srcmerge run.
type Config struct {
	Sources  SourcesConfig  `mapstructure:"sources" yaml:"sources"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
	Language LanguageConfig `mapstructure:"language" yaml:"language"`
	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Metrics  MetricsConfig  `mapstructure:"metrics" yaml:"metrics"`
}

// SourcesConfig names the watch roots.
type SourcesConfig struct {
	Roots   []string `mapstructure:"roots" yaml:"roots" validate:"required,min=1,dive,required"`
	Exclude []string `mapstructure:"exclude" yaml:"exclude"`
}

// OutputConfig controls the merged artifact.
type OutputConfig struct {
	Path        string `mapstructure:"path" yaml:"path" validate:"required"`
	Mode        string `mapstructure:"mode" yaml:"mode" validate:"oneof=watch once"`
	ImportOrder string `mapstructure:"import_order" yaml:"import_order" validate:"oneof=first-seen sorted"`
}

// LanguageConfig selects the language profile and rewrite strategy.
type LanguageConfig struct {
	Profile     string `mapstructure:"profile" yaml:"profile" validate:"required"`
	RewriteMode string `mapstructure:"rewrite_mode" yaml:"rewrite_mode" validate:"oneof=naive tokenized"`
}

// ScanConfig tunes the initial scan.
type ScanConfig struct {
	Workers   int `mapstructure:"workers" yaml:"workers" validate:"gte=1,lte=64"`
	CacheSize int `mapstructure:"cache_size" yaml:"cache_size" validate:"gte=0"`
}

// LogConfig controls logging output.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `mapstructure:"format" yaml:"format" validate:"oneof=text json pretty"`
}

// MetricsConfig controls the optional Prometheus textfile export.
type MetricsConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Sources: SourcesConfig{
			Exclude: []string{".git", "node_modules"},
		},
		Output: OutputConfig{
			Mode:        ModeWatch,
			ImportOrder: ImportOrderFirstSeen,
		},
		Language: LanguageConfig{
			Profile:     "java",
			RewriteMode: RewriteNaive,
		},
		Scan: ScanConfig{
			Workers:   defaultWorkers(),
			CacheSize: 1024,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every default with v so that IsSet/Get behave
// consistently for keys that never appear in a file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	// Keys without a meaningful default are still registered so that
	// AutomaticEnv can supply them during Unmarshal.
	v.SetDefault("sources.roots", []string{})
	v.SetDefault("output.path", "")
	v.SetDefault("metrics.file", "")
	v.SetDefault("sources.exclude", d.Sources.Exclude)
	v.SetDefault("output.mode", d.Output.Mode)
	v.SetDefault("output.import_order", d.Output.ImportOrder)
	v.SetDefault("language.profile", d.Language.Profile)
	v.SetDefault("language.rewrite_mode", d.Language.RewriteMode)
	v.SetDefault("scan.workers", d.Scan.Workers)
	v.SetDefault("scan.cache_size", d.Scan.CacheSize)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load reads the global viper instance into a validated Config.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads v into a validated Config.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, mergeerrors.WrapConfig(err, mergeerrors.ErrCodeInvalidConfig, "cannot decode configuration")
	}

	// Roots given as one "a|b|c" string (env var or original CLI syntax).
	cfg.Sources.Roots = SplitRoots(cfg.Sources.Roots)

	if cfg.Output.Path != "" {
		cfg.Output.Path = filepath.Clean(cfg.Output.Path)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return mergeerrors.WrapConfig(err, mergeerrors.ErrCodeInvalidConfig, "config validation failed")
	}
	return nil
}

// SplitRoots expands "|"-separated entries and drops blanks.
func SplitRoots(roots []string) []string {
	var out []string
	for _, r := range roots {
		for _, part := range strings.Split(r, "|") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func defaultWorkers() int {
	n := runtime.NumCPU()
	if n > 8 {
		n = 8
	}
	if n < 1 {
		n = 1
	}
	return n
}
