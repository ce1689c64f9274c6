package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mergeerrors "github.com/conneroisu/srcmerge/internal/errors"
)

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(v *viper.Viper)
		expectError   bool
		expectedRoots []string
		check         func(t *testing.T, cfg *Config)
	}{
		{
			name: "defaults applied",
			setup: func(v *viper.Viper) {
				v.Set("sources.roots", []string{"./src"})
				v.Set("output.path", "out/Main.java")
			},
			expectedRoots: []string{"./src"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ModeWatch, cfg.Output.Mode)
				assert.Equal(t, ImportOrderFirstSeen, cfg.Output.ImportOrder)
				assert.Equal(t, "java", cfg.Language.Profile)
				assert.Equal(t, RewriteNaive, cfg.Language.RewriteMode)
				assert.Equal(t, []string{".git", "node_modules"}, cfg.Sources.Exclude)
				assert.GreaterOrEqual(t, cfg.Scan.Workers, 1)
				assert.Equal(t, filepath.Clean("out/Main.java"), cfg.Output.Path)
			},
		},
		{
			name: "pipe separated roots",
			setup: func(v *viper.Viper) {
				v.Set("sources.roots", "a|b| |c")
				v.Set("output.path", "Main.java")
			},
			expectedRoots: []string{"a", "b", "c"},
		},
		{
			name: "explicit values",
			setup: func(v *viper.Viper) {
				v.Set("sources.roots", []string{"x", "y"})
				v.Set("output.path", "Main.kt")
				v.Set("output.mode", "once")
				v.Set("output.import_order", "sorted")
				v.Set("language.profile", "kotlin")
				v.Set("language.rewrite_mode", "tokenized")
				v.Set("log.format", "json")
			},
			expectedRoots: []string{"x", "y"},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, ModeOnce, cfg.Output.Mode)
				assert.Equal(t, ImportOrderSorted, cfg.Output.ImportOrder)
				assert.Equal(t, "kotlin", cfg.Language.Profile)
				assert.Equal(t, RewriteTokenized, cfg.Language.RewriteMode)
				assert.Equal(t, "json", cfg.Log.Format)
			},
		},
		{
			name: "missing roots",
			setup: func(v *viper.Viper) {
				v.Set("output.path", "Main.java")
			},
			expectError: true,
		},
		{
			name: "missing output",
			setup: func(v *viper.Viper) {
				v.Set("sources.roots", []string{"src"})
			},
			expectError: true,
		},
		{
			name: "invalid mode",
			setup: func(v *viper.Viper) {
				v.Set("sources.roots", []string{"src"})
				v.Set("output.path", "Main.java")
				v.Set("output.mode", "forever")
			},
			expectError: true,
		},
		{
			name: "invalid import order",
			setup: func(v *viper.Viper) {
				v.Set("sources.roots", []string{"src"})
				v.Set("output.path", "Main.java")
				v.Set("output.import_order", "random")
			},
			expectError: true,
		},
		{
			name: "invalid worker count type",
			setup: func(v *viper.Viper) {
				v.Set("sources.roots", []string{"src"})
				v.Set("output.path", "Main.java")
				v.Set("scan.workers", "many")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			tt.setup(v)

			cfg, err := LoadFrom(v)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, cfg)
				assert.True(t, mergeerrors.IsFatal(err))
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)
			assert.Equal(t, tt.expectedRoots, cfg.Sources.Roots)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".srcmerge.yml")
	content := `sources:
  roots:
    - ./src/main/java
  exclude:
    - build
output:
  path: ./dist/Player.java
  import_order: sorted
language:
  profile: java
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadFrom(v)
	require.NoError(t, err)

	assert.Equal(t, []string{"./src/main/java"}, cfg.Sources.Roots)
	assert.Equal(t, []string{"build"}, cfg.Sources.Exclude)
	assert.Equal(t, filepath.Clean("./dist/Player.java"), cfg.Output.Path)
	assert.Equal(t, ImportOrderSorted, cfg.Output.ImportOrder)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadUsesGlobalViper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("sources.roots", []string{"src"})
	viper.Set("output.path", "Main.java")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"src"}, cfg.Sources.Roots)
}

func TestSplitRoots(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitRoots([]string{"a|b"}))
	assert.Equal(t, []string{"a", "b", "c"}, SplitRoots([]string{"a", " b | c "}))
	assert.Nil(t, SplitRoots([]string{"", "|"}))
}

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	cfg.Sources.Roots = []string{"src"}
	cfg.Output.Path = "Main.java"
	assert.NoError(t, Validate(cfg))

	cfg.Scan.Workers = 0
	assert.Error(t, Validate(cfg))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SRCMERGE_SOURCES_ROOTS", "src/a|src/b")
	t.Setenv("SRCMERGE_OUTPUT_PATH", "out/Main.java")
	t.Setenv("SRCMERGE_LANGUAGE_REWRITE_MODE", RewriteTokenized)

	v := viper.New()
	v.SetEnvPrefix("SRCMERGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg, err := LoadFrom(v)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a", "src/b"}, cfg.Sources.Roots)
	assert.Equal(t, filepath.Clean("out/Main.java"), cfg.Output.Path)
	assert.Equal(t, RewriteTokenized, cfg.Language.RewriteMode)
}
