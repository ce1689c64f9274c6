//go:build property

package watcher

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/srcmerge/internal/logging"
)

// TestDirectoryWatcherProperties validates registration over random trees
func TestDirectoryWatcherProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(9876)
	parameters.MinSuccessfulTests = 30

	properties := gopter.NewProperties(parameters)

	segment := gen.OneConstOf("a", "b", "c", "skip", "src")
	relDir := gen.SliceOfN(3, segment).Map(func(parts []string) string {
		return filepath.Join(parts...)
	})

	// Property: every directory not below an excluded name is registered
	properties.Property("register tree watches exactly the reachable directories", prop.ForAll(
		func(rels []string) bool {
			root, err := filepath.EvalSymlinks(t.TempDir())
			if err != nil {
				return false
			}

			expected := map[string]struct{}{root: {}}
			for _, rel := range rels {
				if err := os.MkdirAll(filepath.Join(root, rel), 0755); err != nil {
					return false
				}
				parts := strings.Split(rel, string(filepath.Separator))
				for i := range parts {
					if parts[i] == "skip" {
						break
					}
					expected[filepath.Join(append([]string{root}, parts[:i+1]...)...)] = struct{}{}
				}
			}

			w, err := New(logging.Discard(), Options{Skip: ExcludeFilter([]string{"skip"})})
			if err != nil {
				return false
			}
			defer w.Close()

			if err := w.RegisterTree(root); err != nil {
				return false
			}

			want := make([]string, 0, len(expected))
			for d := range expected {
				want = append(want, d)
			}
			sort.Strings(want)

			got := w.Dirs()
			if len(got) != len(want) {
				return false
			}
			for i := range got {
				if got[i] != want[i] {
					return false
				}
			}
			return true
		},
		gen.SliceOf(relDir),
	))

	properties.TestingRun(t)
}
