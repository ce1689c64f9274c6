//go:build property
// +build property

package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/srcmerge/internal/language"
	"github.com/conneroisu/srcmerge/internal/logging"
	"github.com/conneroisu/srcmerge/internal/transform"
)

// TestScannerProperties tests invariant properties of the initial scan
func TestScannerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	// Property 1: the scan returns exactly the relevant files, once each
	properties.Property("scan finds every relevant file once", prop.ForAll(
		func(javaCount, otherCount, workers int) bool {
			root := t.TempDir()
			for i := 0; i < javaCount; i++ {
				dir := filepath.Join(root, fmt.Sprintf("pkg%d", i%3))
				if err := os.MkdirAll(dir, 0755); err != nil {
					return false
				}
				path := filepath.Join(dir, fmt.Sprintf("C%d.java", i))
				if err := os.WriteFile(path, []byte(fmt.Sprintf("public class C%d {}\n", i)), 0644); err != nil {
					return false
				}
			}
			for i := 0; i < otherCount; i++ {
				path := filepath.Join(root, fmt.Sprintf("note%d.txt", i))
				if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
					return false
				}
			}

			tr, err := transform.New(language.Java{}, transform.Options{})
			if err != nil {
				return false
			}
			s := New(tr, logging.Discard(), Options{Workers: workers})

			files, err := s.ScanRoots(context.Background(), []string{root, root})
			if err != nil || len(files) != javaCount {
				return false
			}
			for i := 1; i < len(files); i++ {
				if files[i-1].Path >= files[i].Path {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 5),
		gen.IntRange(1, 8),
	))

	// Property 2: scanning twice yields identical records
	properties.Property("scanner idempotency", prop.ForAll(
		func(body string) bool {
			root := t.TempDir()
			path := filepath.Join(root, "A.java")
			if err := os.WriteFile(path, []byte("import a.B;\n"+body+"\n"), 0644); err != nil {
				return false
			}

			tr, err := transform.New(language.Java{}, transform.Options{CacheSize: 4})
			if err != nil {
				return false
			}
			s := New(tr, logging.Discard(), Options{})

			first, err := s.ScanRoots(context.Background(), []string{root})
			if err != nil {
				return false
			}
			second, err := s.ScanRoots(context.Background(), []string{root})
			if err != nil || len(first) != 1 || len(second) != 1 {
				return false
			}
			return first[0].Content == second[0].Content &&
				first[0].Hash == second[0].Hash &&
				len(first[0].Imports) == len(second[0].Imports)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
