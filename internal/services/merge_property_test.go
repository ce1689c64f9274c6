//go:build property

package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/srcmerge/internal/logging"
	"github.com/conneroisu/srcmerge/internal/watcher"
)

type fsOp struct {
	Kind int
	File int
}

// TestRegistryConsistencyProperties replays random create/modify/delete
// sequences and compares the registry with the files left on disk.
func TestRegistryConsistencyProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(1234)
	parameters.MinSuccessfulTests = 60

	properties := gopter.NewProperties(parameters)

	opGen := gopter.CombineGens(gen.IntRange(0, 2), gen.IntRange(0, 4)).Map(func(v []interface{}) fsOp {
		return fsOp{Kind: v[0].(int), File: v[1].(int)}
	})

	properties.Property("registry matches the filesystem after any event sequence", prop.ForAll(
		func(ops []fsOp) bool {
			root, err := filepath.EvalSymlinks(t.TempDir())
			if err != nil {
				return false
			}
			output := filepath.Join(t.TempDir(), "Main.java")

			svc, err := NewMergeService(testConfig(output, root), logging.Discard(), WithEventSource(newFakeSource()))
			if err != nil || svc.resolvePaths() != nil {
				return false
			}
			ctx := context.Background()

			for i, op := range ops {
				name := fmt.Sprintf("C%d.java", op.File)
				path := filepath.Join(root, name)
				var ev watcher.Event

				switch op.Kind {
				case 0, 1:
					body := fmt.Sprintf("import shared.S%d;\npublic class C%d { int v = %d; }\n", op.File, op.File, i)
					_, statErr := os.Stat(path)
					if err := os.WriteFile(path, []byte(body), 0644); err != nil {
						return false
					}
					kind := watcher.EventModify
					if os.IsNotExist(statErr) {
						kind = watcher.EventCreate
					}
					ev = event(kind, path)
				default:
					if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
						return false
					}
					ev = event(watcher.EventDelete, path)
				}
				svc.handle(ctx, ev)
			}

			entries, err := os.ReadDir(root)
			if err != nil {
				return false
			}
			var onDisk []string
			for _, e := range entries {
				onDisk = append(onDisk, filepath.Join(root, e.Name()))
			}
			sort.Strings(onDisk)

			files := svc.Files()
			if len(files) != len(onDisk) {
				return false
			}
			for i, f := range files {
				data, err := os.ReadFile(onDisk[i])
				if err != nil || f.Path != onDisk[i] {
					return false
				}
				fresh, err := svc.transformer.Transform(onDisk[i])
				if err != nil || fresh.Content != f.Content || len(data) == 0 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(opGen),
	))

	properties.TestingRun(t)
}
