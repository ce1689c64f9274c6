package testutils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/conneroisu/srcmerge/internal/config"
	"github.com/conneroisu/srcmerge/internal/registry"
)

// CreateTempProject creates a temporary source tree. files maps slash
// separated relative paths to their contents; parent directories are
// created as needed.
func CreateTempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	tempDir := t.TempDir()

	for rel, content := range files {
		CreateSourceFile(t, tempDir, rel, content)
	}

	return tempDir
}

// CreateSourceFile writes content to dir/rel and returns the full path.
func CreateSourceFile(t *testing.T, dir, rel, content string) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// CreateTestConfig creates a once-mode configuration merging projectDir
// into output.
func CreateTestConfig(projectDir, output string) *config.Config {
	cfg := config.Default()
	cfg.Sources.Roots = []string{projectDir}
	cfg.Output.Path = output
	cfg.Output.Mode = config.ModeOnce
	cfg.Scan.Workers = 2
	return cfg
}

// CreateTestRegistry creates a registry with sample files
func CreateTestRegistry() *registry.FileRegistry {
	reg := registry.NewFileRegistry()

	files := []*registry.CodeFile{
		{
			Path:    "/test/game/Player.java",
			Package: "game",
			Imports: []string{"import java.util.List;"},
			Content: "class Player {\n}\n",
			Hash:    "playerhash",
			ModTime: time.Now(),
		},
		{
			Path:    "/test/game/Board.java",
			Package: "game",
			Imports: []string{"import java.util.List;", "import java.util.Map;"},
			Content: "final class Board {\n}\n",
			Hash:    "boardhash",
			ModTime: time.Now(),
		},
		{
			Path:    "/test/game/Move.java",
			Package: "game",
			Content: "record Move(int x, int y) {}\n",
			Hash:    "movehash",
			ModTime: time.Now(),
		},
	}

	for _, f := range files {
		reg.Put(f)
	}

	return reg
}

// StandardJavaSources provides source files for testing
var StandardJavaSources = map[string]string{
	"game/Player.java": `package game;

import java.util.List;

public class Player {
    private final List<String> items;

    public Player(List<String> items) {
        this.items = items;
    }
}
`,
	"game/Board.java": `package game;

import java.util.List;
import java.util.Map;

public final class Board {
    private Map<Integer, List<Player>> cells;
}
`,
	"game/Move.java": `package game;

public record Move(int x, int y) {}
`,
	"Main.java": `package game;

import java.util.List;

public class Main {
    public static void main(String[] args) {
        System.out.println("public class not a declaration");
    }
}
`,
}

// AssertFilePermissions checks that files have the expected permissions
func AssertFilePermissions(t *testing.T, path string, expectedMode os.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)

	actualMode := info.Mode()
	require.Equal(t, expectedMode, actualMode&os.FileMode(0777),
		"File %s has incorrect permissions: got %o, want %o",
		path, actualMode&os.FileMode(0777), expectedMode)
}

// WaitForFileChange waits for a file to be modified (useful for testing file watchers)
func WaitForFileChange(
	t *testing.T,
	filePath string,
	originalModTime time.Time,
	timeout time.Duration,
) {
	t.Helper()
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		info, err := os.Stat(filePath)
		if err == nil && info.ModTime().After(originalModTime) {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}

	t.Fatalf("File %s was not modified within %v", filePath, timeout)
}
