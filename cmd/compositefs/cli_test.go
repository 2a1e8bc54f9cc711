package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTree writes a nested config with an overlay mount over a local base
func setupTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, d := range []string{"site", "base/docs", "delta"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, d), 0o755))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "site", "index.html"), []byte("<h1>home</h1>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base", "docs", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base", "docs", "b.txt"), []byte("beta"), 0o644))

	cfg := `protocol: nested
mounts:
  default:
    protocol: file
    relative_to_path: ` + filepath.Join(dir, "site") + `
  layered:
    protocol: transparent
    delta:
      protocol: file
      relative_to_path: ` + filepath.Join(dir, "delta") + `
    base:
      protocol: file
      relative_to_path: ` + filepath.Join(dir, "base") + `
`
	path := filepath.Join(dir, "fs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := newCLI(&out).Exec(args)
	return out.String(), err
}

func TestCLI(t *testing.T) {
	cfg := setupTree(t)

	t.Run("ls root shows mounts and default content", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "ls")
		require.NoError(t, err)
		assert.Equal(t, "layered/\nindex.html\n", out)
	})

	t.Run("cat through an overlay mount", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "cat", "layered/docs/a.txt")
		require.NoError(t, err)
		assert.Equal(t, "alpha", out)
	})

	t.Run("rm hides base content and status reports it", func(t *testing.T) {
		_, err := run(t, "--config", cfg, "rm", "layered/docs/b.txt")
		require.NoError(t, err)

		out, err := run(t, "--config", cfg, "walk", "layered")
		require.NoError(t, err)
		assert.Equal(t, "layered/docs/a.txt\n", out)

		out, err = run(t, "--config", cfg, "status")
		require.NoError(t, err)
		assert.Equal(t, "deleted layered/docs/b.txt\n", out)

		base := filepath.Join(filepath.Dir(cfg), "base", "docs", "b.txt")
		assert.FileExists(t, base)
	})

	t.Run("mkdir and cp across mounts", func(t *testing.T) {
		_, err := run(t, "--config", cfg, "mkdir", "-p", "copies")
		require.NoError(t, err)
		_, err = run(t, "--config", cfg, "cp", "layered/docs/a.txt", "copies/a.txt")
		require.NoError(t, err)

		data, err := os.ReadFile(filepath.Join(filepath.Dir(cfg), "site", "copies", "a.txt"))
		require.NoError(t, err)
		assert.Equal(t, "alpha", string(data))
	})

	t.Run("info prints yaml", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "info", "index.html")
		require.NoError(t, err)
		assert.Contains(t, out, "name: index.html")
		assert.Contains(t, out, "type: file")
	})

	t.Run("mounts", func(t *testing.T) {
		out, err := run(t, "--config", cfg, "mounts")
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "layered"))
		assert.True(t, strings.HasPrefix(lines[1], "default"))
	})

	t.Run("config from environment", func(t *testing.T) {
		t.Setenv(configEnv, cfg)
		out, err := run(t, "cat", "index.html")
		require.NoError(t, err)
		assert.Equal(t, "<h1>home</h1>", out)
	})
}

func TestCLIErrors(t *testing.T) {
	t.Setenv(configEnv, "")

	_, err := run(t, "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), configEnv)

	_, err = run(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "ls")
	require.ErrorIs(t, err, os.ErrNotExist)

	cfg := setupTree(t)
	_, err = run(t, "--config", cfg, "--log-level", "loud", "ls")
	require.Error(t, err)

	_, err = run(t, "--config", cfg, "cat", "nope.txt")
	require.ErrorIs(t, err, os.ErrNotExist)
}
