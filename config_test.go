package compositefs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nestedYAML = `
protocol: nested
mounts:
  default:
    protocol: memory
  static:
    protocol: transparent
    transparent_fs: {protocol: memory}
    base: {protocol: file, relative_to_path: /srv/static}
    nested_permissions: {allow_delete: false}
  jail:
    protocol: dir
    target: {protocol: memory}
    path: /home/user
    options: {mode: strict}
`

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(nestedYAML))
	require.NoError(t, err)

	assert.Equal(t, "nested", cfg.Protocol)
	assert.Equal(t, []string{"default", "jail", "static"}, cfg.mountKeys())

	static := cfg.Mounts["static"]
	require.NotNil(t, static.Delta, "transparent_fs should populate delta")
	assert.Equal(t, "memory", static.Delta.Protocol)
	require.NotNil(t, static.Base)
	assert.Equal(t, "/srv/static", static.Base.RelativeToPath)
	require.NotNil(t, static.Permissions)
	assert.Equal(t, Permissions{AllowWrite: true, AllowOverwrite: true, AllowDelete: false}, *static.Permissions)

	jail := cfg.Mounts["jail"]
	assert.Equal(t, "/home/user", jail.Path)
	assert.Equal(t, map[string]string{"mode": "strict"}, jail.Options)
	assert.Nil(t, cfg.Mounts["default"].Permissions)
}

func TestParseConfigDeltaWins(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
protocol: transparent
delta: {protocol: memory}
transparent_fs: {protocol: file}
base: {protocol: memory}
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Delta)
	assert.Equal(t, "memory", cfg.Delta.Protocol)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := ParseConfig([]byte("protocol: [unterminated"))
	assert.ErrorContains(t, err, "parsing filesystem config")

	_, err = ParseConfig([]byte("mounts: {default: {nested_permissions: {allow_write: maybe}}}"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fs.yaml")
	require.NoError(t, os.WriteFile(path, []byte(nestedYAML), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Len(t, cfg.Mounts, 3)

	_, err = LoadConfig(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorContains(t, err, "missing.yaml")
}

func TestConfigFingerprint(t *testing.T) {
	a, err := ParseConfig([]byte(nestedYAML))
	require.NoError(t, err)
	b, err := ParseConfig([]byte(nestedYAML))
	require.NoError(t, err)

	fa, err := a.Fingerprint()
	require.NoError(t, err)
	fb, err := b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb, "equal configs fingerprint alike")

	// equivalent paths are normalized
	jail := b.Mounts["jail"]
	jail.Path = "home/user/"
	b.Mounts["jail"] = jail
	fb, err = b.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, fa, fb)

	jail.Path = "/home/other"
	b.Mounts["jail"] = jail
	fb, err = b.Fingerprint()
	require.NoError(t, err)
	assert.NotEqual(t, fa, fb)

	mem := NewMemFS()
	f1, err := Config{FS: mem}.Fingerprint()
	require.NoError(t, err)
	f2, err := Config{FS: mem}.Fingerprint()
	require.NoError(t, err)
	f3, err := Config{FS: NewMemFS()}.Fingerprint()
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	assert.NotEqual(t, f1, f3)
}
