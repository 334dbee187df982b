package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresOutputDir(t *testing.T) {
	_, err := Load([]string{"--key", "deadbeef"})
	assert.Error(t, err)
}

func TestLoadExplicitKeyWinsOverConfigFile(t *testing.T) {
	cfg, err := Load([]string{"--key", "deadbeef", "--output", t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "deadbeef", cfg.Key)
}

func TestLoadReadsKeyFromSignalConfig(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(configFile, []byte(`{"key": "cafebabe"}`), 0o644))

	cfg, err := Load([]string{"--config", configFile, "--output", dir})
	require.NoError(t, err)
	assert.Equal(t, "cafebabe", cfg.Key)
}

func TestLoadMissingSignalConfigIsAnError(t *testing.T) {
	dir := t.TempDir()
	_, err := Load([]string{"--config", filepath.Join(dir, "nope.json"), "--output", dir})
	assert.Error(t, err)
}

func TestLoadPlaintextSkipsKeyResolution(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load([]string{"--plaintext", "--output", dir, "--db-path", filepath.Join(dir, "db.sqlite")})
	require.NoError(t, err)
	assert.Empty(t, cfg.Key)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{"--key", "deadbeef", "--output", t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "me", cfg.SelfName)
	assert.Equal(t, 4, cfg.Workers)
	assert.False(t, cfg.ExtractAttachments)
	assert.Equal(t, "sqlcipher", cfg.SQLCipherBin)
}

func TestDefaultPathsPointIntoOneProfile(t *testing.T) {
	paths := DefaultPaths()
	assert.Equal(t, filepath.Dir(paths.ConfigFile), filepath.Dir(filepath.Dir(paths.Database)))
	assert.Contains(t, paths.Database, "sql")
	assert.Contains(t, paths.AttachmentsDir, "attachments.noindex")
}
