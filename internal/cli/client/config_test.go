package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withTempConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	origDir := getConfigDirFunc
	getConfigDirFunc = func() (string, error) {
		return dir, nil
	}
	t.Cleanup(func() {
		getConfigDirFunc = origDir
	})

	return dir
}

func TestGlobalConfig_SaveLoadRoundTrip(t *testing.T) {
	dir := withTempConfigDir(t)

	cfg := &GlobalConfig{APIKey: "secret", APIURL: "http://example.com"}
	require.NoError(t, SaveGlobalConfig(cfg))

	// File permissions matter: the key is a credential.
	info, err := os.Stat(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "secret", loaded.APIKey)
	assert.Equal(t, "http://example.com", loaded.APIURL)
}

func TestLoadGlobalConfig_MissingFile(t *testing.T) {
	withTempConfigDir(t)

	loaded, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestDeleteGlobalConfig(t *testing.T) {
	withTempConfigDir(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "secret", APIURL: "http://example.com"}))
	require.NoError(t, DeleteGlobalConfig())

	loaded, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, loaded)

	// Deleting a missing file is not an error.
	assert.NoError(t, DeleteGlobalConfig())
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	withTempConfigDir(t)

	assert.Error(t, SaveGlobalConfig(nil))
}

func TestGetCredentialSource(t *testing.T) {
	withTempConfigDir(t)

	t.Run("flags take priority", func(t *testing.T) {
		t.Setenv(envAPIKey, "env-key")
		t.Setenv(envAPIURL, "http://env")

		source, key, url := GetCredentialSource("flag-key", "http://flag")
		assert.Equal(t, SourceFlag, source)
		assert.Equal(t, "flag-key", key)
		assert.Equal(t, "http://flag", url)
	})

	t.Run("env beats global config", func(t *testing.T) {
		t.Setenv(envAPIKey, "env-key")
		t.Setenv(envAPIURL, "http://env")
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "file-key", APIURL: "http://file"}))

		source, key, url := GetCredentialSource("", "")
		assert.Equal(t, SourceEnvFile, source)
		assert.Equal(t, "env-key", key)
		assert.Equal(t, "http://env", url)
	})

	t.Run("falls back to global config", func(t *testing.T) {
		t.Setenv(envAPIKey, "")
		t.Setenv(envAPIURL, "")
		require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIKey: "file-key", APIURL: "http://file"}))

		source, key, url := GetCredentialSource("", "")
		assert.Equal(t, SourceGlobalConfig, source)
		assert.Equal(t, "file-key", key)
		assert.Equal(t, "http://file", url)
	})

	t.Run("reports no credentials", func(t *testing.T) {
		t.Setenv(envAPIKey, "")
		t.Setenv(envAPIURL, "")
		require.NoError(t, DeleteGlobalConfig())

		source, _, _ := GetCredentialSource("", "")
		assert.Equal(t, SourceNone, source)
	})
}
