package client

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withConfigPath points the global config at path for the test.
func withConfigPath(t *testing.T, path string) {
	t.Helper()
	oldGetConfigDir := getConfigDirFunc
	oldGetConfigPath := getConfigPathFunc
	getConfigDirFunc = func() (string, error) {
		return filepath.Dir(path), nil
	}
	getConfigPathFunc = func() (string, error) {
		return path, nil
	}
	t.Cleanup(func() {
		getConfigDirFunc = oldGetConfigDir
		getConfigPathFunc = oldGetConfigPath
	})
}

func TestGetConfigDir(t *testing.T) {
	dir, err := GetConfigDir()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(dir))
	assert.True(t, strings.HasSuffix(dir, "shiftlog"))
}

func TestGetConfigPath(t *testing.T) {
	path, err := GetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, "config.json"))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	withConfigPath(t, filepath.Join(t.TempDir(), "config.json"))

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestLoadGlobalConfig_ValidFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	withConfigPath(t, configPath)

	data, _ := json.MarshalIndent(GlobalConfig{APIURL: "http://shiftlog.internal:8080"}, "", "  ")
	require.NoError(t, os.WriteFile(configPath, data, 0600))

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	require.NotNil(t, config)
	assert.Equal(t, "http://shiftlog.internal:8080", config.APIURL)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	withConfigPath(t, configPath)
	require.NoError(t, os.WriteFile(configPath, []byte("{invalid json}"), 0600))

	config, err := LoadGlobalConfig()
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestSaveGlobalConfig_CreatesDirectoryWithPermissions(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "shiftlog", "config.json")
	withConfigPath(t, configPath)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://localhost:9090"}))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9090", loaded.APIURL)
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	err := SaveGlobalConfig(nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "config cannot be nil")
}

func TestDeleteGlobalConfig(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	withConfigPath(t, configPath)
	require.NoError(t, os.WriteFile(configPath, []byte("{}"), 0600))

	require.NoError(t, DeleteGlobalConfig())
	assert.NoFileExists(t, configPath)

	// Deleting twice is not an error.
	require.NoError(t, DeleteGlobalConfig())
}

func newURLCmd(flagURL string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("api-url", "", "")
	if flagURL != "" {
		_ = cmd.Flags().Set("api-url", flagURL)
	}
	return cmd
}

func TestResolveURLSource(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.json")
	withConfigPath(t, configPath)
	t.Setenv(envAPIURL, "")

	source, apiURL, err := resolveURLSource(newURLCmd(""))
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, source)
	assert.Equal(t, defaultAPIURL, apiURL)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://saved:8080"}))
	source, apiURL, err = resolveURLSource(newURLCmd(""))
	require.NoError(t, err)
	assert.Equal(t, SourceGlobalConfig, source)
	assert.Equal(t, "http://saved:8080", apiURL)

	t.Setenv(envAPIURL, "http://env:8080")
	source, apiURL, err = resolveURLSource(newURLCmd(""))
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, source)
	assert.Equal(t, "http://env:8080", apiURL)

	source, apiURL, err = resolveURLSource(newURLCmd("http://flag:8080"))
	require.NoError(t, err)
	assert.Equal(t, SourceFlag, source)
	assert.Equal(t, "http://flag:8080", apiURL)
}
