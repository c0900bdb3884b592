package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "VBoxManage", cfg.VBoxManage)
	assert.Equal(t, "VDI", cfg.DiskFormat)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Empty(t, cfg.DefaultOSType)
}

func TestBinary(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		env      string
		config   string
		expected string
	}{
		{name: "explicit_wins", explicit: "/a/VBoxManage", env: "/b/VBoxManage", config: "/c/VBoxManage", expected: "/a/VBoxManage"},
		{name: "env_over_config", env: "/b/VBoxManage", config: "/c/VBoxManage", expected: "/b/VBoxManage"},
		{name: "config", config: "/c/VBoxManage", expected: "/c/VBoxManage"},
		{name: "fallback", expected: "VBoxManage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvVBoxManage, tt.env)
			cfg := &Config{VBoxManage: tt.config}
			assert.Equal(t, tt.expected, cfg.Binary(tt.explicit))
		})
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	cfg := DefaultConfig()
	cfg.VBoxManage = "/usr/lib/virtualbox/VBoxManage"
	cfg.DiskFormat = "VMDK"
	cfg.DefaultOSType = "Ubuntu_64"

	err := cfg.Save()
	require.NoError(t, err)

	configPath := filepath.Join(tmpHome, ConfigDir, ConfigFile)
	_, err = os.Stat(configPath)
	require.NoError(t, err)

	loaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_CreatesDefaultOnMissing(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	_, err = os.Stat(filepath.Join(tmpHome, ConfigDir, ConfigFile))
	assert.NoError(t, err, "Load should write the default config")
}

func TestLoad_FillsMissingFieldsWithDefaults(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir := filepath.Join(tmpHome, ConfigDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte(`{"default_ostype": "Debian_64"}`), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "Debian_64", cfg.DefaultOSType)
	assert.Equal(t, "VDI", cfg.DiskFormat)
	assert.Equal(t, "VBoxManage", cfg.VBoxManage)
}

func TestLoad_HandlesMalformedJSON(t *testing.T) {
	tmpHome := t.TempDir()
	t.Setenv("HOME", tmpHome)

	dir := filepath.Join(tmpHome, ConfigDir)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("{not json"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestConfigPath(t *testing.T) {
	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Contains(t, path, ConfigDir)
	assert.Contains(t, path, ConfigFile)
}

func TestConfig_JSONMarshal(t *testing.T) {
	data, err := json.Marshal(DefaultConfig())
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "vboxmanage")
	assert.Contains(t, raw, "disk_format")
	assert.NotContains(t, raw, "default_ostype", "empty ostype should be omitted")
}
