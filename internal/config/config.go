package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/mjshashank/vboxclonevm/internal/vboxmanage"
)

const (
	ConfigDir  = ".vboxclonevm"
	ConfigFile = "config.json"

	// EnvVBoxManage overrides the VBoxManage binary from the config file
	EnvVBoxManage = "VBOXMANAGE"
)

// Config holds the application configuration
type Config struct {
	VBoxManage    string `json:"vboxmanage"`
	DiskFormat    string `json:"disk_format"`              // VDI, VMDK or VHD
	DefaultOSType string `json:"default_ostype,omitempty"` // empty copies the source's ostype
	LogLevel      string `json:"log_level"`
}

// DefaultConfig returns a new config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		VBoxManage: vboxmanage.DefaultBinary,
		DiskFormat: "VDI",
		LogLevel:   "warn",
	}
}

// ConfigPath returns the path to the config file
func ConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ConfigDir, ConfigFile), nil
}

// Binary returns the VBoxManage executable to run.
// Priority: explicit > $VBOXMANAGE > config file > PATH lookup of VBoxManage
func (c *Config) Binary(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvVBoxManage); env != "" {
		return env
	}
	if c.VBoxManage != "" {
		return c.VBoxManage
	}
	return vboxmanage.DefaultBinary
}

// Load loads the configuration from disk, creating a default one if it doesn't exist
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := cfg.Save(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save persists the configuration to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
