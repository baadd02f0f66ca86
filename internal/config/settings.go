package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Settings is a persisted key-value store for host collaborators (last
// selected org, window state and the like). It is deliberately schema-free:
// the core never reads it, only the configuration layer and the CLI do.
type Settings struct {
	v    *viper.Viper
	path string
}

// OpenSettings opens (or creates) <root>/.sforg/settings.json
func OpenSettings(root string) (*Settings, error) {
	dir := filepath.Join(root, ".sforg")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "settings.json")
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			// Corrupt settings are not fatal; start fresh.
			v = viper.New()
			v.SetConfigFile(path)
			v.SetConfigType("json")
		}
	}

	return &Settings{v: v, path: path}, nil
}

// Get returns the stored value for key, or def when absent
func (s *Settings) Get(key string, def interface{}) interface{} {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.Get(key)
}

// GetString returns the stored string for key, or def when absent
func (s *Settings) GetString(key, def string) string {
	if !s.v.IsSet(key) {
		return def
	}
	return s.v.GetString(key)
}

// Set stores a value and persists the file immediately
func (s *Settings) Set(key string, value interface{}) error {
	s.v.Set(key, value)
	return s.v.WriteConfigAs(s.path)
}
