// Package config provides configuration helpers and TOML/YAML parsing.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// FileConfig represents the configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice" yaml:"practice"`
	Log      LogConfig      `toml:"log" yaml:"log"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Text   *string `toml:"text" yaml:"text"`
	File   *string `toml:"file" yaml:"file"`
	Inline *bool   `toml:"inline" yaml:"inline"`
	Trace  *string `toml:"trace" yaml:"trace"`
}

// LogConfig maps diagnostic logging settings.
type LogConfig struct {
	Level  *string `toml:"level" yaml:"level"`
	Format *string `toml:"format" yaml:"format"`
	File   *string `toml:"file" yaml:"file"`
}

// LoadConfig reads a config from the given path. Files ending in .yaml or
// .yml are decoded as YAML, everything else as TOML. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg FileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	return cfg, nil
}

// ResolveConfigPath returns the first existing config file among config.toml,
// config.yaml and config.yml in dir, or the TOML path when none exists.
func ResolveConfigPath(dir string) string {
	for _, name := range []string{"config.toml", "config.yaml", "config.yml"} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return filepath.Join(dir, "config.toml")
}
