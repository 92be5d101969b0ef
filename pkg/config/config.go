package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config defines runtime settings for pqoscap.
type Config struct {
	// ResctrlRoot overrides resctrl mountpoint discovery.
	ResctrlRoot string `yaml:"resctrlRoot"`
	LogLevel    string `yaml:"logLevel"`
	LogFormat   string `yaml:"logFormat"`
	// Output is the default render format: text, yaml or json.
	Output string `yaml:"output"`
}

// LoadConfig loads configuration from a YAML file and environment
// overrides. An empty path selects defaults plus environment only.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Output:    "text",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if root := os.Getenv("PQOSCAP_RESCTRL_ROOT"); root != "" {
		cfg.ResctrlRoot = root
	}
	if level := os.Getenv("PQOSCAP_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if format := os.Getenv("PQOSCAP_LOG_FORMAT"); format != "" {
		cfg.LogFormat = format
	}
	if output := os.Getenv("PQOSCAP_OUTPUT"); output != "" {
		cfg.Output = output
	}

	switch cfg.Output {
	case "text", "yaml", "json":
	default:
		return nil, fmt.Errorf("unsupported output format: %s", cfg.Output)
	}

	return cfg, nil
}

// DefaultConfigPath returns the default location for the CLI config
// file, or empty when no config file exists there.
func DefaultConfigPath() string {
	if path := os.Getenv("PQOSCAP_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".pqoscap", "config.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
