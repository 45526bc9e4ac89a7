// Package config handles configuration loading for stepflow.
// It supports XDG config paths, project-level overrides, and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for stepflow.
type Config struct {
	TUI     TUIConfig     `mapstructure:"tui"`
	Run     RunConfig     `mapstructure:"run"`
	History HistoryConfig `mapstructure:"history"`
}

// TUIConfig holds live display settings.
type TUIConfig struct {
	// RefreshRate is the live display redraw interval.
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
	// Color enables colored output in the summary.
	Color bool `mapstructure:"color"`
}

// RunConfig holds workflow execution settings.
type RunConfig struct {
	// Workers is the number of tasks executed in parallel.
	Workers int `mapstructure:"workers"`
	// Shell is the shell used to run manifest task commands.
	Shell string `mapstructure:"shell"`
}

// HistoryConfig holds run-history persistence settings.
type HistoryConfig struct {
	// Enabled controls whether finished runs are recorded.
	Enabled bool `mapstructure:"enabled"`
	// Path overrides the history database location. Empty means the
	// XDG data directory.
	Path string `mapstructure:"path"`
	// Keep is the number of runs retained; older runs are pruned.
	Keep int `mapstructure:"keep"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (STEPFLOW_*)
// 2. Project config (.stepflow.yaml in current directory or parent)
// 3. User config (~/.config/stepflow/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	userConfigDir := getUserConfigDir()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(userConfigDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Project config takes precedence over the user config.
	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("STEPFLOW")
	v.AutomaticEnv()
	v.BindEnv("tui.refresh_rate", "STEPFLOW_REFRESH_RATE")
	v.BindEnv("run.workers", "STEPFLOW_WORKERS")
	v.BindEnv("history.path", "STEPFLOW_HISTORY_PATH")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.History.Path = os.ExpandEnv(cfg.History.Path)

	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.History.Path = os.ExpandEnv(cfg.History.Path)

	return cfg, nil
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

// GetProjectConfigPath returns the path to the project config file if it
// exists.
func GetProjectConfigPath() string {
	return findProjectConfig()
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("tui.refresh_rate", "100ms")
	v.SetDefault("tui.color", true)

	v.SetDefault("run.workers", 1)
	v.SetDefault("run.shell", defaultShell())

	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("history.keep", 50)
}

// defaultShell picks the shell commands run under.
func defaultShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// getUserConfigDir returns the XDG config directory for stepflow.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "stepflow")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "stepflow")
	}
	return filepath.Join(home, ".config", "stepflow")
}

// findProjectConfig searches for .stepflow.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".stepflow.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
			Color:       true,
		},
		Run: RunConfig{
			Workers: 1,
			Shell:   defaultShell(),
		},
		History: HistoryConfig{
			Enabled: true,
			Keep:    50,
		},
	}
}
