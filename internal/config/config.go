package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
	Release   ReleaseConfig   `mapstructure:"release"`
	Install   InstallConfig   `mapstructure:"install"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// BootstrapConfig drives the default bootstrap sequence: which installer
// script to fetch, what to fetch it with, and what to run it under.
type BootstrapConfig struct {
	URL             string   `mapstructure:"url"`
	Filename        string   `mapstructure:"filename"`
	Interpreter     string   `mapstructure:"interpreter"`
	InterpreterHint string   `mapstructure:"interpreter_hint"`
	Tools           []string `mapstructure:"tools"`
	TempParent      string   `mapstructure:"temp_parent"`
}

// ReleaseConfig contains GitHub Releases lookup settings for native mode
type ReleaseConfig struct {
	Repo         string `mapstructure:"repo"`
	Package      string `mapstructure:"package"`
	AssetPattern string `mapstructure:"asset_pattern"`
	APIBase      string `mapstructure:"api_base"`
	Timeout      string `mapstructure:"timeout"`
}

// InstallConfig contains native-mode installation settings
type InstallConfig struct {
	WizardPath  string `mapstructure:"wizard_path"`
	WizardAlias string `mapstructure:"wizard_alias"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from the specified file path. An empty path
// loads defaults only, so the binary works with no config file at all.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("bootstrap.url", "https://kdg-kiosk.web.app/install-kdg-kiosk.py")
	v.SetDefault("bootstrap.filename", "install-kdg-kiosk.py")
	v.SetDefault("bootstrap.interpreter", "python3")
	v.SetDefault("bootstrap.interpreter_hint", "sudo apt install python3")
	v.SetDefault("bootstrap.tools", []string{"curl", "wget"})
	v.SetDefault("bootstrap.temp_parent", "")
	v.SetDefault("release.repo", "Brasco123/KdG-Kiosk")
	v.SetDefault("release.package", "kdg-kiosk")
	v.SetDefault("release.asset_pattern", "kdg-kiosk_{version}_amd64.deb")
	v.SetDefault("release.api_base", "https://api.github.com")
	v.SetDefault("release.timeout", "10s")
	v.SetDefault("install.wizard_path", "/usr/share/kdg-kiosk/setup_wizard.py")
	v.SetDefault("install.wizard_alias", "kdg-kiosk-setup")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	// Read config file only when one is given
	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate bootstrap config
	if c.Bootstrap.URL == "" {
		return fmt.Errorf("bootstrap.url is required")
	}
	if c.Bootstrap.Filename == "" {
		return fmt.Errorf("bootstrap.filename is required")
	}
	if c.Bootstrap.Interpreter == "" {
		return fmt.Errorf("bootstrap.interpreter is required")
	}
	if len(c.Bootstrap.Tools) == 0 {
		return fmt.Errorf("bootstrap.tools must list at least one transfer tool")
	}

	// Validate release config
	if c.Release.Repo == "" || !strings.Contains(c.Release.Repo, "/") {
		return fmt.Errorf("release.repo must be in owner/name form")
	}
	if c.Release.AssetPattern == "" {
		return fmt.Errorf("release.asset_pattern is required")
	}
	if _, err := time.ParseDuration(c.Release.Timeout); err != nil {
		return fmt.Errorf("invalid release.timeout: %w", err)
	}

	// Validate logging config
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetTimeout returns the release API timeout as time.Duration
func (c *ReleaseConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}
