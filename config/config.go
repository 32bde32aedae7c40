// Package config loads application configuration from the user's config
// directory, with environment variable overrides.
package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	// DatabasePath is the local document database. Empty means the
	// default location under ~/.taskwise.
	DatabasePath string `yaml:"database_path"`

	Cloud CloudConfig `yaml:"cloud"`
	Auth  AuthConfig  `yaml:"auth"`
	Log   LogConfig   `yaml:"log"`
}

// LogConfig configures the log file and verbosity.
type LogConfig struct {
	// File is the log destination. Empty means the default location
	// under ~/.taskwise/logs.
	File string `yaml:"file"`

	// Level is one of debug, info, warn, error; empty means info.
	Level string `yaml:"level"`
}

// CloudConfig configures the Firestore-backed cloud store. Sync is
// disabled entirely when no credentials are configured; the app then runs
// local-only.
type CloudConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

// AuthConfig configures session token signing.
type AuthConfig struct {
	// TokenSecret signs session tokens. A fresh random secret is not
	// generated here; an empty secret disables session persistence.
	TokenSecret string `yaml:"token_secret"`

	// TokenTTLHours bounds how long a persisted session stays valid.
	TokenTTLHours int `yaml:"token_ttl_hours"`
}

// DefaultTokenTTLHours keeps a signed-in session valid for 30 days.
const DefaultTokenTTLHours = 24 * 30

// Enabled reports whether cloud sync is configured at all.
func (c CloudConfig) Enabled() bool {
	return c.CredentialsFile != "" || c.ProjectID != ""
}

// Load reads config from ~/.taskwise/config.yaml, returning defaults when
// the file is missing. A .env file in the working directory is applied
// best-effort before environment overrides are read.
func Load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		Auth: AuthConfig{TokenTTLHours: DefaultTokenTTLHours},
	}

	configPath, err := getConfigPath()
	if err == nil {
		if data, err := os.ReadFile(configPath); err == nil {
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, err
			}
		}
	}

	applyEnvOverrides(config)

	if config.Auth.TokenTTLHours <= 0 {
		config.Auth.TokenTTLHours = DefaultTokenTTLHours
	}

	return config, nil
}

// applyEnvOverrides lets the environment win over the config file
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("TASKWISE_DB_PATH"); v != "" {
		config.DatabasePath = v
	}
	if v := os.Getenv("TASKWISE_CLOUD_PROJECT"); v != "" {
		config.Cloud.ProjectID = v
	}
	if v := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); v != "" {
		config.Cloud.CredentialsFile = v
	}
	if v := os.Getenv("TASKWISE_TOKEN_SECRET"); v != "" {
		config.Auth.TokenSecret = v
	}
	if v := os.Getenv("TASKWISE_LOG_FILE"); v != "" {
		config.Log.File = v
	}
	if v := os.Getenv("TASKWISE_LOG_LEVEL"); v != "" {
		config.Log.Level = v
	}
}

// getConfigPath returns the path to the user's config file
func getConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskwise", "config.yaml"), nil
}
