package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultSecretPassword is used for key derivation when
// SIMULPOST_SECRET_PASSWORD is unset.
const DefaultSecretPassword = "default-simulpost-password"

// File names under the data directory.
const (
	CredentialsFile = "api_keys.json"
	TokensFile      = "auth_tokens.json"
	UserConfigFile  = "user_config.json"
	DraftsDir       = "drafts"
	HistoryDBFile   = "simulpost.db"
)

// Config holds all application configuration.
type Config struct {
	// Encryption
	SecretPassword string

	// Storage
	DataDir       string
	HistoryDBPath string // default: <DataDir>/simulpost.db

	// Platform requests
	RequestsPerMinute int
	HTTPTimeout       time.Duration

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables.
// It automatically loads .env file if present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		SecretPassword: getEnv("SIMULPOST_SECRET_PASSWORD", DefaultSecretPassword),
		DataDir:        getEnv("SIMULPOST_DATA_DIR", "."),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
	cfg.HistoryDBPath = getEnv("SIMULPOST_HISTORY_DB", filepath.Join(cfg.DataDir, HistoryDBFile))

	var err error
	cfg.HTTPTimeout, err = time.ParseDuration(getEnv("SIMULPOST_HTTP_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULPOST_HTTP_TIMEOUT: %w", err)
	}

	cfg.RequestsPerMinute, err = strconv.Atoi(getEnv("SIMULPOST_REQUESTS_PER_MINUTE", "30"))
	if err != nil {
		return nil, fmt.Errorf("invalid SIMULPOST_REQUESTS_PER_MINUTE: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("SIMULPOST_DATA_DIR is required")
	}
	if c.SecretPassword == "" {
		return fmt.Errorf("SIMULPOST_SECRET_PASSWORD must not be empty")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("SIMULPOST_HTTP_TIMEOUT must be positive")
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("SIMULPOST_REQUESTS_PER_MINUTE must not be negative")
	}
	return nil
}

// ValidateForHistory checks configuration needed to record post history.
func (c *Config) ValidateForHistory() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.HistoryDBPath == "" {
		return fmt.Errorf("SIMULPOST_HISTORY_DB is required")
	}
	return nil
}

// DefaultPassword reports whether the built-in passphrase is in use.
func (c *Config) DefaultPassword() bool {
	return c.SecretPassword == DefaultSecretPassword
}

// CredentialsPath returns the encrypted credential file location.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.DataDir, CredentialsFile)
}

// TokensPath returns the encrypted token file location.
func (c *Config) TokensPath() string {
	return filepath.Join(c.DataDir, TokensFile)
}

// UserConfigPath returns the user preferences file location.
func (c *Config) UserConfigPath() string {
	return filepath.Join(c.DataDir, UserConfigFile)
}

// DraftsPath returns the drafts directory.
func (c *Config) DraftsPath() string {
	return filepath.Join(c.DataDir, DraftsDir)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
