// Package common provides shared utilities for partsdesk
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/shopspring/decimal"
)

// defaultJWTSecret is the development secret; ValidateRequired rejects it in production.
const defaultJWTSecret = "dev-jwt-secret-change-in-production"

// Config holds all configuration for partsdesk
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Shop        ShopConfig    `toml:"shop"`
	Auth        AuthConfig    `toml:"auth"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig selects and configures the storage backend.
// Backend is one of "surrealdb" (default), "badger" or "memory".
type StorageConfig struct {
	Backend   string `toml:"backend"`
	Address   string `toml:"address"`   // SurrealDB RPC address, e.g. ws://localhost:8000/rpc
	Namespace string `toml:"namespace"` // SurrealDB namespace
	Database  string `toml:"database"`  // SurrealDB database
	Username  string `toml:"username"`
	Password  string `toml:"password"`
	Path      string `toml:"path"` // BadgerHold directory
}

// ShopConfig holds shop-level business settings.
type ShopConfig struct {
	Name              string `toml:"name"`
	Currency          string `toml:"currency"`
	LowStockThreshold int    `toml:"low_stock_threshold"` // used when a product has no reorder level
	WalkInCredit      bool   `toml:"walk_in_credit"`      // allow unpaid sales without a customer
}

// AuthConfig holds authentication configuration for JWT login.
type AuthConfig struct {
	JWTSecret   string  `toml:"jwt_secret"`
	TokenExpiry string  `toml:"token_expiry"` // duration string, default "12h"
	LoginRate   float64 `toml:"login_rate"`   // login attempts per second per client
	LoginBurst  int     `toml:"login_burst"`
}

// GetTokenExpiry parses and returns the token expiry duration.
func (c *AuthConfig) GetTokenExpiry() time.Duration {
	d, err := time.ParseDuration(c.TokenExpiry)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"`  // "console" or "json"
	Outputs  []string `toml:"outputs"` // "console", "file"
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Backend:   "surrealdb",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "partsdesk",
			Database:  "shop",
			Username:  "root",
			Password:  "root",
			Path:      "data/badger",
		},
		Shop: ShopConfig{
			Name:              "Parts & Batteries",
			Currency:          "INR",
			LowStockThreshold: 2,
		},
		Auth: AuthConfig{
			JWTSecret:   defaultJWTSecret,
			TokenExpiry: "12h",
			LoginRate:   0.2,
			LoginBurst:  5,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/partsdesk.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	config.Storage.Backend = strings.ToLower(strings.TrimSpace(config.Storage.Backend))
	config.Shop.Currency = strings.ToUpper(strings.TrimSpace(config.Shop.Currency))

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("PARTSDESK_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("PARTSDESK_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("PARTSDESK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if level := os.Getenv("PARTSDESK_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("PARTSDESK_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("PARTSDESK_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("PARTSDESK_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("PARTSDESK_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("PARTSDESK_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("PARTSDESK_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}
	if path := os.Getenv("PARTSDESK_DATA_PATH"); path != "" {
		config.Storage.Path = filepath.Join(path, "badger")
	}

	// Auth overrides
	if v := os.Getenv("PARTSDESK_AUTH_JWT_SECRET"); v != "" {
		config.Auth.JWTSecret = v
	}
	if v := os.Getenv("PARTSDESK_AUTH_TOKEN_EXPIRY"); v != "" {
		config.Auth.TokenExpiry = v
	}

	if v := os.Getenv("PARTSDESK_SHOP_CURRENCY"); v != "" {
		config.Shop.Currency = v
	}
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// ValidateRequired returns the names of settings that must be changed before
// running in production.
func (c *Config) ValidateRequired() []string {
	var missing []string
	if c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret {
		missing = append(missing, "auth.jwt_secret")
	}
	if c.Storage.Backend == "surrealdb" && c.Storage.Address == "" {
		missing = append(missing, "storage.address")
	}
	if c.Storage.Backend == "badger" && c.Storage.Path == "" {
		missing = append(missing, "storage.path")
	}
	return missing
}

// FormatMoney renders an amount with the shop currency, e.g. "INR 1250.00".
func (c *Config) FormatMoney(d decimal.Decimal) string {
	return c.Shop.Currency + " " + d.StringFixed(2)
}
