// Package config handles configuration for the blob server, including
// defaults, JSON overlay, and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported values of Config.DatabaseDriver.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Config holds runtime settings for the password-xl blob server.
//
// Fields:
//   - EndpointAddr: bind address of the HTTP endpoint.
//   - DatabaseDriver / DatabaseDSN: "pgx" with a PostgreSQL DSN, or "sqlite"
//     with a file path or ":memory:".
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default in prod.
//   - TokenValidityDuration: lifetime of a login token.
//   - Users: accounts as "name:bcrypt-hash" pairs.
//   - MaxBlobSize / MaxImageSize: request body limits, bytes.
//   - AllowedOrigins: CORS origins; "*" allows any.
type Config struct {
	EndpointAddr          string
	DatabaseDriver        string
	DatabaseDSN           string
	SecretKey             string
	TokenValidityDuration time.Duration
	Users                 []string
	MaxBlobSize           int64
	MaxImageSize          int64
	AllowedOrigins        []string
	LogLevel              string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key must be overridden outside of development.
func (c *Config) LoadDefaults() {
	c.EndpointAddr = ":8080"
	c.DatabaseDriver = DriverSQLite
	c.DatabaseDSN = "password-xl.db"
	c.SecretKey = "password-xl"
	c.TokenValidityDuration = 7 * 24 * time.Hour
	c.Users = nil
	c.MaxBlobSize = 16 << 20
	c.MaxImageSize = 10 << 20
	c.AllowedOrigins = []string{"*"}
	c.LogLevel = "info"
}

// Validate checks the fields the server cannot start without.
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown database driver %q, expected %s or %s", c.DatabaseDriver, DriverPostgres, DriverSQLite)
	}
	if c.SecretKey == "" {
		return errors.New("secret key must not be empty")
	}
	if c.TokenValidityDuration <= 0 {
		return errors.New("token validity must be positive")
	}
	if c.MaxBlobSize <= 0 || c.MaxImageSize <= 0 {
		return errors.New("size limits must be positive")
	}
	for _, u := range c.Users {
		name, hash, ok := strings.Cut(u, ":")
		if !ok || name == "" || hash == "" {
			return fmt.Errorf("user entry %q is not name:hash", u)
		}
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags. args
// excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
