package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
)

// Config holds runtime settings for the password-xl CLI.
//
// Backend selects the storage variant; Login carries its credentials. The
// remaining fields control what the CLI keeps on this device between runs.
type Config struct {
	Backend string
	Login   models.LoginForm

	DataDir        string
	RememberLogin  bool
	RememberSecret bool
	UseKeyring     bool
	LogLevel       string
	RequestTimeout time.Duration
}

var backends = []string{
	models.LoginTypeS3,
	models.LoginTypeOSS,
	models.LoginTypeCOS,
	models.LoginTypePrivate,
	models.LoginTypeWebDAV,
	models.LoginTypeLocal,
	models.LoginTypeBridge,
	models.LoginTypeMemory,
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.Backend = models.LoginTypeMemory
	c.DataDir = defaultDataDir()
	c.RememberLogin = true
	c.RememberSecret = false
	c.UseKeyring = false
	c.LogLevel = "warn"
	c.RequestTimeout = 30 * time.Second
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, common.AppName)
	}
	return "." + common.AppName
}

// LoginForm returns the login form for the configured backend.
func (c *Config) LoginForm() models.LoginForm {
	form := c.Login
	form.LoginType = c.Backend
	return form
}

// Validate checks the backend kind.
func (c *Config) Validate() error {
	for _, b := range backends {
		if c.Backend == b {
			return nil
		}
	}
	return fmt.Errorf("unknown backend %q, expected one of %s", c.Backend, strings.Join(backends, ", "))
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags. Later sources take precedence
// over earlier ones. args excludes the program name.
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
