package config

import (
	"time"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/flagx"
	"github.com/peng0105/password-xl/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell "absent" from "false".
type JsonConfig struct {
	Backend        string            `json:"backend"`
	Login          *models.LoginForm `json:"login"`
	DataDir        string            `json:"data_dir"`
	RememberLogin  *bool             `json:"remember_login"`
	RememberSecret *bool             `json:"remember_secret"`
	UseKeyring     *bool             `json:"use_keyring"`
	LogLevel       string            `json:"log_level"`
	RequestTimeout *timex.Duration   `json:"request_timeout"`
}

// parseJson overlays cfg with the file named by -c or -config. Without
// either flag nothing is loaded. The file may contain comments.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	var jc JsonConfig
	if err := flagx.ReadConfigFile(path, &jc); err != nil {
		return err
	}

	if jc.Backend != "" {
		cfg.Backend = jc.Backend
	}
	if jc.Login != nil {
		cfg.Login = *jc.Login
		if cfg.Login.LoginType != "" && jc.Backend == "" {
			cfg.Backend = cfg.Login.LoginType
		}
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.RememberLogin != nil {
		cfg.RememberLogin = *jc.RememberLogin
	}
	if jc.RememberSecret != nil {
		cfg.RememberSecret = *jc.RememberSecret
	}
	if jc.UseKeyring != nil {
		cfg.UseKeyring = *jc.UseKeyring
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = time.Duration(jc.RequestTimeout.Duration)
	}
	return nil
}
