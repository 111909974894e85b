package config

import (
	"github.com/peng0105/password-xl/internal/flagx"
	"github.com/peng0105/password-xl/internal/timex"
)

// JsonConfig is a DTO used only for reading JSON configuration files. After
// unmarshalling, set fields are copied into the runtime Config.
type JsonConfig struct {
	EndpointAddr          string          `json:"endpoint_addr"`
	DatabaseDriver        string          `json:"database_driver"`
	DatabaseDSN           string          `json:"database_dsn"`
	SecretKey             string          `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	Users                 []string        `json:"users"`
	MaxBlobSize           int64           `json:"max_blob_size"`
	MaxImageSize          int64           `json:"max_image_size"`
	AllowedOrigins        []string        `json:"allowed_origins"`
	LogLevel              string          `json:"log_level"`
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

	if jc.EndpointAddr != "" {
		cfg.EndpointAddr = jc.EndpointAddr
	}
	if jc.DatabaseDriver != "" {
		cfg.DatabaseDriver = jc.DatabaseDriver
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.SecretKey != "" {
		cfg.SecretKey = jc.SecretKey
	}
	if jc.TokenValidityDuration != nil {
		cfg.TokenValidityDuration = jc.TokenValidityDuration.Duration
	}
	if jc.Users != nil {
		cfg.Users = jc.Users
	}
	if jc.MaxBlobSize > 0 {
		cfg.MaxBlobSize = jc.MaxBlobSize
	}
	if jc.MaxImageSize > 0 {
		cfg.MaxImageSize = jc.MaxImageSize
	}
	if jc.AllowedOrigins != nil {
		cfg.AllowedOrigins = jc.AllowedOrigins
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	return nil
}
