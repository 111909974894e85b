// Package config loads runtime configuration for the password-xl CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config. Comments and trailing
//     commas are accepted.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
//	{
//	  "backend": "webdav",
//	  "login": {"serverUrl": "https://dav.example", "username": "alice", "rootPath": "/vault"},
//	  "data_dir": "/home/alice/.config/password-xl",
//	  "remember_login": true,
//	  "remember_secret": false,
//	  "use_keyring": true,
//	  "log_level": "info",
//	  "request_timeout": "30s"
//	}
//
// The login object uses the same field names as the login form stored by
// the auto-login cache.
package config
