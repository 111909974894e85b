package config

import (
	"flag"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/flagx"
)

var knownFlags = []string{"-b", "-a", "-u", "-p", "-r", "-f", "-d", "-l", "-k"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-b string   backend: s3, oss, cos, private, webdav, local, bridge, memory
//	-a string   server URL, object storage endpoint or bridge address
//	-u string   username or access key id
//	-p string   password or access key secret
//	-r string   bucket (object storage) or root path (WebDAV)
//	-f string   vault file (local backend)
//	-d string   data directory for the login cache
//	-l string   log level
//	-k bool     keep the remembered main secret in the OS keyring
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	var addr, user, pass, root string
	fs.StringVar(&cfg.Backend, "b", cfg.Backend, "storage backend")
	fs.StringVar(&addr, "a", "", "server address, endpoint or bridge address")
	fs.StringVar(&user, "u", "", "username or access key id")
	fs.StringVar(&pass, "p", "", "password or access key secret")
	fs.StringVar(&root, "r", "", "bucket or root path")
	fs.StringVar(&cfg.Login.FilePath, "f", cfg.Login.FilePath, "vault file for the local backend")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.UseKeyring, "k", cfg.UseKeyring, "keep the remembered main secret in the OS keyring")

	if err := fs.Parse(flagx.FilterArgs(args, knownFlags)); err != nil {
		return err
	}

	applyShared(cfg, addr, user, pass, root)
	return nil
}

// applyShared maps the generic -a/-u/-p/-r values onto the fields of the
// selected backend. Empty values leave the form untouched.
func applyShared(cfg *Config, addr, user, pass, root string) {
	l := &cfg.Login
	switch cfg.Backend {
	case models.LoginTypeS3, models.LoginTypeOSS, models.LoginTypeCOS:
		set(&l.Endpoint, addr)
		set(&l.AccessKeyID, user)
		set(&l.AccessKeySecret, pass)
		set(&l.Bucket, root)
	case models.LoginTypeBridge:
		set(&l.BridgeAddr, addr)
		set(&l.Username, user)
		set(&l.Password, pass)
	default:
		set(&l.ServerURL, addr)
		set(&l.Username, user)
		set(&l.Password, pass)
		set(&l.RootPath, root)
	}
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
