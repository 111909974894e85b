package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/peng0105/password-xl/internal/client/autologin"
	"github.com/peng0105/password-xl/internal/client/config"
	"github.com/peng0105/password-xl/internal/client/kv"
	"github.com/peng0105/password-xl/internal/client/kv/boltdb"
	"github.com/peng0105/password-xl/internal/client/kv/keyring"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/client/storage/backend"
	"github.com/peng0105/password-xl/internal/client/vault"
	"github.com/peng0105/password-xl/internal/filex"
	"github.com/peng0105/password-xl/internal/fingerprint"
	"github.com/peng0105/password-xl/internal/logging"
)

const cacheFileName = "cache.db"

type App struct {
	config  *config.Config
	logger  logging.Logger
	session *vault.Session
	cache   *autologin.Cache
	reader  *bufio.Reader
	out     io.Writer
	closers []io.Closer

	// unix millis of the last command, read by the idle lock watcher
	lastActivity atomic.Int64
}

// NewApp wires the backend selected in c, the login cache and a vault
// session reading commands from stdin.
func NewApp(c *config.Config, logger logging.Logger) (*App, error) {
	logger = logging.OrDiscard(logger)

	adapter, err := backend.New(c.Backend, logger)
	if err != nil {
		return nil, err
	}

	var closers []io.Closer
	if cl, ok := adapter.(io.Closer); ok {
		closers = append(closers, cl)
	}

	var durable kv.Store = kv.NewMemory()
	if c.RememberLogin {
		dir, err := filex.EnsureDir(c.DataDir)
		if err != nil {
			return nil, err
		}
		db, err := boltdb.New(filepath.Join(dir, cacheFileName))
		if err != nil {
			return nil, fmt.Errorf("open login cache: %w", err)
		}
		durable = db
		closers = append(closers, db)
	}

	var opts []autologin.Option
	if c.UseKeyring {
		opts = append(opts, autologin.WithSecretStore(keyring.New()))
	}
	cache := autologin.New(durable, kv.NewMemory(), fingerprint.Device(), logger, opts...)

	a := newApp(c, logger, adapter, cache, bufio.NewReader(os.Stdin), os.Stdout)
	a.closers = closers
	return a, nil
}

func newApp(c *config.Config, logger logging.Logger, adapter storage.Adapter, cache *autologin.Cache, reader *bufio.Reader, out io.Writer) *App {
	a := &App{
		config: c,
		logger: logging.OrDiscard(logger).With("module", "cli"),
		cache:  cache,
		reader: reader,
		out:    out,
	}
	a.session = vault.New(adapter, logger, vault.WithObserver(deviceObserver{cache: cache, config: c}))
	a.Touch()
	return a
}

// deviceObserver narrows the remote auto-login settings by what this
// device's configuration allows before handing them to the cache.
type deviceObserver struct {
	cache  *autologin.Cache
	config *config.Config
}

func (o deviceObserver) OnUnlock(ctx context.Context, secret string, secretType models.MainPasswordType, setting models.Setting) error {
	setting.AutoLogin = setting.AutoLogin && o.config.RememberLogin
	setting.AutoUnlock = setting.AutoUnlock && o.config.RememberSecret && setting.AutoLogin
	return o.cache.OnUnlock(ctx, secret, secretType, setting)
}

func (o deviceObserver) Rewrap(ctx context.Context, oldSecret, newSecret string, secretType models.MainPasswordType) error {
	return o.cache.Rewrap(ctx, oldSecret, newSecret, secretType)
}

func (o deviceObserver) OnLogout(ctx context.Context) error {
	return o.cache.OnLogout(ctx)
}

// Run tries the remembered login, starts the idle lock watcher and runs the
// REPL until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "password-xl CLI (type 'help' for commands)")

	if err := a.autoLogin(ctx); err != nil {
		a.logger.Debug(ctx, "no automatic login", "error", err)
	}

	go a.StartIdleLockWatcher(ctx, idleCheckInterval)

	runREPL(ctx, a, a.status, a.reader)
}

// Close releases the backend connection and the login cache.
func (a *App) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	a.closers = nil
}

func (a *App) State() vault.State {
	return a.session.State()
}

// Touch records user activity.
func (a *App) Touch() {
	a.lastActivity.Store(time.Now().UnixMilli())
}

func (a *App) status() string {
	return fmt.Sprintf("%s %s", a.config.Backend, a.session.State())
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// withTimeout bounds one command by the configured request timeout.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}
