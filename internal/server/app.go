// Package server initializes and runs the password-xl blob server: it opens
// the database, applies migrations, wires the services and serves HTTP until
// the context is cancelled or a termination signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/peng0105/password-xl/internal/logging"
	"github.com/peng0105/password-xl/internal/server/config"
	"github.com/peng0105/password-xl/internal/server/httpapi"
	"github.com/peng0105/password-xl/internal/server/repositories/repomanager"
	"github.com/peng0105/password-xl/internal/server/services"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.HTTPServer
}

func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	logger = logging.OrDiscard(logger)

	rm, err := repomanager.New(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(c.DatabaseDriver, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if c.DatabaseDriver == config.DriverSQLite {
		// one writer at a time
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	us, err := services.NewUserService(c)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if len(c.Users) == 0 {
		logger.Warn(ctx, "no users configured, every login will fail")
	}

	srv := httpapi.NewHTTPServer(c, logger, us,
		services.NewBlobService(db, rm, c),
		services.NewImageService(db, rm, c))

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is done or a signal arrives, then closes the database.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "driver", app.config.DatabaseDriver)

	app.initSignalHandler(cancelFunc)

	err := app.server.Run(ctx)
	if cerr := app.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
