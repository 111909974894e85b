package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/peng0105/password-xl/internal/dbx"
	"github.com/peng0105/password-xl/internal/server/repositories/blobs"
	"github.com/peng0105/password-xl/internal/server/repositories/images"
)

type RepositoryManager interface {
	Driver() string
	RunMigrations(context.Context, *sql.DB) error
	Blobs(db dbx.DBTX) blobs.Repository
	Images(db dbx.DBTX) images.Repository
}

// New returns the manager for a database/sql driver name.
func New(driver string) (RepositoryManager, error) {
	switch driver {
	case "pgx":
		return &PostgresRepositoryManager{}, nil
	case "sqlite":
		return &SQLiteRepositoryManager{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}
