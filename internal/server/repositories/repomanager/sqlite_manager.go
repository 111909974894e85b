package repomanager

import (
	"context"
	"database/sql"

	"github.com/peng0105/password-xl/internal/dbx"
	"github.com/peng0105/password-xl/internal/server/repositories/blobs"
	"github.com/peng0105/password-xl/internal/server/repositories/images"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager serves single-host deployments from one file.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Driver() string { return "sqlite" }

func (m *SQLiteRepositoryManager) Blobs(db dbx.DBTX) blobs.Repository {
	return blobs.NewSQLRepository(db, m.Driver())
}

func (m *SQLiteRepositoryManager) Images(db dbx.DBTX) images.Repository {
	return images.NewSQLRepository(db, m.Driver())
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "sqlite3", m.Driver())
}
