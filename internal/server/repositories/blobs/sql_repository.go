// Package blobs stores the named documents of blob server users.
package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/dbx"
	"github.com/peng0105/password-xl/internal/server/models"
)

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
// The queries are written for PostgreSQL and rebound for SQLite.
type SQLRepository struct {
	db     dbx.DBTX
	driver string
}

// NewSQLRepository constructs a repository bound to the given DBTX.
func NewSQLRepository(db dbx.DBTX, driver string) *SQLRepository {
	return &SQLRepository{db: db, driver: driver}
}

func (r *SQLRepository) q(query string) string {
	return dbx.Rebind(r.driver, query)
}

// Get returns the blob or common.ErrNotFound.
func (r *SQLRepository) Get(ctx context.Context, owner, name string) (*models.Blob, error) {
	query := `SELECT owner, name, content, modified_at FROM blobs WHERE owner = $1 AND name = $2`

	b := &models.Blob{}
	err := r.db.QueryRowContext(ctx, r.q(query), owner, name).Scan(&b.Owner, &b.Name, &b.Content, &b.ModifiedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select blob: %w", err)
	}
	return b, nil
}

// ModifiedAt returns the version tag of the blob without its content, or
// common.ErrNotFound.
func (r *SQLRepository) ModifiedAt(ctx context.Context, owner, name string) (int64, error) {
	query := `SELECT modified_at FROM blobs WHERE owner = $1 AND name = $2`

	var ts int64
	if err := r.db.QueryRowContext(ctx, r.q(query), owner, name).Scan(&ts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrNotFound
		}
		return 0, fmt.Errorf("failed to select blob tag: %w", err)
	}
	return ts, nil
}

// Put upserts the blob by (owner, name).
func (r *SQLRepository) Put(ctx context.Context, blob *models.Blob) error {
	query := `
		INSERT INTO blobs (owner, name, content, modified_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (owner, name)
		DO UPDATE SET
			content = EXCLUDED.content,
			modified_at = EXCLUDED.modified_at
	`
	res, err := r.db.ExecContext(ctx, r.q(query), blob.Owner, blob.Name, blob.Content, blob.ModifiedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// Delete removes the blob. A missing blob is not an error.
func (r *SQLRepository) Delete(ctx context.Context, owner, name string) error {
	query := `DELETE FROM blobs WHERE owner = $1 AND name = $2`
	if _, err := r.db.ExecContext(ctx, r.q(query), owner, name); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
