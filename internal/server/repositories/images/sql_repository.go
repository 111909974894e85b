// Package images stores uploaded attachments of blob server users.
package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/dbx"
	"github.com/peng0105/password-xl/internal/server/models"
)

// SQLRepository implements Repository over a dbx.DBTX.
type SQLRepository struct {
	db     dbx.DBTX
	driver string
}

func NewSQLRepository(db dbx.DBTX, driver string) *SQLRepository {
	return &SQLRepository{db: db, driver: driver}
}

// Create inserts a new image. Keys are random, so a duplicate is an error.
func (r *SQLRepository) Create(ctx context.Context, img *models.Image) error {
	query := `
		INSERT INTO images (object_key, owner, content_type, data, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.ExecContext(ctx, dbx.Rebind(r.driver, query), img.Key, img.Owner, img.ContentType, img.Data, img.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert image: %w", err)
	}
	return nil
}

// Get returns the image stored under key or common.ErrNotFound.
func (r *SQLRepository) Get(ctx context.Context, key string) (*models.Image, error) {
	query := `SELECT object_key, owner, content_type, data, created_at FROM images WHERE object_key = $1`

	img := &models.Image{}
	err := r.db.QueryRowContext(ctx, dbx.Rebind(r.driver, query), key).
		Scan(&img.Key, &img.Owner, &img.ContentType, &img.Data, &img.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select image: %w", err)
	}
	return img, nil
}
