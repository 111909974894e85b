package blobs

import (
	"context"

	"github.com/peng0105/password-xl/internal/server/models"
)

type Repository interface {
	Get(ctx context.Context, owner, name string) (*models.Blob, error)
	ModifiedAt(ctx context.Context, owner, name string) (int64, error)
	Put(ctx context.Context, blob *models.Blob) error
	Delete(ctx context.Context, owner, name string) error
}
