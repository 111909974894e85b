package images

import (
	"context"

	"github.com/peng0105/password-xl/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, img *models.Image) error
	Get(ctx context.Context, key string) (*models.Image, error)
}
