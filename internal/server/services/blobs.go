package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/dbx"
	"github.com/peng0105/password-xl/internal/server/config"
	"github.com/peng0105/password-xl/internal/server/models"
	"github.com/peng0105/password-xl/internal/server/repositories/repomanager"
)

// BlobService keeps the named documents of each user. Every write stamps
// the blob with a version tag in milliseconds that is strictly greater
// than the one it replaces.
type BlobService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	maxSize     int64
	now         func() time.Time
}

func NewBlobService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *BlobService {
	return &BlobService{db: db, repomanager: m, maxSize: cfg.MaxBlobSize, now: time.Now}
}

// Get returns the blob or common.ErrNotFound.
func (s *BlobService) Get(ctx context.Context, owner, key string) (*models.Blob, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	return s.repomanager.Blobs(s.db).Get(ctx, owner, key)
}

// Etag returns the version tag of the blob, or 0 when there is none.
func (s *BlobService) Etag(ctx context.Context, owner, key string) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	ts, err := s.repomanager.Blobs(s.db).ModifiedAt(ctx, owner, key)
	if errors.Is(err, common.ErrNotFound) {
		return 0, nil
	}
	return ts, err
}

// Put stores content and returns its new version tag.
func (s *BlobService) Put(ctx context.Context, owner, key, content string) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}
	if int64(len(content)) > s.maxSize {
		return 0, common.ErrTooLarge
	}

	var tag int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Blobs(tx)

		prev, err := repo.ModifiedAt(ctx, owner, key)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}

		tag = s.now().UnixMilli()
		if tag <= prev {
			tag = prev + 1
		}
		return repo.Put(ctx, &models.Blob{Owner: owner, Name: key, Content: content, ModifiedAt: tag})
	})
	if err != nil {
		return 0, fmt.Errorf("put %s: %w", key, err)
	}
	return tag, nil
}

// Delete removes the blob. Deleting a missing blob succeeds.
func (s *BlobService) Delete(ctx context.Context, owner, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return s.repomanager.Blobs(s.db).Delete(ctx, owner, key)
}
