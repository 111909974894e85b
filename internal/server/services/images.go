package services

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/server/config"
	"github.com/peng0105/password-xl/internal/server/models"
	"github.com/peng0105/password-xl/internal/server/repositories/repomanager"
)

var prefixPattern = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// imageTypes maps the accepted file extensions to their content types.
var imageTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"heif": "image/heif",
	"heic": "image/heic",
	"ico":  "image/x-icon",
}

// ImageService stores note attachments under per-user object keys.
type ImageService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	maxSize     int64
	now         func() time.Time
}

func NewImageService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *ImageService {
	return &ImageService{db: db, repomanager: m, maxSize: cfg.MaxImageSize, now: time.Now}
}

// Upload stores data and returns its object key,
// "/<owner>/images/<prefix>/<random id>.<ext>".
func (s *ImageService) Upload(ctx context.Context, owner, prefix, fileName string, data []byte) (string, error) {
	if !prefixPattern.MatchString(prefix) {
		return "", fmt.Errorf("%w: prefix must be letters and digits", common.ErrBadRequest)
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(fileName), "."))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: unsupported image type %q", common.ErrBadRequest, ext)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty file", common.ErrBadRequest)
	}
	if int64(len(data)) > s.maxSize {
		return "", common.ErrTooLarge
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	img := &models.Image{
		Key:         "/" + owner + "/images/" + prefix + "/" + id + "." + ext,
		Owner:       owner,
		ContentType: contentType,
		Data:        data,
		CreatedAt:   s.now().UnixMilli(),
	}
	if err := s.repomanager.Images(s.db).Create(ctx, img); err != nil {
		return "", err
	}
	return img.Key, nil
}

// Get returns an image of owner. Keys of other users read as missing.
func (s *ImageService) Get(ctx context.Context, owner, key string) (*models.Image, error) {
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	if err := validateKey(key[1:]); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(key, "/"+owner+"/images/") {
		return nil, common.ErrNotFound
	}

	img, err := s.repomanager.Images(s.db).Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if img.Owner != owner {
		return nil, common.ErrNotFound
	}
	return img, nil
}
