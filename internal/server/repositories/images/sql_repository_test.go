package images

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLRepository(db, "pgx"), mock
}

func TestCreateAndGet(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	img := &models.Image{Key: "/alice/images/note/0123456789abcdef.png", Owner: "alice", ContentType: "image/png", Data: []byte{1, 2}, CreatedAt: 5}

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+images\s*\(object_key, owner, content_type, data, created_at\)\s*VALUES\s*\(\$1, \$2, \$3, \$4, \$5\)`).
		WithArgs(img.Key, img.Owner, img.ContentType, img.Data, img.CreatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`^SELECT object_key, owner, content_type, data, created_at FROM images WHERE object_key = \$1$`).
		WithArgs(img.Key).
		WillReturnRows(sqlmock.NewRows([]string{"object_key", "owner", "content_type", "data", "created_at"}).
			AddRow(img.Key, img.Owner, img.ContentType, img.Data, img.CreatedAt))

	require.NoError(t, repo.Create(context.Background(), img))
	got, err := repo.Get(context.Background(), img.Key)
	require.NoError(t, err)
	assert.Equal(t, img, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM images`).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(`INSERT`).WillReturnError(errors.New("duplicate key"))

	err := repo.Create(context.Background(), &models.Image{Key: "k"})
	assert.ErrorContains(t, err, "duplicate key")
}
