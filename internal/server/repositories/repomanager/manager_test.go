package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/server/models"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew(t *testing.T) {
	m, err := New("pgx")
	require.NoError(t, err)
	assert.IsType(t, &PostgresRepositoryManager{}, m)

	m, err = New("sqlite")
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRepositoryManager{}, m)

	_, err = New("mysql")
	assert.Error(t, err)
}

func TestFactories_ReturnConcreteRepos(t *testing.T) {
	db := newDB(t)

	for _, m := range []RepositoryManager{&PostgresRepositoryManager{}, &SQLiteRepositoryManager{}} {
		if b := m.Blobs(db); b == nil {
			t.Fatalf("%s: Blobs() nil", m.Driver())
		}
		if i := m.Images(db); i == nil {
			t.Fatalf("%s: Images() nil", m.Driver())
		}
	}
}

func TestRunMigrations_UsesDialectDir(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	defer func() { gooseUpContext = orig }()

	var dirs []string
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		dirs = append(dirs, dir)
		return nil
	}

	require.NoError(t, (&PostgresRepositoryManager{}).RunMigrations(context.Background(), db))
	require.NoError(t, (&SQLiteRepositoryManager{}).RunMigrations(context.Background(), db))
	assert.Equal(t, []string{"postgres", "sqlite"}, dirs)
}

func TestRunMigrations_Error(t *testing.T) {
	db := newDB(t)

	orig := gooseUpContext
	gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return errors.New("boom")
	}
	defer func() { gooseUpContext = orig }()

	m := &PostgresRepositoryManager{}
	if err := m.RunMigrations(context.Background(), db); err == nil || err.Error() != "boom" {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestSQLite_MigrateAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	m := &SQLiteRepositoryManager{}
	require.NoError(t, m.RunMigrations(ctx, db))

	blobs := m.Blobs(db)
	require.NoError(t, blobs.Put(ctx, &models.Blob{Owner: "alice", Name: "store.json", Content: "v1", ModifiedAt: 1}))
	require.NoError(t, blobs.Put(ctx, &models.Blob{Owner: "alice", Name: "store.json", Content: "v2", ModifiedAt: 2}))

	b, err := blobs.Get(ctx, "alice", "store.json")
	require.NoError(t, err)
	assert.Equal(t, "v2", b.Content)
	assert.Equal(t, int64(2), b.ModifiedAt)

	_, err = blobs.Get(ctx, "bob", "store.json")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, blobs.Delete(ctx, "alice", "store.json"))
	_, err = blobs.ModifiedAt(ctx, "alice", "store.json")
	assert.ErrorIs(t, err, common.ErrNotFound)

	images := m.Images(db)
	img := &models.Image{Key: "/alice/images/note/a.png", Owner: "alice", ContentType: "image/png", Data: []byte{9}, CreatedAt: 3}
	require.NoError(t, images.Create(ctx, img))
	assert.Error(t, images.Create(ctx, img), "duplicate key")

	got, err := images.Get(ctx, img.Key)
	require.NoError(t, err)
	assert.Equal(t, img, got)
}
