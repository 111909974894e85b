package blobs

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db, "pgx"), mock, db
}

const (
	selectBlob = `(?s)^SELECT owner, name, content, modified_at FROM blobs WHERE owner = \$1 AND name = \$2$`
	selectTag  = `(?s)^SELECT modified_at FROM blobs WHERE owner = \$1 AND name = \$2$`
	upsertBlob = `(?s)^\s*INSERT\s+INTO\s+blobs\b.*ON\s+CONFLICT\s*\(owner, name\)\s*DO\s+UPDATE\s+SET\b.*modified_at = EXCLUDED\.modified_at\s*$`
	deleteBlob = `^DELETE FROM blobs WHERE owner = \$1 AND name = \$2$`
)

func TestGet_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"owner", "name", "content", "modified_at"}).
		AddRow("alice", "store.json", "abcd", int64(1700000000000))
	mock.ExpectQuery(selectBlob).WithArgs("alice", "store.json").WillReturnRows(rows)

	b, err := repo.Get(context.Background(), "alice", "store.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := models.Blob{Owner: "alice", Name: "store.json", Content: "abcd", ModifiedAt: 1700000000000}
	if *b != want {
		t.Fatalf("got %+v want %+v", *b, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectBlob).WithArgs("alice", "x.json").WillReturnError(sql.ErrNoRows)

	if _, err := repo.Get(context.Background(), "alice", "x.json"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestModifiedAt(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectTag).WithArgs("alice", "store.json").
		WillReturnRows(sqlmock.NewRows([]string{"modified_at"}).AddRow(int64(42)))
	mock.ExpectQuery(selectTag).WithArgs("alice", "note.json").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(selectTag).WithArgs("alice", "bad.json").WillReturnError(errors.New("boom"))

	ts, err := repo.ModifiedAt(context.Background(), "alice", "store.json")
	if err != nil || ts != 42 {
		t.Fatalf("got %d, %v", ts, err)
	}
	if _, err := repo.ModifiedAt(context.Background(), "alice", "note.json"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := repo.ModifiedAt(context.Background(), "alice", "bad.json"); err == nil || errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want wrapped db error, got %v", err)
	}
}

func TestPut(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(upsertBlob).WithArgs("alice", "store.json", "abcd", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(upsertBlob).WithArgs("alice", "store.json", "abcd", int64(8)).
		WillReturnError(errors.New("boom"))

	b := &models.Blob{Owner: "alice", Name: "store.json", Content: "abcd", ModifiedAt: 7}
	if err := repo.Put(context.Background(), b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b.ModifiedAt = 8
	if err := repo.Put(context.Background(), b); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteBlob).WithArgs("alice", "store.json").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(context.Background(), "alice", "store.json"); err != nil {
		t.Fatalf("missing blob must not fail: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
