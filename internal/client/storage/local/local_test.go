package local

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loggedIn(t *testing.T, p string) *Storage {
	t.Helper()
	s := New(nil)
	require.NoError(t, s.Login(context.Background(), models.LoginForm{LoginType: models.LoginTypeLocal, FilePath: p}))
	return s
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	err := New(nil).Login(ctx, models.LoginForm{})
	assert.ErrorIs(t, err, common.ErrMalformedEndpoint)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o600))
	err = New(nil).Login(ctx, models.LoginForm{FilePath: bad})
	assert.ErrorIs(t, err, common.ErrMalformedEndpoint)

	p := filepath.Join(t.TempDir(), "nested", "vault.json")
	loggedIn(t, p)
	_, err = os.Stat(p)
	require.NoError(t, err, "file created on login")
}

func TestNotLoggedIn(t *testing.T) {
	_, _, err := New(nil).Read(context.Background(), common.BlobStore)
	assert.ErrorIs(t, err, common.ErrAuth)
}

func TestReadWriteRemove(t *testing.T) {
	ctx := context.Background()
	p := filepath.Join(t.TempDir(), "vault.json")
	s := loggedIn(t, p)

	content, tag, err := s.Read(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Empty(t, tag)

	_, err = s.Write(ctx, common.BlobStore, `{"passwordData":"x"}`)
	require.NoError(t, err)
	_, err = s.Write(ctx, common.BlobSetting, `{"sortField":"title"}`)
	require.NoError(t, err)

	raw, err := os.ReadFile(p)
	require.NoError(t, err)
	var doc document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, `{"passwordData":"x"}`, doc.StoreData)
	assert.Equal(t, `{"sortField":"title"}`, doc.SettingData)
	assert.Equal(t, common.AppName, doc.Info.App)

	reopened := loggedIn(t, p)
	content, _, err = reopened.Read(ctx, common.BlobSetting)
	require.NoError(t, err)
	assert.Equal(t, `{"sortField":"title"}`, content)

	require.NoError(t, s.Remove(ctx, common.BlobStore))
	require.NoError(t, s.Remove(ctx, common.BlobStore))
	content, _, err = s.Read(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Empty(t, content)

	content, _, err = s.Read(ctx, common.BlobSetting)
	require.NoError(t, err)
	assert.NotEmpty(t, content, "other fields untouched")
}

func TestUnsupported(t *testing.T) {
	ctx := context.Background()
	s := loggedIn(t, filepath.Join(t.TempDir(), "vault.json"))

	assert.Equal(t, storage.Capabilities{}, s.Capabilities())

	_, _, err := s.Read(ctx, common.BlobNote)
	assert.ErrorIs(t, err, common.ErrUnsupported)
	_, err = s.Write(ctx, common.BlobNote, "x")
	assert.ErrorIs(t, err, common.ErrUnsupported)
	_, err = s.UploadBinary(ctx, []byte("x"), "a.png", "note")
	assert.ErrorIs(t, err, common.ErrUnsupported)

	tag, err := s.Tag(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Empty(t, tag)
}
