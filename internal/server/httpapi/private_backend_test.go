package httpapi

import (
	"context"
	"testing"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage/private"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The client backend and the server agree on the wire format.
func TestPrivateBackendAgainstServer(t *testing.T) {
	ctx := context.Background()
	ts := newTestServer(t)

	s := private.New(nil)
	err := s.Login(ctx, models.LoginForm{ServerURL: ts.URL, Username: "alice", Password: "wrong"})
	assert.ErrorIs(t, err, common.ErrAuth)
	require.NoError(t, s.Login(ctx, models.LoginForm{ServerURL: ts.URL, Username: "alice", Password: "pw-alice"}))

	content, tag, err := s.Read(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Empty(t, tag)

	written, err := s.Write(ctx, common.BlobStore, "cipher")
	require.NoError(t, err)
	require.NotEmpty(t, written)

	content, tag, err = s.Read(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Equal(t, "cipher", content)
	assert.Equal(t, written, tag)

	current, err := s.Tag(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Equal(t, written, current)

	again, err := s.Write(ctx, common.BlobStore, "cipher2")
	require.NoError(t, err)
	assert.NotEqual(t, written, again)

	key, err := s.UploadBinary(ctx, []byte("gif"), "a.gif", "note")
	require.NoError(t, err)
	assert.Contains(t, key, "/alice/images/note/")

	_, err = s.UploadBinary(ctx, []byte("x"), "a.txt", "note")
	assert.Error(t, err, "unsupported type")

	require.NoError(t, s.Remove(ctx, common.BlobStore))
	require.NoError(t, s.Remove(ctx, common.BlobStore))
	current, err = s.Tag(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Empty(t, current)
}
