package bridge

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/client/storage/memory"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const bufTarget = "passthrough:///bufnet"

func startHost(t *testing.T, backend storage.Adapter) *Storage {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- NewServer(backend, nil).Serve(ctx, lis)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	c := New(nil, WithDialOptions(grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func login(t *testing.T, c *Storage) {
	t.Helper()
	require.NoError(t, c.Login(context.Background(), models.LoginForm{LoginType: models.LoginTypeBridge, BridgeAddr: bufTarget}))
}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("no address", func(t *testing.T) {
		err := New(nil).Login(ctx, models.LoginForm{})
		assert.ErrorIs(t, err, common.ErrMalformedEndpoint)
	})

	t.Run("backend rejects", func(t *testing.T) {
		backend := memory.New()
		backend.FailOn("login", storage.NewError(common.ErrAuth, "wrong username or password", nil))
		c := startHost(t, backend)

		err := c.Login(ctx, models.LoginForm{BridgeAddr: bufTarget})
		require.ErrorIs(t, err, common.ErrAuth)
		assert.Equal(t, "wrong username or password", storage.UserMessage(err))
	})

	t.Run("capabilities reported", func(t *testing.T) {
		backend := memory.New().WithCapabilities(storage.Capabilities{Versioning: true})
		c := startHost(t, backend)
		login(t, c)
		assert.Equal(t, storage.Capabilities{Versioning: true}, c.Capabilities())
	})
}

func TestNotLoggedIn(t *testing.T) {
	_, _, err := New(nil).Read(context.Background(), common.BlobStore)
	assert.ErrorIs(t, err, common.ErrAuth)
}

func TestReadWriteRemove(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	c := startHost(t, backend)
	login(t, c)

	content, tag, err := c.Read(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Empty(t, tag)

	written, err := c.Write(ctx, common.BlobStore, "payload")
	require.NoError(t, err)
	assert.NotEmpty(t, written)

	got, ok := backend.Content(common.BlobStore)
	require.True(t, ok)
	assert.Equal(t, "payload", got)

	content, tag, err = c.Read(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Equal(t, "payload", content)
	assert.Equal(t, written, tag)

	backend.Touch(common.BlobStore, "elsewhere")
	remote, err := c.Tag(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.NotEqual(t, written, remote)

	require.NoError(t, c.Remove(ctx, common.BlobStore))
	_, ok = backend.Content(common.BlobStore)
	assert.False(t, ok)
}

func TestUploadBinary(t *testing.T) {
	ctx := context.Background()
	backend := memory.New()
	c := startHost(t, backend)
	login(t, c)

	key, err := c.UploadBinary(ctx, []byte{0, 1, 2, 255}, "a.jpg", "note")
	require.NoError(t, err)

	data, ok := backend.Image(key)
	require.True(t, ok)
	assert.Equal(t, []byte{0, 1, 2, 255}, data)
}

func TestErrorsKeepTheirKind(t *testing.T) {
	ctx := context.Background()
	backend := memory.New().WithCapabilities(storage.Capabilities{})
	c := startHost(t, backend)
	login(t, c)

	_, err := c.UploadBinary(ctx, []byte("x"), "a.png", "note")
	assert.ErrorIs(t, err, common.ErrUnsupported)

	_, _, err = c.Read(ctx, common.BlobNote)
	assert.ErrorIs(t, err, common.ErrUnsupported)

	backend.FailOn("write", storage.NewError(common.ErrPermission, "read only share", nil))
	_, err = c.Write(ctx, common.BlobStore, "x")
	require.ErrorIs(t, err, common.ErrPermission)
	assert.Equal(t, "read only share", storage.UserMessage(err))

	backend.FailOn("tag", errors.New("disk gone"))
	_, err = c.Tag(ctx, common.BlobStore)
	assert.ErrorIs(t, err, common.ErrTransport)
}

func TestSessionRequired(t *testing.T) {
	backend := memory.New()
	c := startHost(t, backend)
	login(t, c)

	c.mu.Lock()
	c.session = "forged"
	c.mu.Unlock()

	_, _, err := c.Read(context.Background(), common.BlobStore)
	assert.ErrorIs(t, err, common.ErrAuth)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		in   error
		want error
	}{
		{status.Error(codes.Unauthenticated, "x"), common.ErrAuth},
		{status.Error(codes.NotFound, "x"), common.ErrNotFound},
		{status.Error(codes.Unavailable, "connection error: desc = refused"), common.ErrTransport},
		{status.Error(codes.DeadlineExceeded, "x"), common.ErrTransport},
		{status.Error(codes.DataLoss, "x"), common.ErrServer},
	}
	for _, tt := range tests {
		assert.ErrorIs(t, fromStatus(tt.in), tt.want, tt.in.Error())
	}

	st, ok := status.FromError(toStatus(storage.NewError(common.ErrConflict, "changed", nil)))
	require.True(t, ok)
	assert.Equal(t, codes.Aborted, st.Code())
	assert.Equal(t, "changed", st.Message())
}
