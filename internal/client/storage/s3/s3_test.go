package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBucket = "vault"

type object struct {
	body        []byte
	etag        string
	contentType string
}

// fakeS3 answers path-style requests for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	version int
	deny    string
}

func (f *fakeS3) writeError(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message></Error>`, code, code)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")

	if f.deny != "" {
		f.writeError(w, http.StatusForbidden, f.deny)
		return
	}
	if bucket != testBucket {
		f.writeError(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	if key == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	obj, ok := f.objects[key]
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		if !ok {
			f.writeError(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		w.Header().Set("ETag", obj.etag)
		w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(obj.body)))
		w.Header().Set("Content-Type", obj.contentType)
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodGet {
			w.Write(obj.body)
		}
	case http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		f.version++
		etag := fmt.Sprintf(`"etag-%d"`, f.version)
		f.objects[key] = object{body: body, etag: etag, contentType: r.Header.Get("Content-Type")}
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
	case http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (f *fakeS3) setDeny(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deny = code
}

func (f *fakeS3) object(key string) (object, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.objects[key]
	return o, ok
}

func newFake(t *testing.T) (*fakeS3, models.LoginForm) {
	t.Helper()
	fake := &fakeS3{objects: make(map[string]object)}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	return fake, models.LoginForm{
		LoginType:       models.LoginTypeS3,
		Region:          "us-east-1",
		AccessKeyID:     "AKIDEXAMPLE",
		AccessKeySecret: "secret",
		Bucket:          testBucket,
		Endpoint:        srv.URL,
		PathStyle:       true,
	}
}

func loggedIn(t *testing.T) (*fakeS3, *Storage) {
	t.Helper()
	fake, form := newFake(t)
	s := New(nil)
	require.NoError(t, s.Login(context.Background(), form))
	return fake, s
}

func TestStorage_LoginValidation(t *testing.T) {
	ctx := context.Background()
	fake, form := newFake(t)

	missing := form
	missing.AccessKeySecret = ""
	assert.ErrorIs(t, New(nil).Login(ctx, missing), common.ErrAuth)

	wrongBucket := form
	wrongBucket.Bucket = "other"
	assert.ErrorIs(t, New(nil).Login(ctx, wrongBucket), common.ErrNotFound)

	fake.setDeny("InvalidAccessKeyId")
	assert.ErrorIs(t, New(nil).Login(ctx, form), common.ErrAuth)
}

func TestStorage_NotLoggedIn(t *testing.T) {
	_, _, err := New(nil).Read(context.Background(), common.BlobStore)
	assert.ErrorIs(t, err, common.ErrAuth)
}

func TestStorage_ReadWriteRemove(t *testing.T) {
	ctx := context.Background()
	fake, s := loggedIn(t)

	content, tag, err := s.Read(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Empty(t, tag)

	tag, err = s.Tag(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Empty(t, tag)

	written, err := s.Write(ctx, common.BlobStore, `{"passwordData":"x"}`)
	require.NoError(t, err)
	assert.Equal(t, "etag-1", written)

	obj, ok := fake.object("password-xl/store.json")
	require.True(t, ok)
	assert.Equal(t, `{"passwordData":"x"}`, string(obj.body))

	content, tag, err = s.Read(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Equal(t, `{"passwordData":"x"}`, content)
	assert.Equal(t, written, tag)

	remote, err := s.Tag(ctx, common.BlobStore)
	require.NoError(t, err)
	assert.Equal(t, written, remote)

	require.NoError(t, s.Remove(ctx, common.BlobStore))
	require.NoError(t, s.Remove(ctx, common.BlobStore))
	_, ok = fake.object("password-xl/store.json")
	assert.False(t, ok)
}

func TestStorage_ErrorCodes(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		code string
		want error
	}{
		{"InvalidAccessKeyId", common.ErrAuth},
		{"SignatureDoesNotMatch", common.ErrAuth},
		{"AccessDenied", common.ErrPermission},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			fake, s := loggedIn(t)
			fake.setDeny(tt.code)

			_, _, err := s.Read(ctx, common.BlobStore)
			assert.ErrorIs(t, err, tt.want)

			_, err = s.Write(ctx, common.BlobStore, "x")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestStorage_UploadBinary(t *testing.T) {
	fake, s := loggedIn(t)

	key, err := s.UploadBinary(context.Background(), []byte("GIF89a"), "a.gif", "note")
	require.NoError(t, err)
	assert.Regexp(t, `^password-xl/images/note/[0-9a-f-]{36}\.gif$`, key)

	obj, ok := fake.object(key)
	require.True(t, ok)
	assert.Equal(t, "image/gif", obj.contentType)
	assert.Equal(t, []byte("GIF89a"), obj.body)
}

func TestTagOf(t *testing.T) {
	etag := `"abc"`
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	assert.Equal(t, "abc", tagOf(&etag, &modified))
	assert.Equal(t, "Tue, 02 Jan 2024 03:04:05 GMT", tagOf(nil, &modified))
	assert.Empty(t, tagOf(nil, nil))
}
