package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/peng0105/password-xl/internal/api"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/server/config"
	"github.com/peng0105/password-xl/internal/server/repositories/repomanager"
	"github.com/peng0105/password-xl/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	m := &repomanager.SQLiteRepositoryManager{}
	require.NoError(t, m.RunMigrations(ctx, db))

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.MaxBlobSize = 1024
	cfg.MaxImageSize = 64
	for _, name := range []string{"alice", "bob"} {
		h, err := bcrypt.GenerateFromPassword([]byte("pw-"+name), bcrypt.MinCost)
		require.NoError(t, err)
		cfg.Users = append(cfg.Users, name+":"+string(h))
	}

	us, err := services.NewUserService(cfg)
	require.NoError(t, err)
	srv := NewHTTPServer(cfg, nil, us, services.NewBlobService(db, m, cfg), services.NewImageService(db, m, cfg))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testServer{Server: ts}
}

// post sends a JSON body and decodes the envelope.
func (ts *testServer) post(t *testing.T, token, path string, body any) (int, api.Envelope) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(raw))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	return ts.do(t, token, req)
}

func (ts *testServer) do(t *testing.T, token string, req *http.Request) (int, api.Envelope) {
	t.Helper()
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env api.Envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func (ts *testServer) login(t *testing.T, name string) string {
	t.Helper()
	_, env := ts.post(t, "", api.PathLogin, api.LoginRequest{Username: name, Password: "pw-" + name})
	require.Equal(t, api.CodeOK, env.Code, env.Message)

	var token string
	require.NoError(t, json.Unmarshal(env.Data, &token))
	return token
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	assert.NotEmpty(t, ts.login(t, "alice"))

	status, env := ts.post(t, "", api.PathLogin, api.LoginRequest{Username: "alice", Password: "nope"})
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, api.CodeUnauthorized, env.Code)

	_, env = ts.post(t, "", api.PathLogin, "not an object")
	assert.Equal(t, api.CodeBadRequest, env.Code)
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	for _, token := range []string{"", "forged"} {
		status, env := ts.post(t, token, api.PathGet, api.KeyRequest{Key: "store.json"})
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.Equal(t, api.CodeUnauthorized, env.Code)
		assert.Equal(t, "not logged in", env.Message)
	}
}

func TestBlobLifecycle(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice")
	bob := ts.login(t, "bob")
	key := api.KeyRequest{Key: "store.json"}

	_, env := ts.post(t, alice, api.PathGetEtag, key)
	assert.Equal(t, api.CodeOK, env.Code)
	assert.Empty(t, env.Data, "no tag for a missing blob")

	_, env = ts.post(t, alice, api.PathGet, key)
	assert.Equal(t, api.CodeNotFound, env.Code)
	assert.Equal(t, "content not found", env.Message)

	_, env = ts.post(t, alice, api.PathPut, api.PutRequest{Key: "store.json", Content: "cipher"})
	require.Equal(t, api.CodeOK, env.Code)
	var put api.EtagData
	require.NoError(t, json.Unmarshal(env.Data, &put))
	assert.Positive(t, put.Etag)

	_, env = ts.post(t, alice, api.PathGet, key)
	var blob api.BlobData
	require.NoError(t, json.Unmarshal(env.Data, &blob))
	assert.Equal(t, api.BlobData{Etag: put.Etag, Content: "cipher"}, blob)

	_, env = ts.post(t, alice, api.PathGetEtag, key)
	var tag api.EtagData
	require.NoError(t, json.Unmarshal(env.Data, &tag))
	assert.Equal(t, put.Etag, tag.Etag)

	_, env = ts.post(t, bob, api.PathGet, key)
	assert.Equal(t, api.CodeNotFound, env.Code, "bob has his own namespace")

	_, env = ts.post(t, alice, api.PathDelete, key)
	assert.Equal(t, api.CodeOK, env.Code)
	_, env = ts.post(t, alice, api.PathDelete, key)
	assert.Equal(t, api.CodeOK, env.Code, "delete of a missing blob succeeds")

	_, env = ts.post(t, alice, api.PathGet, api.KeyRequest{Key: "../bob/store.json"})
	assert.Equal(t, api.CodeBadRequest, env.Code)
}

func TestPut_TooLarge(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice")

	_, env := ts.post(t, alice, api.PathPut, api.PutRequest{Key: "store.json", Content: strings.Repeat("a", 2048)})
	assert.Equal(t, api.CodeTooLarge, env.Code)
}

func upload(t *testing.T, ts *testServer, token, prefix, name string, data []byte) (int, api.Envelope) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(api.UploadField, name)
	require.NoError(t, err)
	_, _ = part.Write(data)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, ts.URL+api.PathUploadImage+prefix, &body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return ts.do(t, token, req)
}

func TestImages(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.login(t, "alice")
	bob := ts.login(t, "bob")

	_, env := upload(t, ts, alice, "note", "cat.png", []byte("png-bytes"))
	require.Equal(t, api.CodeOK, env.Code, env.Message)
	var up api.UploadData
	require.NoError(t, json.Unmarshal(env.Data, &up))
	assert.True(t, strings.HasPrefix(up.ObjectKey, "/alice/images/note/"))

	get := func(token string) *http.Response {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/image"+up.ObjectKey, nil)
		require.NoError(t, err)
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
		resp, err := ts.Client().Do(req)
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	resp := get(alice)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	data, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "png-bytes", string(data))

	assert.Equal(t, http.StatusNotFound, get(bob).StatusCode)

	_, env = upload(t, ts, alice, "no-te", "cat.png", []byte("x"))
	assert.Equal(t, api.CodeBadRequest, env.Code)
	_, env = upload(t, ts, alice, "note", "cat.exe", []byte("x"))
	assert.Equal(t, api.CodeBadRequest, env.Code)
	_, env = upload(t, ts, alice, "note", "big.png", bytes.Repeat([]byte("x"), 100))
	assert.Equal(t, api.CodeTooLarge, env.Code)
}

func TestCORS(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+api.PathPut, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://vault.example")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode, "preflight skips auth")
	assert.Equal(t, "https://vault.example", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	status, env := ts.post(t, ts.login(t, "alice"), "/nope", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, api.CodeNotFound, env.Code)
}
