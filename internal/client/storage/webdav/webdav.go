// Package webdav stores the vault on a WebDAV share with Basic auth.
package webdav

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/logging"
)

// DefaultRootPath is used when the login form has none.
const DefaultRootPath = "/" + common.AppName

const methodMkcol = "MKCOL"

// MKCOL answers meaning the collection already exists.
var mkcolTolerated = map[int]bool{
	http.StatusBadRequest:       true,
	http.StatusMethodNotAllowed: true,
	http.StatusConflict:         true,
	http.StatusMovedPermanently: true,
}

type account struct {
	serverURL string
	username  string
	password  string
	rootPath  string
}

// Storage is the WebDAV backend.
type Storage struct {
	httpClient *http.Client
	logger     logging.Logger

	mu  sync.RWMutex
	acc *account
}

var _ storage.Adapter = (*Storage)(nil)

func New(logger logging.Logger) *Storage {
	return &Storage{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.OrDiscard(logger).With("module", "webdav_storage"),
	}
}

// normalizePath makes p absolute and collapses repeated slashes.
func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}

func rootPath(p string) string {
	if strings.TrimSpace(p) == "" {
		return DefaultRootPath
	}
	return strings.TrimSuffix(normalizePath(strings.TrimSpace(p)), "/")
}

// fileName maps a blob to its path below the root. The note lives in a
// subdirectory, as other clients expect.
func fileName(name string) string {
	if name == common.BlobNote {
		return common.AppName + "/" + storage.FileName(name)
	}
	return storage.FileName(name)
}

// Login creates the root collection, which also proves the credentials.
func (s *Storage) Login(ctx context.Context, form models.LoginForm) error {
	serverURL := strings.TrimRight(strings.TrimSpace(form.ServerURL), "/")
	if serverURL == "" {
		return storage.NewError(common.ErrMalformedEndpoint, "server address required", nil)
	}
	if u, err := url.Parse(serverURL); err != nil || u.Host == "" {
		return storage.NewError(common.ErrMalformedEndpoint, "invalid server address", err)
	}

	acc := &account{
		serverURL: serverURL,
		username:  form.Username,
		password:  form.Password,
		rootPath:  rootPath(form.RootPath),
	}

	if err := s.ensureDirectory(ctx, acc, acc.rootPath); err != nil {
		s.logger.Warn(ctx, "webdav login failed", "server", serverURL, "error", storage.UserMessage(err))
		return err
	}
	if err := s.ensureDirectory(ctx, acc, acc.rootPath+"/"+common.AppName); err != nil {
		return err
	}

	s.mu.Lock()
	s.acc = acc
	s.mu.Unlock()
	return nil
}

func (s *Storage) account() (*account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.acc == nil {
		return nil, storage.NewError(common.ErrAuth, "not logged in", nil)
	}
	return s.acc, nil
}

func (s *Storage) Read(ctx context.Context, name string) (string, string, error) {
	acc, err := s.account()
	if err != nil {
		return "", "", err
	}

	resp, err := s.request(ctx, acc, http.MethodGet, acc.rootPath+"/"+fileName(name), nil, "")
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", "", nil
	}
	if err := statusError(resp); err != nil {
		return "", "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", storage.Classify(err)
	}
	return string(body), tagOf(resp.Header), nil
}

func (s *Storage) Write(ctx context.Context, name, content string) (string, error) {
	acc, err := s.account()
	if err != nil {
		return "", err
	}

	p := normalizePath(acc.rootPath + "/" + fileName(name))
	if err := s.ensureDirectory(ctx, acc, path.Dir(p)); err != nil {
		return "", err
	}

	resp, err := s.request(ctx, acc, http.MethodPut, p, strings.NewReader(content), "application/json;charset=utf-8")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return "", err
	}
	return tagOf(resp.Header), nil
}

func (s *Storage) Remove(ctx context.Context, name string) error {
	acc, err := s.account()
	if err != nil {
		return err
	}

	resp, err := s.request(ctx, acc, http.MethodDelete, acc.rootPath+"/"+fileName(name), nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return statusError(resp)
}

func (s *Storage) Tag(ctx context.Context, name string) (string, error) {
	acc, err := s.account()
	if err != nil {
		return "", err
	}

	resp, err := s.request(ctx, acc, http.MethodHead, acc.rootPath+"/"+fileName(name), nil, "")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if err := statusError(resp); err != nil {
		return "", err
	}
	return tagOf(resp.Header), nil
}

// UploadBinary stores data at <root>/images/<prefix>/<ts>-<rand>.<ext> and
// returns its URL.
func (s *Storage) UploadBinary(ctx context.Context, data []byte, fileName, prefix string) (string, error) {
	acc, err := s.account()
	if err != nil {
		return "", err
	}

	suffix, err := common.MakeRandHexString(6)
	if err != nil {
		return "", err
	}
	ext := storage.Ext(fileName, "png")
	p := normalizePath(fmt.Sprintf("%s/images/%s/%d-%s.%s", acc.rootPath, prefix, time.Now().UnixMilli(), suffix, ext))

	if err := s.ensureDirectory(ctx, acc, path.Dir(p)); err != nil {
		return "", err
	}

	contentType := mime.TypeByExtension("." + ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp, err := s.request(ctx, acc, http.MethodPut, p, bytes.NewReader(data), contentType)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return "", err
	}
	return acc.serverURL + p, nil
}

func (s *Storage) Capabilities() storage.Capabilities {
	return storage.Capabilities{Note: true, Binary: true, Versioning: true}
}

// ensureDirectory creates every collection on the way to dir.
func (s *Storage) ensureDirectory(ctx context.Context, acc *account, dir string) error {
	current := ""
	for _, segment := range strings.Split(normalizePath(dir), "/") {
		if segment == "" {
			continue
		}
		current += "/" + segment

		resp, err := s.request(ctx, acc, methodMkcol, current, nil, "")
		if err != nil {
			return err
		}
		resp.Body.Close()

		if mkcolTolerated[resp.StatusCode] {
			continue
		}
		if err := statusError(resp); err != nil {
			return err
		}
	}
	return nil
}

func (s *Storage) request(ctx context.Context, acc *account, method, p string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, acc.serverURL+normalizePath(p), body)
	if err != nil {
		return nil, storage.Classify(err)
	}
	req.SetBasicAuth(acc.username, acc.password)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, storage.Classify(err)
	}
	return resp, nil
}

func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return storage.FromStatus(resp.StatusCode, "")
}

func tagOf(h http.Header) string {
	if etag := strings.Trim(h.Get("ETag"), `"`); etag != "" {
		return etag
	}
	return h.Get("Last-Modified")
}
