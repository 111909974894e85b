// Package private talks to the password-xl blob server over its bearer
// token REST API.
package private

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/peng0105/password-xl/internal/api"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/logging"
)

// Storage is the private server backend.
type Storage struct {
	httpClient *http.Client
	logger     logging.Logger

	mu        sync.RWMutex
	serverURL string
	token     string
}

var _ storage.Adapter = (*Storage)(nil)

func New(logger logging.Logger) *Storage {
	return &Storage{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logging.OrDiscard(logger).With("module", "private_storage"),
	}
}

func (s *Storage) Login(ctx context.Context, form models.LoginForm) error {
	serverURL := strings.TrimRight(strings.TrimSpace(form.ServerURL), "/")
	if serverURL == "" {
		return storage.NewError(common.ErrMalformedEndpoint, "server address required", nil)
	}
	if u, err := url.Parse(serverURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return storage.NewError(common.ErrMalformedEndpoint, "invalid server address", err)
	}

	var token string
	req := api.LoginRequest{Username: form.Username, Password: form.Password}
	if err := s.call(ctx, serverURL, "", api.PathLogin, req, &token); err != nil {
		s.logger.Warn(ctx, "login failed", "server", serverURL, "error", storage.UserMessage(err))
		return err
	}

	s.mu.Lock()
	s.serverURL = serverURL
	s.token = token
	s.mu.Unlock()
	return nil
}

func (s *Storage) session() (string, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", "", storage.NewError(common.ErrAuth, "not logged in", nil)
	}
	return s.serverURL, s.token, nil
}

func (s *Storage) Read(ctx context.Context, name string) (string, string, error) {
	base, token, err := s.session()
	if err != nil {
		return "", "", err
	}

	var data api.BlobData
	err = s.call(ctx, base, token, api.PathGet, api.KeyRequest{Key: storage.FileName(name)}, &data)
	if storage.IsNotFound(err) {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	return data.Content, formatTag(data.Etag), nil
}

func (s *Storage) Write(ctx context.Context, name, content string) (string, error) {
	base, token, err := s.session()
	if err != nil {
		return "", err
	}

	var data api.EtagData
	req := api.PutRequest{Key: storage.FileName(name), Content: content}
	if err := s.call(ctx, base, token, api.PathPut, req, &data); err != nil {
		return "", err
	}
	return formatTag(data.Etag), nil
}

func (s *Storage) Remove(ctx context.Context, name string) error {
	base, token, err := s.session()
	if err != nil {
		return err
	}

	err = s.call(ctx, base, token, api.PathDelete, api.KeyRequest{Key: storage.FileName(name)}, nil)
	if err != nil && !storage.IsNotFound(err) {
		return err
	}
	return nil
}

func (s *Storage) Tag(ctx context.Context, name string) (string, error) {
	base, token, err := s.session()
	if err != nil {
		return "", err
	}

	var data *api.EtagData
	err = s.call(ctx, base, token, api.PathGetEtag, api.KeyRequest{Key: storage.FileName(name)}, &data)
	if storage.IsNotFound(err) || (err == nil && data == nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return formatTag(data.Etag), nil
}

// UploadBinary posts data as a multipart form and returns the server's
// object key.
func (s *Storage) UploadBinary(ctx context.Context, data []byte, fileName, prefix string) (string, error) {
	base, token, err := s.session()
	if err != nil {
		return "", err
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(api.UploadField, fileName)
	if err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+api.PathUploadImage+url.PathEscape(prefix), &body)
	if err != nil {
		return "", storage.Classify(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out api.UploadData
	if err := s.do(req, token, &out); err != nil {
		return "", err
	}
	return out.ObjectKey, nil
}

func (s *Storage) Capabilities() storage.Capabilities {
	return storage.Capabilities{Note: true, Binary: true, Versioning: true}
}

func formatTag(etag int64) string {
	if etag == 0 {
		return ""
	}
	return strconv.FormatInt(etag, 10)
}

func (s *Storage) call(ctx context.Context, base, token, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+path, bytes.NewReader(payload))
	if err != nil {
		return storage.Classify(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return s.do(req, token, out)
}

// do sends req and unwraps the envelope into out. Failures come back
// classified.
func (s *Storage) do(req *http.Request, token string, out any) error {
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return storage.Classify(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return storage.Classify(err)
	}

	var env api.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode != http.StatusOK {
			return storage.FromStatus(resp.StatusCode, "")
		}
		return storage.NewError(common.ErrServer, "unexpected server response", err)
	}

	if env.Code != api.CodeOK {
		return storage.FromStatus(env.Code, env.Message)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return storage.NewError(common.ErrServer, "unexpected server response", err)
		}
	}
	return nil
}
