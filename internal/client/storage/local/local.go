// Package local keeps the whole vault in one JSON file on disk:
//
//	{"info": {...}, "storeData": "...", "settingData": "..."}
//
// The file has no version tags, no note and no attachments.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/filex"
	"github.com/peng0105/password-xl/internal/logging"
)

const fileVersion = 1

type fileInfo struct {
	App        string `json:"app"`
	Version    int    `json:"version"`
	UpdateTime int64  `json:"updateTime"`
}

type document struct {
	Info        fileInfo `json:"info"`
	StoreData   string   `json:"storeData"`
	SettingData string   `json:"settingData"`
}

// field returns the slot of doc that holds name.
func (d *document) field(name string) (*string, error) {
	switch name {
	case common.BlobStore:
		return &d.StoreData, nil
	case common.BlobSetting:
		return &d.SettingData, nil
	case common.BlobNote:
		return nil, storage.Require(false, "note")
	}
	return nil, storage.NewError(common.ErrNotFound, fmt.Sprintf("unknown blob %q", name), nil)
}

// Storage is the local file backend.
type Storage struct {
	logger logging.Logger

	mu   sync.Mutex
	path string
}

var _ storage.Adapter = (*Storage)(nil)

func New(logger logging.Logger) *Storage {
	return &Storage{logger: logging.OrDiscard(logger).With("module", "local_storage")}
}

// Login opens the vault file, creating an empty one when it does not exist.
func (s *Storage) Login(ctx context.Context, form models.LoginForm) error {
	p := strings.TrimSpace(form.FilePath)
	if p == "" {
		return storage.NewError(common.ErrMalformedEndpoint, "vault file path required", nil)
	}
	p, err := filepath.Abs(p)
	if err != nil {
		return storage.NewError(common.ErrMalformedEndpoint, "invalid vault file path", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := load(p); err != nil {
		s.logger.Warn(ctx, "cannot open vault file", "path", p, "error", storage.UserMessage(err))
		return err
	}
	if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
		if _, err := filex.EnsureDir(filepath.Dir(p)); err != nil {
			return classify(err)
		}
		if err := save(p, &document{}); err != nil {
			return err
		}
		s.logger.Info(ctx, "vault file created", "path", p)
	}

	s.path = p
	return nil
}

func (s *Storage) Read(ctx context.Context, name string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.open()
	if err != nil {
		return "", "", err
	}
	slot, err := doc.field(name)
	if err != nil {
		return "", "", err
	}
	return *slot, "", nil
}

func (s *Storage) Write(ctx context.Context, name, content string) (string, error) {
	return "", s.update(name, content)
}

// Remove clears the blob's field; the file itself stays.
func (s *Storage) Remove(ctx context.Context, name string) error {
	return s.update(name, "")
}

func (s *Storage) Tag(ctx context.Context, name string) (string, error) {
	return "", nil
}

func (s *Storage) UploadBinary(ctx context.Context, data []byte, fileName, prefix string) (string, error) {
	return "", storage.Require(false, "image upload")
}

func (s *Storage) Capabilities() storage.Capabilities {
	return storage.Capabilities{}
}

func (s *Storage) update(name, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.open()
	if err != nil {
		return err
	}
	slot, err := doc.field(name)
	if err != nil {
		return err
	}
	*slot = content
	return save(s.path, doc)
}

func (s *Storage) open() (*document, error) {
	if s.path == "" {
		return nil, storage.NewError(common.ErrAuth, "not logged in", nil)
	}
	return load(s.path)
}

// load reads the file at p. A missing file is an empty document.
func load(p string) (*document, error) {
	raw, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return &document{}, nil
	}
	if err != nil {
		return nil, classify(err)
	}

	var doc document
	if len(strings.TrimSpace(string(raw))) == 0 {
		return &doc, nil
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, storage.NewError(common.ErrMalformedEndpoint, "vault file is not a password-xl file", err)
	}
	return &doc, nil
}

func save(p string, doc *document) error {
	doc.Info = fileInfo{App: common.AppName, Version: fileVersion, UpdateTime: common.NowMillis()}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode vault file: %w", err)
	}
	if err := filex.WriteFileAtomic(p, raw, 0o600); err != nil {
		return classify(err)
	}
	return nil
}

func classify(err error) error {
	if errors.Is(err, fs.ErrPermission) {
		return storage.NewError(common.ErrPermission, "no access to the vault file", err)
	}
	return storage.NewError(common.ErrTransport, "vault file is not accessible", err)
}
