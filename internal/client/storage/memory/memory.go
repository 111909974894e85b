// Package memory is an in-process storage backend. The CLI uses it for demos
// and the engine tests use it to simulate other sessions and failures.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
)

type blob struct {
	content string
	version int64
}

// Store keeps blobs in a map. The zero value is not usable; call New.
type Store struct {
	mu      sync.Mutex
	blobs   map[string]blob
	images  map[string][]byte
	version int64
	fail    map[string]error
	caps    storage.Capabilities
}

var _ storage.Adapter = (*Store)(nil)

func New() *Store {
	return &Store{
		blobs:  make(map[string]blob),
		images: make(map[string][]byte),
		fail:   make(map[string]error),
		caps:   storage.Capabilities{Note: true, Binary: true, Versioning: true},
	}
}

// WithCapabilities overrides the advertised capabilities.
func (s *Store) WithCapabilities(c storage.Capabilities) *Store {
	s.caps = c
	return s
}

// FailOn makes every later call of op ("login", "read", "write", "remove",
// "tag", "upload") return err. A nil err clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Touch rewrites a blob as another session would, changing its tag.
func (s *Store) Touch(name, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(name, content)
}

// Content returns a blob without recording anything.
func (s *Store) Content(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[name]
	return b.content, ok
}

// Image returns an uploaded attachment.
func (s *Store) Image(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.images[key]
	return b, ok
}

func (s *Store) put(name, content string) string {
	s.version++
	s.blobs[name] = blob{content: content, version: s.version}
	return strconv.FormatInt(s.version, 10)
}

func (s *Store) failure(op string) error {
	if err, ok := s.fail[op]; ok {
		return storage.Classify(err)
	}
	return nil
}

func (s *Store) Login(ctx context.Context, form models.LoginForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failure("login")
}

func (s *Store) Read(ctx context.Context, name string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return "", "", err
	}
	if err := s.failure("read"); err != nil {
		return "", "", err
	}
	b, ok := s.blobs[name]
	if !ok {
		return "", "", nil
	}
	return b.content, strconv.FormatInt(b.version, 10), nil
}

func (s *Store) Write(ctx context.Context, name, content string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(name); err != nil {
		return "", err
	}
	if err := s.failure("write"); err != nil {
		return "", err
	}
	return s.put(name, content), nil
}

func (s *Store) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("remove"); err != nil {
		return err
	}
	delete(s.blobs, name)
	return nil
}

func (s *Store) Tag(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("tag"); err != nil {
		return "", err
	}
	b, ok := s.blobs[name]
	if !ok {
		return "", nil
	}
	return strconv.FormatInt(b.version, 10), nil
}

func (s *Store) UploadBinary(ctx context.Context, data []byte, fileName, prefix string) (string, error) {
	if err := storage.Require(s.caps.Binary, "image upload"); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("upload"); err != nil {
		return "", err
	}
	key := fmt.Sprintf("/images/%s/%s.%s", prefix, uuid.NewString(), storage.Ext(fileName, "png"))
	s.images[key] = append([]byte(nil), data...)
	return key, nil
}

func (s *Store) Capabilities() storage.Capabilities {
	return s.caps
}

func (s *Store) check(name string) error {
	if name == common.BlobNote {
		return storage.Require(s.caps.Note, "note storage")
	}
	return nil
}
