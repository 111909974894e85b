package vault

import (
	"context"
	"fmt"

	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/common"
)

// LoadNote reads the plaintext note blob. Backends without note storage
// return common.ErrUnsupported.
func (s *Session) LoadNote(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return "", err
	}
	if err := storage.Require(s.guard.Adapter().Capabilities().Note, "note"); err != nil {
		return "", err
	}

	note, err := s.guard.Read(ctx, common.BlobNote)
	if err != nil {
		return "", fmt.Errorf("load note: %w", err)
	}
	return note, nil
}

// SyncNote writes the note blob.
func (s *Session) SyncNote(ctx context.Context, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	if err := storage.Require(s.guard.Adapter().Capabilities().Note, "note"); err != nil {
		return err
	}

	if err := s.guard.Write(ctx, common.BlobNote, content); err != nil {
		return fmt.Errorf("sync note: %w", err)
	}
	return nil
}

// UploadImage stores an attachment and returns its key or URL.
func (s *Session) UploadImage(ctx context.Context, data []byte, fileName, prefix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return "", err
	}
	a := s.guard.Adapter()
	if err := storage.Require(a.Capabilities().Binary, "upload"); err != nil {
		return "", err
	}

	key, err := a.UploadBinary(ctx, data, fileName, prefix)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	s.logger.Debug(ctx, "image uploaded", "prefix", prefix, "bytes", len(data))
	return key, nil
}
