// Package vault is the session state machine of the client.
//
// A Session owns the decrypted entries and labels between unlock and lock,
// and is the only writer of the store blob. Every mutation is followed by a
// full rewrite of the snapshot through the conflict guard; a refused write
// comes back as an error matching common.ErrConflict (see IsStale).
//
// Operations hold the session mutex for their whole duration, network calls
// included, so one Session never runs two operations at once.
package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/peng0105/password-xl/internal/client/conflict"
	"github.com/peng0105/password-xl/internal/client/labels"
	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/codec"
	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/cryptox"
	"github.com/peng0105/password-xl/internal/logging"
)

type Session struct {
	mu       sync.Mutex
	logger   logging.Logger
	guard    *conflict.Guard
	observer Observer
	now      func() time.Time

	state   State
	store   models.StoreData
	setting models.Setting

	secret     string
	secretType models.MainPasswordType
	entries    []models.Entry
	tree       *labels.Tree
}

// New creates a session over a backend. The backend is logged in by Login.
func New(adapter storage.Adapter, logger logging.Logger, opts ...Option) *Session {
	logger = logging.OrDiscard(logger)
	s := &Session{
		logger:  logger.With("module", "vault"),
		guard:   conflict.New(adapter, logger),
		now:     time.Now,
		setting: models.DefaultSetting(),
		tree:    labels.FromLabels(nil),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// IsStale reports whether err means the remote vault changed and the
// session must reload before writing again.
func IsStale(err error) bool {
	return errors.Is(err, common.ErrConflict)
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SecretType returns the declared main secret type of the loaded vault.
func (s *Session) SecretType() models.MainPasswordType {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.MainPasswordType
}

// Setting returns a copy of the current settings.
func (s *Session) Setting() models.Setting {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setting
}

// StoreData returns the encrypted snapshot as last read or written.
func (s *Session) StoreData() models.StoreData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store
}

// Adapter returns the backend of the session.
func (s *Session) Adapter() storage.Adapter {
	return s.guard.Adapter()
}

func (s *Session) require(states ...State) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", common.ErrInvalidState, s.state)
}

// Login logs the backend in and loads the store and setting blobs. It leaves
// the session in Logged when a vault exists and in WaitInit otherwise.
func (s *Session) Login(ctx context.Context, form models.LoginForm) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(NoLogin); err != nil {
		return err
	}

	if err := s.guard.Adapter().Login(ctx, form); err != nil {
		s.logger.Warn(ctx, "storage login failed", "type", form.LoginType, "error", storage.UserMessage(err))
		return err
	}

	raw, err := s.guard.Read(ctx, common.BlobStore)
	if err != nil {
		return fmt.Errorf("load vault: %w", err)
	}
	var store models.StoreData
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &store); err != nil {
			return fmt.Errorf("load vault: %w", err)
		}
	}

	setting, err := s.readSetting(ctx)
	if err != nil {
		return err
	}

	s.store = store
	s.setting = setting
	if store.PasswordData != "" {
		s.state = Logged
	} else {
		s.state = WaitInit
	}

	s.logger.Info(ctx, "logged in", "type", form.LoginType, "state", s.state)
	return nil
}

func (s *Session) readSetting(ctx context.Context) (models.Setting, error) {
	setting := models.DefaultSetting()

	raw, err := s.guard.Read(ctx, common.BlobSetting)
	if err != nil {
		return setting, fmt.Errorf("load settings: %w", err)
	}
	if raw == "" {
		return setting, nil
	}
	if err := json.Unmarshal([]byte(raw), &setting); err != nil {
		// a broken setting blob must not lock the user out
		s.logger.Warn(ctx, "settings unreadable, using defaults", "error", err)
		return models.DefaultSetting(), nil
	}
	return setting, nil
}

// InitMainSecret creates the vault on a backend that has none and unlocks
// it. A demo label and entry are added for onboarding.
func (s *Session) InitMainSecret(ctx context.Context, secretType models.MainPasswordType, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store.PasswordData != "" {
		return common.ErrSecretExists
	}
	if err := s.require(WaitInit); err != nil {
		return err
	}
	if !secretType.Valid() || secret == "" {
		return fmt.Errorf("%w: main secret and type required", common.ErrInvalidState)
	}

	if err := s.persist(ctx, secret, secretType, nil, labels.FromLabels(nil)); err != nil {
		return err
	}
	if err := s.writeSetting(ctx); err != nil {
		// the vault exists now and opens with secret
		s.state = Logged
		s.logger.Warn(ctx, "settings not saved", "error", storage.UserMessage(err))
		return err
	}

	s.unlocked(ctx, secret, secretType, nil, labels.FromLabels(nil))
	s.logger.Info(ctx, "vault initialized", "type", secretType)

	s.addDemoData()
	return s.resync(ctx)
}

// VerifySecret reports whether secret opens the stored vault.
func (s *Session) VerifySecret(secret string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.PasswordData != "" && cryptox.CheckSecret(secret, s.store.PasswordData)
}

// Unlock decrypts the vault. A wrong secret leaves the session in Logged.
func (s *Session) Unlock(ctx context.Context, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Logged); err != nil {
		return err
	}

	entries, tree, err := open(secret, s.store)
	if err != nil {
		s.logger.Info(ctx, "unlock refused")
		return err
	}

	s.unlocked(ctx, secret, s.store.MainPasswordType, entries, tree)
	s.logger.Info(ctx, "vault unlocked", "entries", len(entries), "labels", tree.Len())
	return nil
}

func (s *Session) unlocked(ctx context.Context, secret string, secretType models.MainPasswordType, entries []models.Entry, tree *labels.Tree) {
	s.secret = secret
	s.secretType = secretType
	s.entries = entries
	s.tree = tree
	s.state = Unlocked

	if s.observer != nil {
		if err := s.observer.OnUnlock(ctx, secret, secretType, s.setting); err != nil {
			s.logger.Warn(ctx, "could not remember login", "error", err)
		}
	}
}

// open decrypts a snapshot.
func open(secret string, store models.StoreData) ([]models.Entry, *labels.Tree, error) {
	plain, err := cryptox.DecryptStrict(secret, store.PasswordData)
	if err != nil {
		return nil, nil, common.ErrWrongSecret
	}
	entries, err := codec.Unmarshal[models.Entry](plain)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", common.ErrWrongSecret, err)
	}

	var list []models.Label
	if store.LabelData != "" {
		plain, err := cryptox.DecryptStrict(secret, store.LabelData)
		if err != nil {
			return nil, nil, common.ErrWrongSecret
		}
		if err := json.Unmarshal([]byte(plain), &list); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", common.ErrWrongSecret, err)
		}
	}
	return entries, labels.FromLabels(list), nil
}

// Lock drops the decrypted vault and the secret. Outside Unlocked it does
// nothing.
func (s *Session) Lock(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Unlocked {
		return
	}
	s.clear()
	s.state = Logged
	s.logger.Info(ctx, "vault locked")
}

func (s *Session) clear() {
	s.secret = ""
	s.secretType = ""
	s.entries = nil
	s.tree = labels.FromLabels(nil)
}

// UpdateMainSecret re-encrypts the vault under a new secret. On failure the
// session keeps the old secret and snapshot.
func (s *Session) UpdateMainSecret(ctx context.Context, oldSecret string, newType models.MainPasswordType, newSecret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	if !cryptox.CheckSecret(oldSecret, s.store.PasswordData) {
		return common.ErrWrongSecret
	}
	if !newType.Valid() || newSecret == "" {
		return fmt.Errorf("%w: main secret and type required", common.ErrInvalidState)
	}

	backup := s.store
	if err := s.persist(ctx, newSecret, newType, s.entries, s.tree); err != nil {
		s.store = backup
		s.logger.Warn(ctx, "main secret not changed", "error", storage.UserMessage(err))
		return err
	}

	s.secret = newSecret
	s.secretType = newType
	s.logger.Info(ctx, "main secret changed", "type", newType)

	if s.observer != nil {
		if err := s.observer.Rewrap(ctx, oldSecret, newSecret, newType); err != nil {
			s.logger.Warn(ctx, "remembered login not updated", "error", err)
		}
	}
	return nil
}

// Resync writes the whole snapshot.
func (s *Session) Resync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}
	return s.resync(ctx)
}

func (s *Session) resync(ctx context.Context) error {
	return s.persist(ctx, s.secret, s.secretType, s.entries, s.tree)
}

// persist encrypts entries and labels under secret and writes the store
// blob. s.store changes only when the write succeeds.
func (s *Session) persist(ctx context.Context, secret string, secretType models.MainPasswordType, entries []models.Entry, tree *labels.Tree) error {
	packed, err := codec.Marshal(entries)
	if err != nil {
		return fmt.Errorf("pack entries: %w", err)
	}
	labelJSON, err := json.Marshal(tree.Labels())
	if err != nil {
		return fmt.Errorf("encode labels: %w", err)
	}

	store := models.StoreData{
		PasswordData:     cryptox.Encrypt(secret, packed),
		LabelData:        cryptox.Encrypt(secret, string(labelJSON)),
		MainPasswordType: secretType,
	}
	raw, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}

	if err := s.guard.Write(ctx, common.BlobStore, string(raw)); err != nil {
		if IsStale(err) {
			s.logger.Warn(ctx, "vault changed elsewhere, reload required")
		}
		return fmt.Errorf("sync vault: %w", err)
	}

	s.store = store
	s.logger.Debug(ctx, "vault synced", "entries", len(entries), "bytes", len(raw))
	return nil
}

// Reload discards the local snapshot, reads the store blob again and, when
// the session was unlocked, reopens it with the held secret. It is the way
// out of a conflict.
func (s *Session) Reload(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Logged, WaitInit, Unlocked); err != nil {
		return err
	}

	// a failed reload keeps the previous tags
	prev := s.guard.Snapshot()
	s.guard.Reset()
	raw, err := s.guard.Read(ctx, common.BlobStore)
	if err != nil {
		s.guard.Restore(prev)
		return fmt.Errorf("load vault: %w", err)
	}
	var store models.StoreData
	if raw != "" {
		if err := json.Unmarshal([]byte(raw), &store); err != nil {
			s.guard.Restore(prev)
			return fmt.Errorf("load vault: %w", err)
		}
	}
	setting, err := s.readSetting(ctx)
	if err != nil {
		s.guard.Restore(prev)
		return err
	}
	s.store = store
	s.setting = setting

	switch {
	case store.PasswordData == "":
		s.clear()
		s.state = WaitInit
	case s.state == Unlocked:
		entries, tree, err := open(s.secret, store)
		if err != nil {
			// the main secret was changed by another client
			s.clear()
			s.state = Logged
			return err
		}
		s.entries = entries
		s.tree = tree
		s.secretType = store.MainPasswordType
	default:
		s.state = Logged
	}

	s.logger.Info(ctx, "vault reloaded", "state", s.state)
	return nil
}

// SyncSettings writes the settings blob.
func (s *Session) SyncSettings(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Logged, WaitInit, Unlocked); err != nil {
		return err
	}
	return s.writeSetting(ctx)
}

// UpdateSettings applies fn to the settings and writes them.
func (s *Session) UpdateSettings(ctx context.Context, fn func(*models.Setting)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Logged, WaitInit, Unlocked); err != nil {
		return err
	}
	fn(&s.setting)
	return s.writeSetting(ctx)
}

func (s *Session) writeSetting(ctx context.Context) error {
	raw, err := json.Marshal(s.setting)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.guard.Write(ctx, common.BlobSetting, string(raw)); err != nil {
		return fmt.Errorf("sync settings: %w", err)
	}
	return nil
}

// CloseAccount deletes the vault and its settings from the backend and logs
// out. Failing to delete the settings is only logged.
func (s *Session) CloseAccount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.require(Unlocked); err != nil {
		return err
	}

	if err := s.guard.Remove(ctx, common.BlobStore); err != nil {
		return fmt.Errorf("delete vault: %w", err)
	}
	if err := s.guard.Remove(ctx, common.BlobSetting); err != nil {
		s.logger.Warn(ctx, "settings not deleted", "error", storage.UserMessage(err))
	}

	s.logger.Info(ctx, "account closed")
	s.logout(ctx)
	return nil
}

// Logout forgets everything the session holds, including remembered login
// data.
func (s *Session) Logout(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logout(ctx)
}

func (s *Session) logout(ctx context.Context) {
	s.clear()
	s.store = models.StoreData{}
	s.setting = models.DefaultSetting()
	s.guard.Reset()
	s.state = NoLogin

	if s.observer != nil {
		if err := s.observer.OnLogout(ctx); err != nil {
			s.logger.Warn(ctx, "remembered login not cleared", "error", err)
		}
	}
}
