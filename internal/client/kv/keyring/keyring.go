// Package keyring stores values in the OS secret store.
package keyring

import (
	"context"
	"errors"
	"fmt"

	"github.com/peng0105/password-xl/internal/client/kv"
	"github.com/zalando/go-keyring"
)

const serviceName = "password-xl"

// Storage is a kv.Store over the OS keyring. Keys become keyring users
// under one service.
type Storage struct {
	service string
}

var _ kv.Store = (*Storage)(nil)

func New() *Storage {
	return &Storage{service: serviceName}
}

func (s *Storage) Get(_ context.Context, key string) (string, bool, error) {
	v, err := keyring.Get(s.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("keyring get %q: %w", key, err)
	}
	return v, true, nil
}

func (s *Storage) Set(_ context.Context, key, value string) error {
	if err := keyring.Set(s.service, key, value); err != nil {
		return fmt.Errorf("keyring set %q: %w", key, err)
	}
	return nil
}

func (s *Storage) Delete(_ context.Context, key string) error {
	err := keyring.Delete(s.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %q: %w", key, err)
	}
	return nil
}
