// Package services contains server-side business logic. This file implements
// UserService, which checks the configured accounts and issues JWTs.
package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/peng0105/password-xl/internal/common"
	"github.com/peng0105/password-xl/internal/server/auth"
	"github.com/peng0105/password-xl/internal/server/config"
	"golang.org/x/crypto/bcrypt"
)

// Account names become the first segment of image keys.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// UserService authenticates the accounts listed in the server configuration.
type UserService struct {
	hashes           map[string][]byte
	dummy            []byte
	jwtSecret        []byte
	validityDuration time.Duration
}

// NewUserService parses cfg.Users ("name:bcrypt-hash" pairs).
func NewUserService(cfg *config.Config) (*UserService, error) {
	s := &UserService{
		hashes:           make(map[string][]byte, len(cfg.Users)),
		jwtSecret:        []byte(cfg.SecretKey),
		validityDuration: cfg.TokenValidityDuration,
	}
	for _, u := range cfg.Users {
		name, hash, ok := strings.Cut(u, ":")
		if !ok || !usernamePattern.MatchString(name) {
			return nil, fmt.Errorf("bad user entry %q", name)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("user %s: %w", name, err)
		}
		s.hashes[name] = []byte(hash)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("password-xl"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	s.dummy = dummy
	return s, nil
}

// Login checks the password and returns a bearer token. Unknown users and
// wrong passwords both give common.ErrorUnauthorized.
func (s *UserService) Login(_ context.Context, username, password string) (string, error) {
	hash, ok := s.hashes[username]
	if !ok {
		// keep the timing of unknown users close to known ones
		_ = bcrypt.CompareHashAndPassword(s.dummy, []byte(password))
		return "", common.ErrorUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", common.ErrorUnauthorized
	}

	token, err := auth.GenerateToken(username, s.jwtSecret, s.validityDuration)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Authenticate returns the account of a bearer token. Tokens of accounts
// removed from the configuration are rejected.
func (s *UserService) Authenticate(token string) (string, error) {
	username, err := auth.GetUsernameFromToken(token, s.jwtSecret)
	if err != nil {
		return "", err
	}
	if _, ok := s.hashes[username]; !ok {
		return "", common.ErrInvalidToken
	}
	return username, nil
}

// HashPassword returns the bcrypt hash to put in a "name:hash" user entry.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}
