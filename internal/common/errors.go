package common

import "errors"

var (

	// storage specific errors
	ErrAuth              = errors.New("authentication failed")
	ErrPermission        = errors.New("permission denied")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("remote data changed elsewhere, reload required")
	ErrTransport         = errors.New("remote unreachable")
	ErrMalformedEndpoint = errors.New("malformed endpoint")
	ErrServer            = errors.New("server error")
	ErrUnsupported       = errors.New("unsupported operation")

	// crypto specific errors
	ErrDecrypt = errors.New("decryption failed")

	// vault specific errors
	ErrInvalidState  = errors.New("operation not allowed in current state")
	ErrEntryNotFound = errors.New("entry not found")
	ErrLabelNotFound = errors.New("label not found")
	ErrSecretExists  = errors.New("main secret already exists")
	ErrWrongSecret   = errors.New("wrong main secret")

	// server specific errors
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")
	ErrBadRequest     = errors.New("bad request")
	ErrTooLarge       = errors.New("payload too large")
)
