// Package storage defines the contract every remote backend implements and
// the error classification they share.
//
// A backend stores whole named blobs. Reading a blob that was never written
// is not an error: it yields empty content. Writes replace the blob and
// return the new version tag. Removing an absent blob succeeds.
//
// Optional capabilities (note blob, binary upload, version tags) are
// advertised through Capabilities; calling one a backend lacks returns an
// error matching common.ErrUnsupported.
package storage

import (
	"context"
	"path"
	"strings"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/common"
)

// Capabilities lists the optional operations a backend supports.
type Capabilities struct {
	Note       bool
	Binary     bool
	Versioning bool
}

// Adapter is a remote blob store.
type Adapter interface {
	// Login validates the form and prepares the client. Invalid credentials
	// produce a classified *Error.
	Login(ctx context.Context, form models.LoginForm) error

	// Read returns the blob content and its version tag. An absent blob
	// yields "", "" and no error.
	Read(ctx context.Context, name string) (content string, tag string, err error)

	// Write replaces the blob and returns its new version tag, which may be
	// empty when the backend cannot report one cheaply.
	Write(ctx context.Context, name, content string) (tag string, err error)

	// Remove deletes the blob. Removing an absent blob succeeds.
	Remove(ctx context.Context, name string) error

	// Tag performs a metadata-only read of the blob's version tag. An absent
	// blob yields "".
	Tag(ctx context.Context, name string) (string, error)

	// UploadBinary stores an attachment under a namespaced, randomly
	// suffixed key and returns a URL or key the caller can resolve later.
	UploadBinary(ctx context.Context, data []byte, fileName, prefix string) (string, error)

	Capabilities() Capabilities
}

// Require returns an Unsupported error when ok is false.
func Require(ok bool, op string) error {
	if ok {
		return nil
	}
	return NewError(common.ErrUnsupported, op+" is not supported by this storage", nil)
}

// FileName maps a logical blob name to its file name.
func FileName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".json"
}

// Ext returns the lowercased extension of fileName without the dot, or def.
func Ext(fileName, def string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(strings.TrimSpace(fileName))), ".")
	if ext == "" {
		return def
	}
	return ext
}
