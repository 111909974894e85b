// Package backend builds the storage adapter for a login type.
package backend

import (
	"fmt"

	"github.com/peng0105/password-xl/internal/client/models"
	"github.com/peng0105/password-xl/internal/client/storage"
	"github.com/peng0105/password-xl/internal/client/storage/bridge"
	"github.com/peng0105/password-xl/internal/client/storage/local"
	"github.com/peng0105/password-xl/internal/client/storage/memory"
	"github.com/peng0105/password-xl/internal/client/storage/private"
	"github.com/peng0105/password-xl/internal/client/storage/s3"
	"github.com/peng0105/password-xl/internal/client/storage/webdav"
	"github.com/peng0105/password-xl/internal/logging"
)

// New returns an adapter that is not logged in yet.
func New(loginType string, logger logging.Logger) (storage.Adapter, error) {
	switch loginType {
	case models.LoginTypeS3, models.LoginTypeOSS, models.LoginTypeCOS:
		return s3.New(logger), nil
	case models.LoginTypePrivate:
		return private.New(logger), nil
	case models.LoginTypeWebDAV:
		return webdav.New(logger), nil
	case models.LoginTypeLocal:
		return local.New(logger), nil
	case models.LoginTypeBridge:
		return bridge.New(logger), nil
	case models.LoginTypeMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown backend %q", loginType)
}
