package services

import (
	"fmt"
	"strings"

	"github.com/peng0105/password-xl/internal/common"
)

const maxKeyLength = 255

// validateKey accepts relative slash separated names made of letters,
// digits and "._-". Keys never climb out of the caller's namespace.
func validateKey(key string) error {
	if key == "" || len(key) > maxKeyLength {
		return fmt.Errorf("%w: key length", common.ErrBadRequest)
	}
	if strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("%w: key must be relative", common.ErrBadRequest)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return fmt.Errorf("%w: bad key segment %q", common.ErrBadRequest, seg)
		}
	}
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.', r == '_', r == '-', r == '/':
		default:
			return fmt.Errorf("%w: bad character %q in key", common.ErrBadRequest, r)
		}
	}
	return nil
}
