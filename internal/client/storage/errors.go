package storage

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/peng0105/password-xl/internal/common"
)

// Error is a classified storage failure. Kind is one of the common sentinel
// errors; Message is safe to show to the user.
type Error struct {
	Kind    error
	Message string
	Err     error
}

func NewError(kind error, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// UserMessage returns the message to show for err.
func UserMessage(err error) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Classify turns a transport-level error into a classified *Error.
// Already classified errors are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var se *Error
	if errors.As(err, &se) {
		return err
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(common.ErrTransport, "request timed out or was cancelled", err)
	}

	var ue *url.Error
	if errors.As(err, &ue) && (ue.Op == "parse" || strings.Contains(ue.Err.Error(), "unsupported protocol scheme")) {
		return NewError(common.ErrMalformedEndpoint, "invalid server address", err)
	}

	var ne net.Error
	var oe *net.OpError
	var de *net.DNSError
	if errors.As(err, &oe) || errors.As(err, &de) || errors.As(err, &ne) {
		return NewError(common.ErrTransport, "unable to connect to server", err)
	}

	return NewError(common.ErrTransport, "request failed", err)
}

// FromStatus classifies an HTTP status. It returns nil for 2xx.
func FromStatus(status int, message string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return NewError(common.ErrAuth, orDefault(message, "wrong username or password"), nil)
	case status == http.StatusForbidden:
		return NewError(common.ErrPermission, orDefault(message, "permission denied"), nil)
	case status == http.StatusNotFound:
		return NewError(common.ErrNotFound, orDefault(message, "not found"), nil)
	case status >= 500:
		return NewError(common.ErrServer, orDefault(message, "server error"), nil)
	default:
		return NewError(common.ErrServer, orDefault(message, http.StatusText(status)), nil)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// IsNotFound reports whether err is a classified NotFound.
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, common.ErrNotFound)
}
