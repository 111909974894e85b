package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/peng0105/password-xl/internal/api"
	"github.com/peng0105/password-xl/internal/common"
)

func writeEnvelope(w http.ResponseWriter, status, code int, message string, data any) {
	env := api.Envelope{Code: code, Message: message}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			status, env = http.StatusInternalServerError, api.Envelope{Code: api.CodeServerError, Message: "server error"}
		} else {
			env.Data = raw
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

func ok(w http.ResponseWriter, data any) {
	writeEnvelope(w, http.StatusOK, api.CodeOK, "ok", data)
}

// fail reports err in the envelope code. The HTTP status stays 200 so
// clients always get a body to read.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	code, message := classify(err)
	if code == api.CodeServerError {
		s.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}
	writeEnvelope(w, http.StatusOK, code, message, nil)
}

func classify(err error) (int, string) {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, common.ErrNotFound):
		return api.CodeNotFound, "content not found"
	case errors.Is(err, common.ErrorUnauthorized):
		return api.CodeUnauthorized, "wrong username or password"
	case errors.Is(err, common.ErrTooLarge), errors.As(err, &maxErr):
		return api.CodeTooLarge, "content too large"
	case errors.Is(err, common.ErrBadRequest):
		return api.CodeBadRequest, err.Error()
	default:
		return api.CodeServerError, "server error"
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: %v", common.ErrBadRequest, err)
	}
	return nil
}
