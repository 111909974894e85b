package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/peng0105/password-xl/internal/api"
	"github.com/peng0105/password-xl/internal/common"
)

// jsonOverhead leaves room for the envelope around a maximal blob.
const jsonOverhead = 4 << 10

func (s *HTTPServer) login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, jsonOverhead)

	var req api.LoginRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.logger.Info(r.Context(), "login failed", "username", req.Username)
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "login", "username", req.Username)
	ok(w, token)
}

func (s *HTTPServer) keyRequest(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, jsonOverhead)

	var req api.KeyRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return "", false
	}
	return req.Key, true
}

func (s *HTTPServer) get(w http.ResponseWriter, r *http.Request) {
	key, valid := s.keyRequest(w, r)
	if !valid {
		return
	}
	b, err := s.blobs.Get(r.Context(), usernameFrom(r.Context()), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, api.BlobData{Etag: b.ModifiedAt, Content: b.Content})
}

func (s *HTTPServer) put(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBlobSize+jsonOverhead)

	var req api.PutRequest
	if err := decode(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	owner := usernameFrom(r.Context())
	tag, err := s.blobs.Put(r.Context(), owner, req.Key, req.Content)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Debug(r.Context(), "blob stored", "owner", owner, "key", req.Key, "size", len(req.Content))
	ok(w, api.EtagData{Etag: tag})
}

func (s *HTTPServer) delete(w http.ResponseWriter, r *http.Request) {
	key, valid := s.keyRequest(w, r)
	if !valid {
		return
	}
	if err := s.blobs.Delete(r.Context(), usernameFrom(r.Context()), key); err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, nil)
}

// getEtag answers with no data when the blob does not exist.
func (s *HTTPServer) getEtag(w http.ResponseWriter, r *http.Request) {
	key, valid := s.keyRequest(w, r)
	if !valid {
		return
	}
	tag, err := s.blobs.Etag(r.Context(), usernameFrom(r.Context()), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if tag == 0 {
		ok(w, nil)
		return
	}
	ok(w, api.EtagData{Etag: tag})
}

func (s *HTTPServer) uploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxImageSize+jsonOverhead)

	file, header, err := r.FormFile(api.UploadField)
	if err != nil {
		var maxErr *http.MaxBytesError
		if !errors.As(err, &maxErr) {
			err = fmt.Errorf("%w: missing %q file", common.ErrBadRequest, api.UploadField)
		}
		s.fail(w, r, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	owner := usernameFrom(r.Context())
	key, err := s.images.Upload(r.Context(), owner, mux.Vars(r)["prefix"], header.Filename, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.logger.Info(r.Context(), "image uploaded", "owner", owner, "key", key, "size", len(data))
	ok(w, api.UploadData{ObjectKey: key})
}

// image serves an uploaded image of the caller as a plain response.
func (s *HTTPServer) image(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, strings.TrimSuffix(api.PathImage, "/"))

	img, err := s.images.Get(r.Context(), usernameFrom(r.Context()), key)
	if err != nil {
		code, message := classify(err)
		status := code
		if status == api.CodeServerError {
			s.logger.Error(r.Context(), "image read failed", "key", key, "error", err)
			status = http.StatusInternalServerError
		}
		writeEnvelope(w, status, code, message, nil)
		return
	}

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(img.Data)
}
