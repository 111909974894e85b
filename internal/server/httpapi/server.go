// Package httpapi serves the blob server REST API: JSON envelopes over POST
// for blobs, multipart uploads and GET for images.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/peng0105/password-xl/internal/api"
	"github.com/peng0105/password-xl/internal/logging"
	"github.com/peng0105/password-xl/internal/server/config"
	"github.com/peng0105/password-xl/internal/server/services"
)

const shutdownTimeout = 5 * time.Second

type HTTPServer struct {
	address        string
	users          *services.UserService
	blobs          *services.BlobService
	images         *services.ImageService
	logger         logging.Logger
	maxBlobSize    int64
	maxImageSize   int64
	allowedOrigins []string
}

func NewHTTPServer(cfg *config.Config, l logging.Logger, us *services.UserService, bs *services.BlobService, is *services.ImageService) *HTTPServer {
	return &HTTPServer{
		address:        cfg.EndpointAddr,
		users:          us,
		blobs:          bs,
		images:         is,
		logger:         logging.OrDiscard(l).With("module", "http_server"),
		maxBlobSize:    cfg.MaxBlobSize,
		maxImageSize:   cfg.MaxImageSize,
		allowedOrigins: cfg.AllowedOrigins,
	}
}

// Handler returns the routed API with its middleware.
func (s *HTTPServer) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(api.PathLogin, s.login).Methods(http.MethodPost)
	r.HandleFunc(api.PathGet, s.get).Methods(http.MethodPost)
	r.HandleFunc(api.PathPut, s.put).Methods(http.MethodPost)
	r.HandleFunc(api.PathDelete, s.delete).Methods(http.MethodPost)
	r.HandleFunc(api.PathGetEtag, s.getEtag).Methods(http.MethodPost)
	r.HandleFunc(api.PathUploadImage+"{prefix:.*}", s.uploadImage).Methods(http.MethodPost)
	r.PathPrefix(api.PathImage).HandlerFunc(s.image).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusNotFound, api.CodeNotFound, "no such route", nil)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusMethodNotAllowed, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	return s.logRequests(s.cors(s.authenticate(r)))
}

func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
