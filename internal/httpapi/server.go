package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/joseph-ayodele/image-factory/internal/blobstore"
	"github.com/joseph-ayodele/image-factory/internal/common"
	"github.com/joseph-ayodele/image-factory/internal/pubsub"
	"github.com/joseph-ayodele/image-factory/internal/service"
)

// Server wires the HTTP surface: the public API (upload + status) and the
// worker endpoints the push transport calls (derive + dead letter).
type Server struct {
	Images   *service.ImageService
	Delivery *service.DeliveryService
	// BlobFS, when set, serves stored blobs under /blobs/* so source URLs
	// written by the LocalFS store resolve.
	BlobFS         *blobstore.LocalFS
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// APIRouter is the public surface.
func (s *Server) APIRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Get("/healthz", handleHealthz)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/images", s.handleUpload)
		r.Get("/images/{hash}", s.handleStatus)
	})
	if s.BlobFS != nil {
		r.Get("/blobs/*", s.handleBlob)
	}
	return r
}

// WorkerRouter is the surface the push transport delivers to.
func (s *Server) WorkerRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	r.Get("/healthz", handleHealthz)
	r.Post("/derive", s.handleDerive)
	r.Post("/derive/dlq", s.handleDeriveDLQ)
	return r
}

func handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = 32 << 20
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("missing 'file' upload: %w", err))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}
	reprocess := r.URL.Query().Get("reprocess") == "true"

	j, err := s.Images.Submit(r.Context(), file, contentType, header.Size, reprocess)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, j)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	hash := chi.URLParam(r, "hash")
	j, err := s.Images.Get(r.Context(), hash)
	if errors.Is(err, common.ErrNotFound) {
		writeErr(w, http.StatusNotFound, fmt.Errorf("image not found: %s", hash))
		return
	}
	if err != nil {
		writeErr(w, http.StatusInternalServerError, errors.New("status lookup failed"))
		return
	}
	writeJSON(w, http.StatusOK, j)
}

func (s *Server) handleDerive(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	req, err := pubsub.ParsePush(body)
	if err != nil {
		// a malformed envelope still counts as a failed delivery: the broker
		// retries it into the dead-letter topic
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	hash := req.Message.Attributes[pubsub.AttrContentHash]
	sourceURL := req.Message.Attributes[pubsub.AttrSourceURL]

	if err := s.Delivery.HandleDelivery(r.Context(), hash, sourceURL); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeriveDLQ always acknowledges; failing here would requeue the
// dead letter forever.
func (s *Server) handleDeriveDLQ(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.Delivery.HandleDeadLetter(body)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBlob(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" || raw == "." {
		writeErr(w, http.StatusBadRequest, errors.New("missing blob path"))
		return
	}
	clean := filepath.Clean(raw)
	if clean == "." || strings.HasPrefix(clean, "..") {
		writeErr(w, http.StatusBadRequest, errors.New("invalid blob path"))
		return
	}
	if !s.BlobFS.Exists(clean) {
		writeErr(w, http.StatusNotFound, errors.New("blob not found"))
		return
	}
	f, err := s.BlobFS.Open(clean)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	contentType := http.DetectContentType(buf[:n])
	if ext := filepath.Ext(clean); ext != "" {
		if mimeType := mime.TypeByExtension(ext); mimeType != "" {
			if contentType == "application/octet-stream" || strings.HasPrefix(contentType, "text/plain") {
				contentType = mimeType
			}
		}
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	_, _ = io.Copy(w, f)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]any{"error": err.Error()})
}
