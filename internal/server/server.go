// Package server exposes artifact generation over HTTP.
//
// Generation endpoints live under /api and persisted artifacts are served
// under /files. User identity arrives as the X-User-ID header; the caller
// in front of this service is responsible for authentication.
package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/gunho/artifact/pkg/errors"
	"github.com/gunho/artifact/pkg/pipeline"
	"github.com/gunho/artifact/pkg/quota"
	"github.com/gunho/artifact/pkg/store"
)

const userIDHeader = "X-User-ID"

// Server routes API requests into the pipeline.
type Server struct {
	runner   *pipeline.Runner
	gate     quota.Gate
	filesDir string
	logger   *log.Logger
	router   chi.Router
}

// New creates the server. filesDir must be the same directory the runner's
// store writes to, so /files serves what generation persisted.
func New(runner *pipeline.Runner, gate quota.Gate, filesDir string, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		runner:   runner,
		gate:     gate,
		filesDir: filesDir,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(logger))

	r.Route("/api", func(r chi.Router) {
		r.Post("/flowcharts", s.handleGenerate(pipeline.KindFlowchart))
		r.Post("/docs", s.handleGenerate(pipeline.KindAPIDoc))
		r.Post("/decks", s.handleGenerate(pipeline.KindDeck))
		r.Get("/subscriptions/me", s.handleSubscription)
	})
	r.Get("/files/*", s.handleFile)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	s.router = r
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// generateResponse is the success body for generation endpoints.
type generateResponse struct {
	Artifacts []store.Artifact `json:"artifacts"`
	CacheHit  bool             `json:"cacheHit"`
}

// handleGenerate decodes the request body into a generation request for
// the route's kind. UserID and Kind in the body are ignored; identity
// comes from the header and kind from the route.
func (s *Server) handleGenerate(kind string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(userIDHeader)
		if userID == "" {
			writeJSONError(w, http.StatusUnauthorized, "MISSING_USER", "missing "+userIDHeader+" header")
			return
		}

		var req pipeline.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "invalid request body")
			return
		}
		req.UserID = userID
		req.Kind = kind

		result, err := s.runner.Execute(r.Context(), req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, generateResponse{
			Artifacts: result.Artifacts,
			CacheHit:  result.CacheHit,
		})
	}
}

// handleSubscription reports the caller's plan, limits, and usage.
func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "MISSING_USER", "missing "+userIDHeader+" header")
		return
	}

	sub, err := s.gate.Lookup(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleFile serves a persisted artifact. Downloads are metered: each file
// request consumes one download unit on the caller's subscription.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		writeJSONError(w, http.StatusUnauthorized, "MISSING_USER", "missing "+userIDHeader+" header")
		return
	}

	rel := chi.URLParam(r, "*")
	if rel == "" || strings.Contains(rel, "..") {
		writeJSONError(w, http.StatusBadRequest, errors.ErrCodeInvalidInput, "invalid file path")
		return
	}

	path := filepath.Join(s.filesDir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		writeJSONError(w, http.StatusNotFound, errors.ErrCodeNotFound, "file not found")
		return
	}

	if err := s.gate.Reserve(r.Context(), userID, quota.KindDownload); err != nil {
		s.writeError(w, r, err)
		return
	}

	http.ServeFile(w, r, path)
}

// writeError maps a pipeline error to an HTTP status and writes the JSON
// error body. Internal details stay in the log; clients get the user
// message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := statusForCode(code)
	if status >= 500 {
		s.logger.Error("request failed", "path", r.URL.Path, "code", code, "err", err)
	}
	writeJSONError(w, status, code, errors.UserMessage(err))
}

func statusForCode(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidLayout, errors.ErrCodeInvalidKind:
		return http.StatusBadRequest
	case errors.ErrCodeQuotaExceeded:
		return http.StatusTooManyRequests
	case errors.ErrCodeSubscriptionInactive, errors.ErrCodeSubscriptionMissing:
		return http.StatusForbidden
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Code  errors.Code `json:"code"`
	Error string      `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code errors.Code, msg string) {
	writeJSON(w, status, errorResponse{Code: code, Error: msg})
}
