package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Sternrassler/careadmin-cache/pkg/cache"
	"github.com/Sternrassler/careadmin-cache/pkg/metrics"
)

const requestIDHeader = "X-Request-ID"

// maxBodyBytes bounds invalidation request bodies.
const maxBodyBytes = 1 << 20

type server struct {
	store  *cache.Store
	logger zerolog.Logger
}

func newServer(store *cache.Store, logger zerolog.Logger) *server {
	return &server{store: store, logger: logger}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.instrument("health", healthHandler))
	mux.HandleFunc("GET /ready", s.instrument("ready", s.readyHandler))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /admin/cache/stats", s.instrument("stats", s.statsHandler))
	mux.HandleFunc("POST /admin/cache/invalidate", s.instrument("invalidate", s.invalidateHandler))
	mux.HandleFunc("DELETE /admin/cache", s.instrument("clear", s.clearHandler))
	return mux
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument assigns a request ID, then logs and measures the request.
func (s *server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		logger := s.logger.With().Str("request_id", id).Str("route", route).Logger()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next(rec, r.WithContext(logger.WithContext(r.Context())))

		metrics.ObserveRequest(route, rec.status, start)

		event := logger.Debug()
		if route != "health" && route != "ready" {
			event = logger.Info()
		}
		event.
			Str("method", r.Method).
			Int("status_code", rec.status).
			Dur("duration", time.Since(start)).
			Msg("Admin request")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Readiness check failed")
		http.Error(w, "cache backend unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (s *server) statsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// invalidateRequest selects what to remove. All selectors are applied in
// order: keys, prefixes, tags, then the whole AllVersion epoch.
type invalidateRequest struct {
	Keys     []string `json:"keys"`
	Prefixes []string `json:"prefixes"`
	Tags     []string `json:"tags"`

	// Version scopes keys, prefixes and tags (empty for the default version).
	Version string `json:"version"`

	// AllVersion drops every entry of this epoch.
	AllVersion string `json:"allVersion"`
}

// validate rejects the request before any entry is touched.
func (req invalidateRequest) validate() error {
	if req.Version != "" {
		if err := cache.ValidateVersion(req.Version); err != nil {
			return fmt.Errorf("version: %w", err)
		}
	}
	if req.AllVersion != "" {
		if err := cache.ValidateVersion(req.AllVersion); err != nil {
			return fmt.Errorf("allVersion: %w", err)
		}
	}
	for i, key := range req.Keys {
		if key == "" {
			return fmt.Errorf("keys[%d]: %w: key cannot be empty", i, cache.ErrInvalidKey)
		}
	}
	if len(req.Keys) == 0 && len(req.Prefixes) == 0 && len(req.Tags) == 0 && req.AllVersion == "" {
		return errors.New("nothing to invalidate: set keys, prefixes, tags or allVersion")
	}
	return nil
}

type invalidateResponse struct {
	// Deleted counts entries removed by prefixes, tags and AllVersion.
	Deleted int `json:"deleted"`

	// Keys counts explicit keys processed; absent keys are included.
	Keys int `json:"keys"`

	// Error is set when the backend failed partway; the counts above cover
	// the work done before the failure.
	Error string `json:"error,omitempty"`
}

func (s *server) invalidateHandler(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	if err := req.validate(); err != nil {
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	opts := []cache.Option{cache.WithVersion(req.Version)}
	var resp invalidateResponse

	fail := func(err error) {
		status := errorStatus(err)
		zerolog.Ctx(ctx).Error().
			Err(err).
			Int("status_code", status).
			Int("deleted", resp.Deleted).
			Int("keys", resp.Keys).
			Msg("Invalidation failed partway")
		resp.Error = err.Error()
		writeJSON(w, status, resp)
	}

	for _, key := range req.Keys {
		if err := s.store.Delete(ctx, key, opts...); err != nil {
			fail(err)
			return
		}
		resp.Keys++
	}

	for _, prefix := range req.Prefixes {
		n, err := s.store.DeleteByPrefix(ctx, prefix, opts...)
		resp.Deleted += n
		if err != nil {
			fail(err)
			return
		}
	}

	if len(req.Tags) > 0 {
		n, err := s.store.InvalidateByTags(ctx, req.Tags, opts...)
		resp.Deleted += n
		if err != nil {
			fail(err)
			return
		}
	}

	if req.AllVersion != "" {
		n, err := s.store.InvalidateByVersion(ctx, req.AllVersion)
		resp.Deleted += n
		if err != nil {
			fail(err)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *server) clearHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// errorStatus maps store errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, cache.ErrInvalidKey):
		return http.StatusBadRequest
	case cache.IsUnavailable(err):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	zerolog.Ctx(r.Context()).Error().Err(err).Int("status_code", status).Msg("Admin operation failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
