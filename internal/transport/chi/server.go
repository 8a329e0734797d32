package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/docdex/docdex/internal/domain"
	"github.com/docdex/docdex/internal/domain/document"
	"github.com/docdex/docdex/internal/logger"
	searchuc "github.com/docdex/docdex/internal/usecase/search"
)

// ReloadFunc re-reads the persisted index and swaps it into the engine.
type ReloadFunc func(ctx context.Context) error

// Server is the read-only HTTP query surface over a loaded index.
type Server struct {
	search    *searchuc.Service
	reload    ReloadFunc
	logger    *zap.Logger
	limit     int
	threshold float64
}

// NewServer creates an HTTP API server. reload may be nil, disabling POST /reload.
func NewServer(
	search *searchuc.Service,
	reload ReloadFunc,
	defaultLimit int,
	defaultThreshold float64,
	logger *zap.Logger,
) *Server {
	if defaultLimit <= 0 {
		defaultLimit = searchuc.DefaultLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		search:    search,
		reload:    reload,
		logger:    logger,
		limit:     defaultLimit,
		threshold: defaultThreshold,
	}
}

// Routes mounts the API on a router.
func (s *Server) Routes(r chi.Router) {
	r.Get("/search", s.handleSearch)
	r.Get("/suggest", s.handleSuggest)
	r.Get("/related/{id}", s.handleRelated)
	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if s.reload != nil {
		r.Post("/reload", s.handleReload)
	}
}

type documentResponse struct {
	ID       string            `json:"id"`
	Title    string            `json:"title"`
	Type     string            `json:"type"`
	Path     string            `json:"path,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type resultResponse struct {
	Document   documentResponse     `json:"document"`
	Score      float64              `json:"score"`
	Highlights []searchuc.Highlight `json:"highlights,omitempty"`
}

type searchResponse struct {
	Query   string           `json:"query"`
	Count   int              `json:"count"`
	Results []resultResponse `json:"results"`
}

type suggestResponse struct {
	Query       string   `json:"query"`
	Suggestions []string `json:"suggestions"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleSearch handles GET /search.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query parameter q is required")
		return
	}

	opts, err := s.parseOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	results, err := s.search.Search(r.Context(), q, opts)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(q, results))
}

// handleSuggest handles GET /suggest.
func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "query parameter q is required")
		return
	}

	max, err := intParam(r, "limit", searchuc.DefaultSuggestions)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	suggestions, err := s.search.Suggest(q, max)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}

	writeJSON(w, http.StatusOK, suggestResponse{Query: q, Suggestions: suggestions})
}

// handleRelated handles GET /related/{id}.
func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit, err := intParam(r, "limit", s.limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	results, err := s.search.FindRelated(r.Context(), id, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSearchResponse(id, results))
}

// handleHealth handles GET /healthz.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	idx := s.search.Index()
	if idx == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "loading"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"documents": idx.Len(),
		"version":   idx.Version(),
	})
}

// handleReload handles POST /reload: re-read the index file and swap.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.reload(r.Context()); err != nil {
		s.log(r).Error("Index reload failed", zap.Error(err))
		s.handleDomainError(w, r, err)
		return
	}
	s.log(r).Info("Index reloaded", zap.Int("documents", s.search.Index().Len()))
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "reloaded",
		"documents": s.search.Index().Len(),
	})
}

// parseOptions maps query parameters onto search options, applying the
// server's configured defaults for absent parameters.
func (s *Server) parseOptions(r *http.Request) (searchuc.Options, error) {
	opts := searchuc.Options{Limit: s.limit, Threshold: s.threshold}

	q := r.URL.Query()

	limit, err := intParam(r, "limit", s.limit)
	if err != nil {
		return searchuc.Options{}, err
	}
	opts.Limit = limit

	if raw := q.Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return searchuc.Options{}, errors.New("threshold must be a number")
		}
		opts.Threshold = t
	}

	if raw := q.Get("types"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			opts.Types = append(opts.Types, document.Type(strings.TrimSpace(t)))
		}
	}
	if raw := q.Get("tags"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			opts.Tags = append(opts.Tags, strings.TrimSpace(t))
		}
	}

	if raw := q.Get("rerank"); raw != "" {
		rerank, err := strconv.ParseBool(raw)
		if err != nil {
			return searchuc.Options{}, errors.New("rerank must be a boolean")
		}
		opts.AIRerank = rerank
	}

	return opts, nil
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(name + " must be an integer")
	}
	return v, nil
}

func toSearchResponse(query string, results []searchuc.Result) searchResponse {
	items := make([]resultResponse, len(results))
	for i, r := range results {
		items[i] = resultResponse{
			Document: documentResponse{
				ID:       r.Document.ID(),
				Title:    r.Document.Title(),
				Type:     string(r.Document.Type()),
				Path:     r.Document.Path(),
				Tags:     r.Document.Tags(),
				Metadata: r.Document.Metadata(),
			},
			Score:      r.Score,
			Highlights: r.Highlights,
		}
	}
	return searchResponse{Query: query, Count: len(items), Results: items}
}

// log prefers the request-scoped logger installed by the wide-event
// middleware, so handler log lines carry the request id.
func (s *Server) log(r *http.Request) *zap.Logger {
	if l := logger.FromContext(r.Context()); l != nil {
		return l
	}
	return s.logger
}

// handleDomainError maps domain sentinels to HTTP statuses.
func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrIndexNotReady):
		writeError(w, http.StatusServiceUnavailable, "index_not_ready", "index not built or loaded yet")
	case errors.Is(err, domain.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, "document_not_found", err.Error())
	case errors.Is(err, domain.ErrInvalidQuery):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, domain.ErrMalformedIndex):
		writeError(w, http.StatusInternalServerError, "malformed_index", err.Error())
	default:
		s.log(r).Error("Unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
