package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/renderinc/uservoice-export/internal/search"
	"github.com/renderinc/uservoice-export/internal/storage"
)

// Server exposes the run archive and note index read-only over HTTP
type Server struct {
	db     *storage.DB
	idx    *search.Index
	logger *zap.Logger
}

// SearchResponse is the body of /api/search
type SearchResponse struct {
	Results []*search.SearchResult `json:"results"`
	Query   string                 `json:"query"`
	Count   int                    `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a server over an open archive and index
func NewServer(db *storage.DB, idx *search.Index, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{db: db, idx: idx, logger: logger}
}

// Handler returns the router serving the JSON API
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", s.handleRuns)
		r.Get("/runs/{runID}/notes", s.handleRunNotes)
		r.Get("/search", s.handleSearch)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbCount, _ := s.db.Count()
	indexCount, _ := s.idx.Count()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"notes_in_db":    dbCount,
		"notes_in_index": indexCount,
	})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.db.ListRuns(limitParam(r, 50))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "list runs failed", err)
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleRunNotes(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")

	run, err := s.db.GetRun(runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "get run failed", err)
		return
	}
	if run == nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}

	items, err := s.db.RunNotes(runID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "list notes failed", err)
		return
	}
	if items == nil {
		items = []*storage.StoredNote{}
	}
	s.writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing q parameter"})
		return
	}

	results, err := s.idx.Search(query, limitParam(r, 20))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "search failed", err)
		return
	}

	s.writeJSON(w, http.StatusOK, SearchResponse{
		Results: results,
		Query:   query,
		Count:   len(results),
	})
}

// limitParam reads ?limit=, accepting 1..100
func limitParam(r *http.Request, def int) int {
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			return l
		}
	}
	return def
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	s.writeJSON(w, status, errorResponse{Error: msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Encode response failed", zap.Error(err))
	}
}
