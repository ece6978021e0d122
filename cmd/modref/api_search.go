package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ircdocs/modref/pkg/search"
)

// SearchAPI exposes the page search index and build history.
type SearchAPI struct {
	logger  *slog.Logger
	db      *sql.DB
	metrics *Metrics
}

func NewSearchAPI(logger *slog.Logger, db *sql.DB, metrics *Metrics) *SearchAPI {
	return &SearchAPI{logger: logger, db: db, metrics: metrics}
}

// RegisterRoutes sets up the routing for the search endpoints.
func (s *SearchAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/builds", s.handleBuilds)
}

func (s *SearchAPI) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "search:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'search:read' scope")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		respondWithError(w, http.StatusBadRequest, "Missing 'q' query parameter")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	s.metrics.SearchQueries.Inc()
	results, err := search.Search(r.Context(), s.db, query, limit)
	if err != nil {
		s.logger.Error("Search query failed", "query", query, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Search query failed")
		return
	}
	if results == nil {
		results = []search.Result{}
	}
	respondWithJSON(w, http.StatusOK, results)
}

func (s *SearchAPI) handleBuilds(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "search:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'search:read' scope")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	builds, err := search.RecentBuilds(r.Context(), s.db, limit)
	if err != nil {
		s.logger.Error("Failed to list builds", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to list builds")
		return
	}
	respondWithJSON(w, http.StatusOK, builds)
}
