package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ircdocs/modref/pkg/site"
)

type serverAction int

const (
	actionShutdown serverAction = iota
	actionRestart
)

// ServerAPI exposes server lifecycle and configuration endpoints.
type ServerAPI struct {
	logger     *slog.Logger
	cm         *ConfigManager
	newBuilder func() *site.Builder
	metrics    *Metrics
	actionChan chan<- serverAction
}

func NewServerAPI(logger *slog.Logger, cm *ConfigManager, newBuilder func() *site.Builder, metrics *Metrics, actionChan chan<- serverAction) *ServerAPI {
	return &ServerAPI{
		logger:     logger,
		cm:         cm,
		newBuilder: newBuilder,
		metrics:    metrics,
		actionChan: actionChan,
	}
}

// RegisterRoutes sets up the routing for all /api/server endpoints.
func (s *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/server/config", s.handleConfig)
	mux.HandleFunc("/api/server/version", s.handleVersion)
	mux.HandleFunc("/api/server/build", s.handleBuild)
	mux.HandleFunc("/api/server/shutdown", s.handleShutdown)
	mux.HandleFunc("/api/server/restart", s.handleRestart)
}

func (s *ServerAPI) handleConfig(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "server:config") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'server:config' scope")
		return
	}

	switch r.Method {
	case http.MethodGet:
		cfg := s.cm.Get()
		respondWithJSON(w, http.StatusOK, cfg)

	case http.MethodPut:
		// Start from the current config so a partial body only changes
		// the fields it names.
		cfg := s.cm.Get()
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if err := s.cm.Update(cfg); err != nil {
			s.logger.Error("Config update rejected", "error", err)
			respondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Info("Configuration updated via API")
		respondWithJSON(w, http.StatusOK, s.cm.Get())

	default:
		w.Header().Set("Allow", "GET, PUT")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{
		"version":    Version,
		"commit":     Commit,
		"build_date": BuildDate,
	})
}

// handleBuild runs a full site build synchronously and returns its
// report. Builds are quick enough (hundreds of small pages) that async
// job plumbing would be overkill.
func (s *ServerAPI) handleBuild(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "server:control") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'server:control' scope")
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	report, err := s.newBuilder().Build(r.Context())
	if err != nil {
		s.logger.Error("Site build failed", "error", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.metrics.BuildDuration.Observe(report.Duration.Seconds())
	s.metrics.BuildPages.Set(float64(report.Pages))
	s.logger.Info("Site build finished",
		"build_id", report.BuildID, "pages", report.Pages,
		"modules", report.Modules, "assets", report.Assets,
		"duration", report.Duration)
	respondWithJSON(w, http.StatusOK, report)
}

func (s *ServerAPI) handleShutdown(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, actionShutdown, "shutdown initiated")
}

func (s *ServerAPI) handleRestart(w http.ResponseWriter, r *http.Request) {
	s.handleAction(w, r, actionRestart, "restart initiated")
}

func (s *ServerAPI) handleAction(w http.ResponseWriter, r *http.Request, action serverAction, message string) {
	if !hasScope(r, "server:control") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'server:control' scope")
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	respondWithJSON(w, http.StatusAccepted, map[string]string{"status": message})

	// Signal after responding so the client gets its acknowledgement.
	go func() { s.actionChan <- action }()
}
