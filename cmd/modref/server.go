package main

import (
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ircdocs/modref/pkg/moddata"
	"github.com/ircdocs/modref/pkg/site"
	"github.com/ircdocs/modref/pkg/templating"
)

// Server wires the two HTTP surfaces together: the docs mux serves the
// built site, the api mux carries the authenticated management API plus
// the unauthenticated health and metrics endpoints.
type Server struct {
	logger  *slog.Logger
	db      *sql.DB
	cm      *ConfigManager
	tm      *templating.Manager
	loader  *moddata.Loader
	metrics *Metrics

	docsMux *http.ServeMux
	apiMux  *http.ServeMux
}

func NewServer(logger *slog.Logger, db *sql.DB, cm *ConfigManager, tm *templating.Manager, loader *moddata.Loader, actionChan chan<- serverAction) *Server {
	s := &Server{
		logger:  logger,
		db:      db,
		cm:      cm,
		tm:      tm,
		loader:  loader,
		metrics: NewMetrics(),
		docsMux: http.NewServeMux(),
		apiMux:  http.NewServeMux(),
	}

	s.docsMux.HandleFunc("/", s.handleDocs)

	authAPI := NewAuthAPI(db, logger)
	modulesAPI := NewModulesAPI(logger, loader, cm)
	pagesAPI := NewPagesAPI(logger, tm, cm, s.newBuilder)
	searchAPI := NewSearchAPI(logger, db, s.metrics)
	serverAPI := NewServerAPI(logger, cm, s.newBuilder, s.metrics, actionChan)

	protected := http.NewServeMux()
	authAPI.RegisterRoutes(protected)
	modulesAPI.RegisterRoutes(protected)
	pagesAPI.RegisterRoutes(protected)
	searchAPI.RegisterRoutes(protected)
	serverAPI.RegisterRoutes(protected)

	// Health and metrics stay outside the auth wrapper so probes and
	// scrapers don't need a key.
	s.apiMux.HandleFunc("/api/health", s.handleHealth)
	s.apiMux.Handle("/metrics", s.metrics.Handler())
	s.apiMux.Handle("/", authAPI.Authenticate(protected))

	return s
}

// DocsMux returns the handler for the public docs server.
func (s *Server) DocsMux() http.Handler { return s.docsMux }

// ApiMux returns the handler for the management API server.
func (s *Server) ApiMux() http.Handler { return s.apiMux }

// newBuilder assembles a site builder against the current configuration.
// Builders are cheap, so each build gets a fresh one and picks up config
// changes made since the last.
func (s *Server) newBuilder() *site.Builder {
	cfg := s.cm.Get()
	b := site.NewBuilder(s.logger, s.loader, s.tm, *cfg.Site, s.db)
	b.SetRenderObserver(func(d time.Duration) {
		s.metrics.RenderDuration.Observe(d.Seconds())
	})
	return b
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("Health check failed to ping database", "error", err)
		respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDocs maps a request path onto the built site directory. With
// directory URLs enabled every page lives at <path>/index.md, so both
// "/3/modules/foo/" and the bare file path resolve.
func (s *Server) handleDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		s.metrics.DocsRequests.WithLabelValues(strconv.Itoa(http.StatusMethodNotAllowed)).Inc()
		return
	}

	cfg := s.cm.Get()
	cleaned := path.Clean("/" + r.URL.Path)
	target := filepath.Join(cfg.Site.OutputDir, filepath.FromSlash(cleaned))

	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		target = filepath.Join(target, "index.md")
		info, err = os.Stat(target)
	}
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		s.metrics.DocsRequests.WithLabelValues(strconv.Itoa(http.StatusNotFound)).Inc()
		return
	}

	if strings.HasSuffix(target, ".md") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	}
	http.ServeFile(w, r, target)
	s.metrics.DocsRequests.WithLabelValues(strconv.Itoa(http.StatusOK)).Inc()
}
