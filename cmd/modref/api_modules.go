package main

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/ircdocs/modref/pkg/moddata"
)

// ModulesAPI exposes the loaded module set over the management API.
type ModulesAPI struct {
	logger *slog.Logger
	loader *moddata.Loader
	cm     *ConfigManager
}

func NewModulesAPI(logger *slog.Logger, loader *moddata.Loader, cm *ConfigManager) *ModulesAPI {
	return &ModulesAPI{logger: logger, loader: loader, cm: cm}
}

// RegisterRoutes sets up the routing for all /api/modules endpoints.
func (m *ModulesAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/modules", m.handleList)
	mux.HandleFunc("/api/modules/refresh", m.handleRefresh)
	mux.HandleFunc("/api/modules/", m.handleGet)
}

// ModuleSummary is one entry in the module listing.
type ModuleSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Added       string `json:"added,omitempty"`
	Chmodes     int    `json:"chmodes"`
	Umodes      int    `json:"umodes"`
	Extbans     int    `json:"extbans"`
	Snomasks    int    `json:"snomasks"`
}

// modulesDir resolves the directory the current config loads modules
// from.
func (m *ModulesAPI) modulesDir() string {
	cfg := m.cm.Get()
	return filepath.Join(cfg.Site.SourceDir, cfg.Site.Version, "modules")
}

func (m *ModulesAPI) handleList(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "modules:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'modules:read' scope")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	modules, err := m.loader.LoadDir(m.modulesDir())
	if err != nil {
		m.logger.Error("Failed to load module set", "error", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	summaries := make([]ModuleSummary, 0, len(modules))
	for _, mod := range modules {
		s := ModuleSummary{
			Name:        mod.Name,
			Description: mod.Description,
			Added:       mod.Added,
			Snomasks:    len(mod.Snomasks),
		}
		if mod.Chmodes != nil {
			s.Chmodes = len(mod.Chmodes.Chars)
		}
		if mod.Umodes != nil {
			s.Umodes = len(mod.Umodes.Chars)
		}
		if mod.Extbans != nil {
			s.Extbans = len(mod.Extbans.Chars)
		}
		summaries = append(summaries, s)
	}
	respondWithJSON(w, http.StatusOK, summaries)
}

func (m *ModulesAPI) handleGet(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "modules:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'modules:read' scope")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	name := strings.TrimPrefix(r.URL.Path, "/api/modules/")
	if name == "" || strings.Contains(name, "/") || strings.Contains(name, ".") {
		respondWithError(w, http.StatusBadRequest, "Invalid module name in URL")
		return
	}

	modules, err := m.loader.LoadDir(m.modulesDir())
	if err != nil {
		m.logger.Error("Failed to load module set", "error", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	mod, ok := moddata.NewIndex(modules).Module(name)
	if !ok {
		respondWithError(w, http.StatusNotFound, "Module not found")
		return
	}
	respondWithJSON(w, http.StatusOK, mod)
}

// handleRefresh drops the loader cache so the next load re-reads every
// file from disk.
func (m *ModulesAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "server:control") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'server:control' scope")
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	m.loader.Invalidate()
	m.logger.Info("Module cache invalidated via API")
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "cache invalidated"})
}
