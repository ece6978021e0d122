package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/ircdocs/modref/pkg/site"
	"github.com/ircdocs/modref/pkg/templating"
)

// PagesAPI exposes template inspection and page previews. Previews run
// through the real render pipeline, aggregate context and all, without
// touching the output directory.
type PagesAPI struct {
	logger     *slog.Logger
	tm         *templating.Manager
	cm         *ConfigManager
	newBuilder func() *site.Builder
}

func NewPagesAPI(logger *slog.Logger, tm *templating.Manager, cm *ConfigManager, newBuilder func() *site.Builder) *PagesAPI {
	return &PagesAPI{logger: logger, tm: tm, cm: cm, newBuilder: newBuilder}
}

// RegisterRoutes sets up the routing for all /api/pages endpoints.
func (p *PagesAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/pages/templates", p.handleTemplates)
	mux.HandleFunc("/api/pages/templates/refresh", p.handleTemplatesRefresh)
	mux.HandleFunc("/api/pages/preview", p.handlePreview)
	mux.HandleFunc("/api/pages/test", p.handleTest)
}

// TestRequest is the expected JSON body for a template test render.
type TestRequest struct {
	Content string `json:"content"`
}

// RenderResponse carries rendered markdown back to the caller.
type RenderResponse struct {
	Rendered string `json:"rendered"`
}

func (p *PagesAPI) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "pages:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]any{
		"template_dir": p.tm.GetTemplateDir(),
		"templates":    p.tm.GetTemplateNames(),
	})
}

// handleTemplatesRefresh re-parses the template dir, picking up edits
// without a restart.
func (p *PagesAPI) handleTemplatesRefresh(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "pages:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := p.tm.Refresh(); err != nil {
		p.logger.Error("Template refresh failed", "error", err)
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	p.logger.Info("Templates refreshed via API")
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "templates refreshed"})
}

// handlePreview renders one source page from the docs tree on the fly,
// so template edits can be checked without a full build.
func (p *PagesAPI) handlePreview(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "pages:read") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:read' scope")
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	rel := r.URL.Query().Get("path")
	if rel == "" {
		respondWithError(w, http.StatusBadRequest, "Missing 'path' query parameter")
		return
	}
	// Keep the path inside the source tree.
	rel = path.Clean("/" + filepath.ToSlash(rel))
	if !strings.HasSuffix(rel, ".md") {
		respondWithError(w, http.StatusBadRequest, "Only markdown pages can be previewed")
		return
	}

	cfg := p.cm.Get()
	raw, err := os.ReadFile(filepath.Join(cfg.Site.SourceDir, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			respondWithError(w, http.StatusNotFound, "Page not found")
			return
		}
		p.logger.Error("Preview failed to read page", "path", rel, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to read page")
		return
	}

	p.render(w, string(raw))
}

// handleTest renders a POSTed template string with the full page context,
// so a new page or template can be tried before saving it to disk.
func (p *PagesAPI) handleTest(w http.ResponseWriter, r *http.Request) {
	if !hasScope(r, "pages:write") {
		respondWithError(w, http.StatusForbidden, "Forbidden: requires 'pages:write' scope")
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req TestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
		return
	}

	p.render(w, req.Content)
}

func (p *PagesAPI) render(w http.ResponseWriter, content string) {
	builder := p.newBuilder()
	pctx, err := builder.PageContext()
	if err != nil {
		p.logger.Error("Render failed to build page context", "error", err)
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	rendered, err := builder.RenderPageString(content, pctx)
	if err != nil {
		respondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, RenderResponse{Rendered: rendered})
}
