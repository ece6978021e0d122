package templating

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"text/template"
)

// ModuleTemplateName is the name of the template used to render a module
// description file into its reference page. A template directory may
// provide its own definition to override the built-in one.
const ModuleTemplateName = "module.md.tmpl"

// Manager is the central controller for the documentation template engine.
// It owns the template set, the function map, and the engine configuration,
// and renders both named page templates and raw template strings (pages
// read from the docs tree). All methods are concurrent-safe.
//
// Templates produce markdown, so the engine is built on text/template;
// contextual escaping would mangle the embedded HTML tables the reference
// pages rely on.
type Manager struct {
	logger         *slog.Logger
	config         Config
	templates      *template.Template
	cleanTemplates *template.Template
	templateNames  []string
	funcMap        template.FuncMap
	templateDir    string
	mu             sync.RWMutex
}

// NewManager creates, initializes, and returns a new Manager. templateDir
// may be empty, in which case only the built-in templates are available.
// It performs an initial Refresh to load all templates.
func NewManager(logger *slog.Logger, config Config, templateDir string) (*Manager, error) {
	m := &Manager{
		logger:      logger,
		config:      config,
		templateDir: templateDir,
	}
	m.funcMap = m.makeFuncMap()

	if err := m.Refresh(); err != nil {
		return nil, err
	}

	logger.Info("Template manager initialized", "template_dir", templateDir)
	return m, nil
}

func (m *Manager) makeFuncMap() template.FuncMap {
	return template.FuncMap{
		// Sorting (funcs_sort.go)
		"sortByChar": sortByChar,
		"sortBy":     sortBy,

		// Formatting (funcs_format.go)
		"syntaxCell": m.syntaxCell,
		"moduleLink": m.moduleLink,
		"modulePath": m.modulePath,
		"pageLink":   m.pageLink,
		"anchor":     anchor,
		"code":       code,
		"fence":      fence,
		"tableCell":  tableCell,

		// Simple (funcs_simple.go)
		"add":   add,
		"sub":   sub,
		"inc":   inc,
		"dec":   dec,
		"isSet": isSet,
		"join":  join,
		"lower": strings.ToLower,
		"upper": strings.ToUpper,
	}
}

// SetConfig applies a new configuration to the Manager. Link bases and
// placeholder strings take effect on the next render; template set changes
// require a Refresh.
func (m *Manager) SetConfig(config Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config = config
}

// GetConfig returns a copy of the current configuration.
func (m *Manager) GetConfig() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Refresh reloads all templates: the built-in module page template first,
// then any *.md.tmpl page templates and *.part.tmpl partials from the
// template directory, which may redefine the built-ins. This allows
// template updates without restarting the server.
func (m *Manager) Refresh() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	parsed, err := template.New("").Funcs(m.funcMap).Parse(defaultModuleTemplate)
	if err != nil {
		return fmt.Errorf("failed to parse built-in templates: %w", err)
	}

	if m.templateDir != "" {
		for _, pattern := range []string{"*.md.tmpl", "*.part.tmpl"} {
			glob := filepath.Join(m.templateDir, pattern)
			parsed, err = parsed.ParseGlob(glob)
			if err != nil {
				if strings.Contains(err.Error(), "pattern matches no files") {
					continue
				}
				m.logger.Error("failed to parse template files", "pattern", glob, "error", err)
				return err
			}
		}
	}

	var names []string
	for _, t := range parsed.Templates() {
		if strings.HasSuffix(t.Name(), ".md.tmpl") {
			names = append(names, t.Name())
		}
	}

	m.templates = parsed
	m.templateNames = names

	// Keep a clean clone for string executions, so page renders never
	// pollute the named set.
	m.cleanTemplates, err = m.templates.Clone()
	if err != nil {
		m.logger.Error("failed to create a clean clone of templates", "error", err)
		return err
	}

	m.logger.Info("Loaded templates", "count", len(names))
	return nil
}

// Execute renders a named template, writing the output to w. The data
// argument is exposed to the template as its dot.
//
// The template set is snapshotted and the lock released before executing:
// funcMap funcs like syntaxCell read the config through GetConfig, and a
// nested RLock queued behind a pending writer would deadlock the render.
// Refresh replaces the set rather than mutating it, so executing a
// snapshot is safe.
func (m *Manager) Execute(w io.Writer, name string, data interface{}) error {
	if name == "" {
		return fmt.Errorf("template name is empty")
	}
	m.mu.RLock()
	templates := m.templates
	m.mu.RUnlock()
	return templates.ExecuteTemplate(w, name, data)
}

// ExecuteModule renders the module page template with the given data.
func (m *Manager) ExecuteModule(w io.Writer, data interface{}) error {
	return m.Execute(w, ModuleTemplateName, data)
}

// ExecuteString parses and executes a raw template string using the
// manager's function map and partials. This is how documentation pages
// (which may contain template directives) are rendered, and how the page
// test API previews templates without saving them to disk.
func (m *Manager) ExecuteString(w io.Writer, content string, data interface{}) error {
	m.mu.RLock()
	clean := m.cleanTemplates
	m.mu.RUnlock()

	// Clone the clean, unexecuted template set to avoid race conditions
	// and execution state issues. The lock is not held during the render
	// itself; see Execute.
	tempSet, err := clean.Clone()
	if err != nil {
		return fmt.Errorf("failed to clone clean templates for string execution: %w", err)
	}

	t, err := tempSet.Parse(content)
	if err != nil {
		return fmt.Errorf("failed to parse string template: %w", err)
	}

	return t.Execute(w, data)
}

// HasTemplate reports whether a template with the given name is loaded.
func (m *Manager) HasTemplate(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.templates.Lookup(name) != nil
}

// GetTemplateNames returns the names of the loaded page templates.
func (m *Manager) GetTemplateNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, len(m.templateNames))
	copy(names, m.templateNames)
	return names
}

// GetTemplateDir returns the template dir the Manager loads from.
func (m *Manager) GetTemplateDir() string {
	return m.templateDir
}
