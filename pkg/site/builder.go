package site

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/natefinch/atomic"

	"github.com/ircdocs/modref/pkg/moddata"
	"github.com/ircdocs/modref/pkg/search"
	"github.com/ircdocs/modref/pkg/templating"
)

// Config holds the build pipeline settings.
type Config struct {
	// SourceDir is the root of the docs source tree.
	SourceDir string `json:"source_dir"`

	// OutputDir is where the rendered site is written.
	OutputDir string `json:"output_dir"`

	// Version is the docs version segment, e.g. "3". Module descriptions
	// are loaded from <SourceDir>/<Version>/modules/*.yml and the core
	// configuration tag data from <SourceDir>/<Version>/configuration/_data.yml.
	Version string `json:"version"`

	// DirectoryURLs renders pages into pretty directories so their URLs
	// end in a slash.
	DirectoryURLs bool `json:"directory_urls"`
}

// DefaultConfig returns a build configuration with default values.
func DefaultConfig() Config {
	return Config{
		SourceDir:     "./docs",
		OutputDir:     "./site",
		Version:       "3",
		DirectoryURLs: true,
	}
}

// PageContext is the data every markdown page is rendered with. Pages
// reach the aggregate views through it, e.g.
// {{range sortByChar .Extbans}}...{{end}}.
type PageContext struct {
	Version        string
	Modules        []*moddata.Module
	Chmodes        []moddata.Mode
	Umodes         []moddata.Mode
	Extbans        []moddata.ExtBan
	Snomasks       []moddata.Snomask
	TagExtensions  map[string][]moddata.TagAttribute
	CoreConfigTags []moddata.ConfigTag
}

// Report summarizes one completed build.
type Report struct {
	BuildID   string        `json:"build_id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Pages     int           `json:"pages"`
	Modules   int           `json:"modules"`
	Assets    int           `json:"assets"`
}

// Builder renders the docs source tree into the output tree. A Builder is
// cheap to create; hold a Loader and a template Manager and create a new
// Builder per build if the config changes.
type Builder struct {
	logger *slog.Logger
	loader *moddata.Loader
	tm     *templating.Manager
	config Config
	db     *sql.DB

	renderObserver func(time.Duration)
}

// NewBuilder creates a Builder. db may be nil, in which case the build
// skips search indexing.
func NewBuilder(logger *slog.Logger, loader *moddata.Loader, tm *templating.Manager, config Config, db *sql.DB) *Builder {
	return &Builder{
		logger: logger,
		loader: loader,
		tm:     tm,
		config: config,
		db:     db,
	}
}

// SetRenderObserver registers a callback invoked with the duration of
// every page and module render. The server uses this to feed its render
// duration histogram.
func (b *Builder) SetRenderObserver(fn func(time.Duration)) {
	b.renderObserver = fn
}

func (b *Builder) observeRender(start time.Time) {
	if b.renderObserver != nil {
		b.renderObserver(time.Since(start))
	}
}

// Build runs a full site build and returns its report. A build renders
// into place atomically file by file; it removes nothing it did not
// write, so stale output from deleted sources should be handled by
// clearing the output dir before calling Build.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	report := &Report{
		BuildID:   uuid.NewString(),
		StartedAt: time.Now(),
	}
	b.logger.Info("Starting site build", "build_id", report.BuildID, "source", b.config.SourceDir)

	pctx, err := b.pageContext()
	if err != nil {
		return nil, err
	}

	sources, err := Discover(b.config.SourceDir)
	if err != nil {
		return nil, err
	}

	var indexer *search.Indexer
	if b.db != nil {
		indexer, err = search.NewIndexer(ctx, b.db, report.BuildID, report.StartedAt)
		if err != nil {
			return nil, err
		}
		defer indexer.Rollback()
	}

	for _, src := range sources {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		switch src.Kind {
		case KindPage:
			if err = b.renderPage(ctx, src, pctx, indexer); err != nil {
				return nil, err
			}
			report.Pages++
		case KindModule:
			if err = b.renderModule(ctx, src, indexer); err != nil {
				return nil, err
			}
			report.Modules++
		case KindAsset:
			if err = b.copyAsset(src); err != nil {
				return nil, err
			}
			report.Assets++
		}
	}

	if indexer != nil {
		if err = indexer.Commit(ctx); err != nil {
			return nil, err
		}
	}

	report.Duration = time.Since(report.StartedAt)
	b.logger.Info("Site build finished",
		"build_id", report.BuildID,
		"pages", report.Pages,
		"modules", report.Modules,
		"assets", report.Assets,
		"duration", report.Duration)
	return report, nil
}

// PageContext loads the module set and computes the aggregate views. The
// server also uses this to render page previews outside a full build.
func (b *Builder) PageContext() (*PageContext, error) {
	return b.pageContext()
}

func (b *Builder) pageContext() (*PageContext, error) {
	moduleDir := filepath.Join(b.config.SourceDir, b.config.Version, "modules")
	modules, err := b.loader.LoadDir(moduleDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load modules: %w", err)
	}
	ix := moddata.NewIndex(modules)

	pctx := &PageContext{
		Version:       b.config.Version,
		Modules:       ix.Modules(),
		Chmodes:       ix.Chmodes(),
		Umodes:        ix.Umodes(),
		Extbans:       ix.Extbans(),
		Snomasks:      ix.Snomasks(),
		TagExtensions: ix.TagExtensions(),
	}

	dataPath := filepath.Join(b.config.SourceDir, b.config.Version, "configuration", "_data.yml")
	if _, err = os.Stat(dataPath); err == nil {
		pctx.CoreConfigTags, err = b.loader.LoadConfigTags(dataPath)
		if err != nil {
			return nil, err
		}
	}

	return pctx, nil
}

// Discover walks the source tree and classifies every file. Dotfiles and
// the core configuration data file are skipped; the data file feeds the
// page context rather than becoming a page of its own.
func Discover(sourceDir string) ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(sourceDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if len(name) > 1 && name[0] == '.' {
				return filepath.SkipDir
			}
			return nil
		}
		if name[0] == '.' || name[0] == '_' {
			return nil
		}
		rel, err := filepath.Rel(sourceDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		sources = append(sources, Source{Path: rel, Kind: Classify(rel)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk source tree: %w", err)
	}
	return sources, nil
}

// RenderPageString renders a single markdown page body with the given
// context, without touching the output tree.
func (b *Builder) RenderPageString(content string, pctx *PageContext) (string, error) {
	var buf bytes.Buffer
	if err := b.tm.ExecuteString(&buf, content, pctx); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (b *Builder) renderPage(ctx context.Context, src Source, pctx *PageContext, indexer *search.Indexer) error {
	raw, err := os.ReadFile(filepath.Join(b.config.SourceDir, filepath.FromSlash(src.Path)))
	if err != nil {
		return fmt.Errorf("failed to read page %s: %w", src.Path, err)
	}

	renderStart := time.Now()
	rendered, err := b.RenderPageString(string(raw), pctx)
	if err != nil {
		return fmt.Errorf("failed to render page %s: %w", src.Path, err)
	}
	b.observeRender(renderStart)

	if err = b.writeOutput(src, []byte(rendered)); err != nil {
		return err
	}
	if indexer != nil {
		return indexer.AddPage(ctx, URLPath(src.Path, src.Kind, b.config.DirectoryURLs), rendered)
	}
	return nil
}

func (b *Builder) renderModule(ctx context.Context, src Source, indexer *search.Indexer) error {
	module, err := b.loader.Load(filepath.Join(b.config.SourceDir, filepath.FromSlash(src.Path)))
	if err != nil {
		return err
	}

	renderStart := time.Now()
	var buf bytes.Buffer
	if err = b.tm.ExecuteModule(&buf, module); err != nil {
		return fmt.Errorf("failed to render module %s: %w", module.Name, err)
	}
	b.observeRender(renderStart)

	if err = b.writeOutput(src, buf.Bytes()); err != nil {
		return err
	}
	if indexer != nil {
		return indexer.AddPage(ctx, URLPath(src.Path, src.Kind, b.config.DirectoryURLs), buf.String())
	}
	return nil
}

func (b *Builder) copyAsset(src Source) error {
	in, err := os.Open(filepath.Join(b.config.SourceDir, filepath.FromSlash(src.Path)))
	if err != nil {
		return fmt.Errorf("failed to open asset %s: %w", src.Path, err)
	}
	defer func(in *os.File) {
		_ = in.Close()
	}(in)

	dest := filepath.Join(b.config.OutputDir, filepath.FromSlash(DestPath(src.Path, src.Kind, b.config.DirectoryURLs)))
	if err = os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err = atomic.WriteFile(dest, in); err != nil {
		return fmt.Errorf("failed to copy asset %s: %w", src.Path, err)
	}
	return nil
}

func (b *Builder) writeOutput(src Source, content []byte) error {
	dest := filepath.Join(b.config.OutputDir, filepath.FromSlash(DestPath(src.Path, src.Kind, b.config.DirectoryURLs)))
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	if err := atomic.WriteFile(dest, bytes.NewReader(content)); err != nil {
		return fmt.Errorf("failed to write %s: %w", dest, err)
	}
	return nil
}
