package site

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ircdocs/modref/pkg/moddata"
	"github.com/ircdocs/modref/pkg/search"
	"github.com/ircdocs/modref/pkg/templating"
)

const extbansPageMD = `# Extended Bans

Extended bans extend the ban mask syntax.

<table>
{{range sortByChar .Extbans}}<tr><td>{{code .Char}}</td><td>{{.Type}}</td><td>{{syntaxCell .Syntax}}</td><td>{{moduleLink .Module}}</td><td>{{tableCell .Description}}</td></tr>
{{end}}</table>
`

var moduleFixtures = map[string]string{
	"gecosban.yml": `name: gecosban
description: Adds extended ban r, matching real names.
extbans:
  chars:
    - char: r
      type: Matching
      syntax: "r:<realname>"
      description: Matches users with a matching real name.
`,
	"muteban.yml": `name: muteban
description: Adds extended ban m, mute bans.
extbans:
  chars:
    - char: m
      type: Acting
      syntax: "m:<mask>"
      description: Stops matching users from speaking.
`,
	"blockcaps.yml": `name: blockcaps
description: Adds extended ban B, blocking capital letters.
extbans:
  chars:
    - char: B
      type: Acting
      syntax: None
      description: Blocks messages in capital letters.
`,
}

// setupDocsTree writes a small but representative docs source tree.
func setupDocsTree(tb testing.TB) string {
	tb.Helper()
	root := tb.TempDir()
	docs := filepath.Join(root, "docs")

	dirs := []string{
		filepath.Join(docs, "3", "modules"),
		filepath.Join(docs, "3", "configuration"),
		filepath.Join(docs, "css"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			tb.Fatalf("failed to create %s: %v", dir, err)
		}
	}

	files := map[string]string{
		filepath.Join(docs, "index.md"):                        "# Module Reference\n\nWelcome.\n",
		filepath.Join(docs, "3", "extended-bans.md"):           extbansPageMD,
		filepath.Join(docs, "3", "configuration", "_data.yml"): "- name: server\n  description: Describes the server.\n",
		filepath.Join(docs, "css", "style.css"):                "body { color: black; }\n",
	}
	for name, content := range moduleFixtures {
		files[filepath.Join(docs, "3", "modules", name)] = content
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			tb.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return root
}

func setupBuilder(tb testing.TB, root string, db *sql.DB) *Builder {
	tb.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	loader, err := moddata.NewLoader(0, true)
	if err != nil {
		tb.Fatalf("NewLoader failed: %v", err)
	}
	tm, err := templating.NewManager(logger, templating.DefaultConfig(), "")
	if err != nil {
		tb.Fatalf("NewManager failed: %v", err)
	}

	config := DefaultConfig()
	config.SourceDir = filepath.Join(root, "docs")
	config.OutputDir = filepath.Join(root, "site")
	return NewBuilder(logger, loader, tm, config, db)
}

func setupBuildDB(tb testing.TB) *sql.DB {
	tb.Helper()
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", tb.Name()))
	if err != nil {
		tb.Fatalf("failed to open in-memory db: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	if err = search.SetupSchema(db); err != nil {
		tb.Fatalf("failed to setup search schema: %v", err)
	}
	return db
}

func TestBuilder_Build(t *testing.T) {
	root := setupDocsTree(t)
	db := setupBuildDB(t)
	b := setupBuilder(t, root, db)

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if report.Pages != 2 || report.Modules != 3 || report.Assets != 1 {
		t.Errorf("unexpected report: %+v", report)
	}
	if report.BuildID == "" {
		t.Error("report has no build ID")
	}

	// Rendered outputs land at their mapped destinations.
	for _, dest := range []string{
		"index.md",
		filepath.Join("3", "extended-bans", "index.md"),
		filepath.Join("3", "modules", "muteban", "index.md"),
		filepath.Join("css", "style.css"),
	} {
		if _, err = os.Stat(filepath.Join(root, "site", dest)); err != nil {
			t.Errorf("expected output file %s: %v", dest, err)
		}
	}

	// The core config data file is context, not a page.
	if _, err = os.Stat(filepath.Join(root, "site", "3", "configuration", "_data.yml")); err == nil {
		t.Error("_data.yml should not be copied into the site")
	}
}

// TestBuilder_ExtbanTableProperties checks the rendered extended-bans page
// against the reference table rules: one row per record, rows in
// non-decreasing char order, the None placeholder, verbatim syntax, and
// module cross-reference links.
func TestBuilder_ExtbanTableProperties(t *testing.T) {
	root := setupDocsTree(t)
	b := setupBuilder(t, root, nil)

	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := os.ReadFile(filepath.Join(root, "site", "3", "extended-bans", "index.md"))
	if err != nil {
		t.Fatalf("failed to read rendered page: %v", err)
	}
	page := string(out)

	// Exactly one row per input record.
	if rows := strings.Count(page, "<tr>"); rows != len(moduleFixtures) {
		t.Errorf("expected %d table rows, got %d:\n%s", len(moduleFixtures), rows, page)
	}

	// Non-decreasing char order: B < m < r.
	iB := strings.Index(page, "<td>`B`</td>")
	im := strings.Index(page, "<td>`m`</td>")
	ir := strings.Index(page, "<td>`r`</td>")
	if iB < 0 || im < 0 || ir < 0 {
		t.Fatalf("missing rows in rendered page:\n%s", page)
	}
	if !(iB < im && im < ir) {
		t.Errorf("rows out of char order: B=%d m=%d r=%d", iB, im, ir)
	}

	// "None" renders as the placeholder, other syntax verbatim.
	if !strings.Contains(page, "<td>*None*</td>") {
		t.Error("parameterless extban should render the italicized placeholder")
	}
	if strings.Contains(page, "<td>None</td>") {
		t.Error("the literal 'None' leaked into a syntax cell")
	}
	if !strings.Contains(page, "`r:<realname>`") {
		t.Error("syntax value not rendered verbatim")
	}

	// Module cells link to /3/modules/<module>/.
	for module := range map[string]bool{"gecosban": true, "muteban": true, "blockcaps": true} {
		want := fmt.Sprintf("[%s](/3/modules/%s/)", module, module)
		if !strings.Contains(page, want) {
			t.Errorf("missing module link %q", want)
		}
	}
}

func TestBuilder_IndexesRenderedPages(t *testing.T) {
	root := setupDocsTree(t)
	db := setupBuildDB(t)
	b := setupBuilder(t, root, db)
	ctx := context.Background()

	report, err := b.Build(ctx)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	results, err := search.Search(ctx, db, "ban mask syntax", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].Path != "/3/extended-bans/" {
		t.Fatalf("expected the extended-bans page, got %+v", results)
	}

	builds, err := search.RecentBuilds(ctx, db, 5)
	if err != nil {
		t.Fatalf("RecentBuilds failed: %v", err)
	}
	if len(builds) != 1 || builds[0].BuildID != report.BuildID {
		t.Errorf("build not recorded: %+v", builds)
	}
	if builds[0].PageCount != report.Pages+report.Modules {
		t.Errorf("expected %d indexed pages, recorded %d", report.Pages+report.Modules, builds[0].PageCount)
	}
}

func TestBuilder_RenderObserver(t *testing.T) {
	root := setupDocsTree(t)
	b := setupBuilder(t, root, nil)

	var observed int
	b.SetRenderObserver(func(d time.Duration) {
		if d < 0 {
			t.Errorf("negative render duration %v", d)
		}
		observed++
	})

	report, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if observed != report.Pages+report.Modules {
		t.Errorf("expected %d render observations, got %d", report.Pages+report.Modules, observed)
	}
}

func TestBuilder_BadPageFailsBuild(t *testing.T) {
	root := setupDocsTree(t)
	badPage := filepath.Join(root, "docs", "3", "broken.md")
	if err := os.WriteFile(badPage, []byte("{{range .Extbans}}no end\n"), 0644); err != nil {
		t.Fatalf("failed to write broken page: %v", err)
	}
	b := setupBuilder(t, root, nil)

	_, err := b.Build(context.Background())
	if err == nil {
		t.Fatal("expected build to fail on a broken page")
	}
	if !strings.Contains(err.Error(), "broken.md") {
		t.Errorf("error should name the broken page, got: %v", err)
	}
}

func TestBuilder_ContextCancellation(t *testing.T) {
	root := setupDocsTree(t)
	b := setupBuilder(t, root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Build(ctx); err == nil {
		t.Fatal("expected build to stop on a cancelled context")
	}
}

func TestDiscover(t *testing.T) {
	root := setupDocsTree(t)
	sources, err := Discover(filepath.Join(root, "docs"))
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	kinds := map[SourceKind]int{}
	for _, src := range sources {
		kinds[src.Kind]++
	}
	if kinds[KindPage] != 2 {
		t.Errorf("expected 2 pages, got %d", kinds[KindPage])
	}
	if kinds[KindModule] != 3 {
		t.Errorf("expected 3 modules, got %d", kinds[KindModule])
	}
	if kinds[KindAsset] != 1 {
		t.Errorf("expected 1 asset, got %d", kinds[KindAsset])
	}
}
