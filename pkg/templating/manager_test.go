package templating

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ircdocs/modref/pkg/moddata"
)

// setupTestManager creates a Manager for a single test's scope, with an
// empty template directory so only the built-ins are loaded.
func setupTestManager(tb testing.TB) *Manager {
	tb.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m, err := NewManager(logger, DefaultConfig(), tb.TempDir())
	if err != nil {
		tb.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestNewManager_LoadsBuiltins(t *testing.T) {
	m := setupTestManager(t)
	if !m.HasTemplate(ModuleTemplateName) {
		t.Fatalf("built-in %s should always be loaded", ModuleTemplateName)
	}
}

func TestManager_Refresh(t *testing.T) {
	m := setupTestManager(t)
	initialCount := len(m.GetTemplateNames())

	newTmplPath := filepath.Join(m.GetTemplateDir(), "extra.md.tmpl")
	content := `{{define "extra.md.tmpl"}}extra{{end}}`
	if err := os.WriteFile(newTmplPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write new template: %v", err)
	}

	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if len(m.GetTemplateNames()) != initialCount+1 {
		t.Errorf("expected %d templates after refresh, got %d", initialCount+1, len(m.GetTemplateNames()))
	}
}

func TestManager_DirOverridesBuiltin(t *testing.T) {
	m := setupTestManager(t)

	override := `{{define "module.md.tmpl"}}OVERRIDE {{.Name}}{{end}}`
	path := filepath.Join(m.GetTemplateDir(), "module.md.tmpl")
	if err := os.WriteFile(path, []byte(override), 0644); err != nil {
		t.Fatalf("failed to write override template: %v", err)
	}
	if err := m.Refresh(); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	var buf bytes.Buffer
	err := m.ExecuteModule(&buf, &moddata.Module{Name: "muteban", Description: "x"})
	if err != nil {
		t.Fatalf("ExecuteModule failed: %v", err)
	}
	if buf.String() != "OVERRIDE muteban" {
		t.Errorf("expected dir template to override built-in, got %q", buf.String())
	}
}

func TestManager_Execute(t *testing.T) {
	m := setupTestManager(t)
	var buf bytes.Buffer
	err := m.Execute(&buf, "nonexistent.md.tmpl", nil)
	if err == nil {
		t.Fatal("expected an error for non-existent template, but got nil")
	}
}

func TestManager_ExecuteString(t *testing.T) {
	m := setupTestManager(t)

	data := map[string]any{
		"Extbans": []moddata.ExtBan{
			{Char: "m", Type: moddata.ExtBanActing, Syntax: "m:<mask>", Module: "muteban", Description: "Mute."},
		},
	}
	content := `{{range .Extbans}}{{.Char}} via {{moduleLink .Module}}{{end}}`

	var buf bytes.Buffer
	if err := m.ExecuteString(&buf, content, data); err != nil {
		t.Fatalf("ExecuteString failed: %v", err)
	}
	want := "m via [muteban](/3/modules/muteban/)"
	if buf.String() != want {
		t.Errorf("expected %q, got %q", want, buf.String())
	}
}

// TestManager_ExecuteStringDoesNotPolluteNamedSet renders a string
// containing a define and checks the named set is untouched.
func TestManager_ExecuteStringDoesNotPolluteNamedSet(t *testing.T) {
	m := setupTestManager(t)

	content := `{{define "sneaky.md.tmpl"}}x{{end}}ok`
	var buf bytes.Buffer
	if err := m.ExecuteString(&buf, content, nil); err != nil {
		t.Fatalf("ExecuteString failed: %v", err)
	}
	if m.HasTemplate("sneaky.md.tmpl") {
		t.Error("string execution leaked a define into the named template set")
	}
}

func TestManager_SetConfig(t *testing.T) {
	m := setupTestManager(t)
	cfg := DefaultConfig()
	cfg.LinkBase = "/4"
	m.SetConfig(cfg)

	if got := m.modulePath("muteban"); got != "/4/modules/muteban/" {
		t.Errorf("SetConfig did not take effect, modulePath returned %q", got)
	}
}

// TestManager_ConcurrentRenderAndConfigUpdate races renders against
// config writers. Render paths must not re-acquire the manager lock from
// inside an executing template: a nested read lock queues behind a
// pending writer and wedges every render after it.
func TestManager_ConcurrentRenderAndConfigUpdate(t *testing.T) {
	m := setupTestManager(t)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 500; i++ {
			var buf bytes.Buffer
			if err := m.ExecuteString(&buf, `{{syntaxCell "None"}} {{moduleLink "muteban"}}`, nil); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	cfg := DefaultConfig()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("ExecuteString failed: %v", err)
			}
			return
		case <-deadline:
			t.Fatal("renders did not finish while config updates were pending")
		default:
			m.SetConfig(cfg)
		}
	}
}

// TestModuleTemplate_ExtbanTable renders a full module page and checks
// the extended ban table follows the reference table rules.
func TestModuleTemplate_ExtbanTable(t *testing.T) {
	m := setupTestManager(t)

	module := &moddata.Module{
		Name:        "banextras",
		Description: "Adds several extended bans.",
		Extbans: &moddata.ExtBanTable{
			Chars: []moddata.ExtBan{
				{Char: "z", Type: moddata.ExtBanMatching, Syntax: "z:<fp>", Description: "Matches TLS fingerprints."},
				{Char: "B", Type: moddata.ExtBanActing, Syntax: "None", Description: "Blocks caps."},
				{Char: "c", Type: moddata.ExtBanActing, Syntax: "c:<mask>", Description: "Blocks colors."},
			},
		},
	}

	var buf bytes.Buffer
	if err := m.ExecuteModule(&buf, module); err != nil {
		t.Fatalf("ExecuteModule failed: %v", err)
	}
	out := buf.String()

	// Sorted by char: B < c < z (byte order), one row per record.
	iB := strings.Index(out, "| `B` |")
	ic := strings.Index(out, "| `c` |")
	iz := strings.Index(out, "| `z` |")
	if iB < 0 || ic < 0 || iz < 0 {
		t.Fatalf("missing extban rows in output:\n%s", out)
	}
	if !(iB < ic && ic < iz) {
		t.Errorf("extban rows not sorted by char: B=%d c=%d z=%d", iB, ic, iz)
	}

	// The "None" sentinel renders as an italicized placeholder.
	if !strings.Contains(out, "*None*") {
		t.Error("parameterless extban should render the italicized placeholder")
	}
	if strings.Contains(out, "| None |") {
		t.Error("the literal sentinel 'None' leaked into the table")
	}
	// Other syntax values render verbatim.
	if !strings.Contains(out, "`z:<fp>`") {
		t.Errorf("syntax value not rendered verbatim:\n%s", out)
	}
}

func BenchmarkExecuteModule(b *testing.B) {
	m := setupTestManager(b)
	module := &moddata.Module{
		Name:        "banextras",
		Description: "Adds several extended bans.",
		Extbans: &moddata.ExtBanTable{
			Chars: []moddata.ExtBan{
				{Char: "z", Type: moddata.ExtBanMatching, Syntax: "z:<fp>", Description: "Matches TLS fingerprints."},
				{Char: "B", Type: moddata.ExtBanActing, Description: "Blocks caps."},
			},
		},
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.ExecuteModule(io.Discard, module)
	}
}
