package moddata

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const banModuleYAML = `name: gecosban
description: Adds extended ban r which matches against user real names.
added: "3.0"
extbans:
  chars:
    - char: r
      name: realname
      type: Matching
      syntax: "r:<realname>"
      description: Matches users with a matching real name.
`

const censorModuleYAML = `name: censor
description: Allows channels to strip words from messages.
configuration:
  - name: censor
    description: Defines a censored word.
    attributes:
      - name: find
        type: Text
        required: true
        description: The word to find.
chmodes:
  chars:
    - char: G
      name: censor
      description: Enables censoring on the channel.
`

// writeModuleFile is a helper that drops a module YAML file into dir.
func writeModuleFile(tb testing.TB, dir, name, content string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		tb.Fatalf("failed to write module file %s: %v", name, err)
	}
	return path
}

func newTestLoader(tb testing.TB) *Loader {
	tb.Helper()
	loader, err := NewLoader(0, true)
	if err != nil {
		tb.Fatalf("NewLoader failed: %v", err)
	}
	return loader
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := writeModuleFile(t, dir, "gecosban.yml", banModuleYAML)
	loader := newTestLoader(t)

	m, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if m.Name != "gecosban" {
		t.Errorf("expected module name 'gecosban', got %q", m.Name)
	}
	if m.Extbans == nil || len(m.Extbans.Chars) != 1 {
		t.Fatal("expected exactly one extban")
	}
	eb := m.Extbans.Chars[0]
	if eb.Char != "r" || eb.Type != ExtBanMatching || eb.Syntax != "r:<realname>" {
		t.Errorf("extban parsed incorrectly: %+v", eb)
	}
	if eb.Module != "" {
		t.Errorf("Module field must not be populated from YAML, got %q", eb.Module)
	}
}

func TestLoader_LoadCaches(t *testing.T) {
	dir := t.TempDir()
	path := writeModuleFile(t, dir, "gecosban.yml", banModuleYAML)
	loader := newTestLoader(t)

	first, err := loader.Load(path)
	if err != nil {
		t.Fatalf("first Load failed: %v", err)
	}

	// Break the file on disk; a cached load must not notice.
	if err = os.WriteFile(path, []byte("name: ["), 0644); err != nil {
		t.Fatalf("failed to overwrite module file: %v", err)
	}
	second, err := loader.Load(path)
	if err != nil {
		t.Fatalf("cached Load failed: %v", err)
	}
	if first != second {
		t.Error("expected cached Load to return the same *Module")
	}

	loader.Invalidate()
	if _, err = loader.Load(path); err == nil {
		t.Error("expected an error after Invalidate on a broken file, got nil")
	}
}

func TestLoader_LoadStrictRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	path := writeModuleFile(t, dir, "bad.yml", "name: bad\ndescription: x\nsurprise: true\n")
	loader := newTestLoader(t)

	if _, err := loader.Load(path); err == nil {
		t.Fatal("expected strict loader to reject unknown field 'surprise'")
	}
}

func TestLoader_LoadDir(t *testing.T) {
	dir := t.TempDir()
	// Written out of name order; LoadDir must sort.
	writeModuleFile(t, dir, "gecosban.yml", banModuleYAML)
	writeModuleFile(t, dir, "censor.yml", censorModuleYAML)
	loader := newTestLoader(t)

	modules, err := loader.LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir failed: %v", err)
	}
	if len(modules) != 2 {
		t.Fatalf("expected 2 modules, got %d", len(modules))
	}
	if modules[0].Name != "censor" || modules[1].Name != "gecosban" {
		t.Errorf("modules not in file-name order: %s, %s", modules[0].Name, modules[1].Name)
	}
}

func TestLoader_LoadDirNamesBadFile(t *testing.T) {
	dir := t.TempDir()
	writeModuleFile(t, dir, "broken.yml", "description: module with no name\n")
	loader := newTestLoader(t)

	_, err := loader.LoadDir(dir)
	if err == nil {
		t.Fatal("expected LoadDir to fail on a module without a name")
	}
	if !strings.Contains(err.Error(), "broken.yml") {
		t.Errorf("error should name the offending file, got: %v", err)
	}
}

func TestLoader_LoadConfigTags(t *testing.T) {
	dir := t.TempDir()
	content := `- name: server
  description: Describes the server.
  attributes:
    - name: network
      type: Text
      description: The network name.
- name: [bind, listen]
  description: Defines a listener.
`
	path := filepath.Join(dir, "_data.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write tag data: %v", err)
	}
	loader := newTestLoader(t)

	tags, err := loader.LoadConfigTags(path)
	if err != nil {
		t.Fatalf("LoadConfigTags failed: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if len(tags[1].Name) != 2 || tags[1].Name[0] != "bind" {
		t.Errorf("list-valued tag name parsed incorrectly: %v", tags[1].Name)
	}
}
