package site

import (
	"path"
	"path/filepath"
	"strings"
)

// SourceKind classifies a file found in the docs source tree.
type SourceKind int

const (
	// KindPage is a markdown page, possibly containing template directives.
	KindPage SourceKind = iota
	// KindModule is a module description YAML file under a modules/ dir.
	KindModule
	// KindAsset is anything else, copied through unchanged.
	KindAsset
)

// Source is one file of the docs source tree. Path is slash-separated and
// relative to the source root.
type Source struct {
	Path string
	Kind SourceKind
}

// Classify determines what kind of source a relative path is. Module
// description files are *.yml files whose parent directory is named
// "modules"; yml files anywhere else stay assets.
func Classify(rel string) SourceKind {
	rel = filepath.ToSlash(rel)
	switch {
	case strings.HasSuffix(rel, ".md"):
		return KindPage
	case strings.HasSuffix(rel, ".yml") && path.Base(path.Dir(rel)) == "modules":
		return KindModule
	default:
		return KindAsset
	}
}

// DestPath maps a source path to its output path. With directory URLs
// enabled, rendered pages become pretty directories ("3/channel-modes.md"
// renders to "3/channel-modes/index.md") so their site URLs end in a
// slash; an index.md already names its directory and maps onto itself.
// Assets keep their path either way.
func DestPath(rel string, kind SourceKind, directoryURLs bool) string {
	rel = filepath.ToSlash(rel)
	if kind == KindAsset {
		return rel
	}

	dir := path.Dir(rel)
	name := strings.TrimSuffix(path.Base(rel), path.Ext(rel))

	if !directoryURLs {
		return path.Join(dir, name+".md")
	}
	if name == "index" {
		return path.Join(dir, "index.md")
	}
	return path.Join(dir, name, "index.md")
}

// URLPath maps a source path to the site URL it is served under.
func URLPath(rel string, kind SourceKind, directoryURLs bool) string {
	dest := DestPath(rel, kind, directoryURLs)
	if kind == KindAsset {
		return "/" + dest
	}
	if directoryURLs {
		return "/" + strings.TrimSuffix(dest, "index.md")
	}
	return "/" + dest
}
