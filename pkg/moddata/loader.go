package moddata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"gopkg.in/yaml.v3"
)

// DefaultCacheSize is the number of parsed files the loader keeps around.
// A full documentation tree is a few hundred files, so this is effectively
// "everything" unless the loader is shared across many versions.
const DefaultCacheSize = 10240

// Loader parses module description files, caching parse results by path.
// A Loader is safe for concurrent use; the underlying cache does its own
// locking and parsed modules are never mutated after load.
type Loader struct {
	cache  *lru.Cache[string, *Module]
	strict bool
}

// NewLoader returns a Loader with a cache of the given size. If size is
// zero or negative, DefaultCacheSize is used. When strict is true, unknown
// YAML fields are a parse error; this is what `modref validate` runs with.
func NewLoader(size int, strict bool) (*Loader, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Module](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader cache: %w", err)
	}
	return &Loader{cache: cache, strict: strict}, nil
}

// Load parses a single module description file. Results are cached, so a
// second Load of the same path returns the same *Module without touching
// the filesystem. Use Invalidate to pick up on-disk changes.
func (l *Loader) Load(path string) (*Module, error) {
	if m, ok := l.cache.Get(path); ok {
		return m, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read module file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(l.strict)

	var m Module
	if err = dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if err = m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid module file %s: %w", filepath.Base(path), err)
	}

	l.cache.Add(path, &m)
	return &m, nil
}

// LoadDir parses every *.yml file directly under dir, in file-name order.
// Module order in the returned slice determines module order in every
// aggregate view, so it must be deterministic.
func (l *Loader) LoadDir(dir string) ([]*Module, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("bad module dir pattern: %w", err)
	}
	sort.Strings(paths)

	modules := make([]*Module, 0, len(paths))
	for _, path := range paths {
		m, err := l.Load(path)
		if err != nil {
			return nil, err
		}
		modules = append(modules, m)
	}
	return modules, nil
}

// LoadConfigTags parses a standalone configuration tag data file (the core
// server's `_data.yml`), which is a plain YAML list of tags. Unlike module
// files these are not cached; there is exactly one per docs version and it
// is read once per build.
func (l *Loader) LoadConfigTags(path string) ([]ConfigTag, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config tag data: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(l.strict)

	var tags []ConfigTag
	if err = dec.Decode(&tags); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return tags, nil
}

// Invalidate drops all cached parse results. The next Load of any path
// re-reads the file from disk.
func (l *Loader) Invalidate() {
	l.cache.Purge()
}
