package moddata

// Index holds a loaded set of modules and computes the cross-module views
// the documentation pages iterate over. Aggregation never mutates the
// loaded modules: every returned record is a copy with the Module field
// stamped with the providing module's name.
//
// Record order within a module is preserved, and modules contribute in
// load order, so all views are deterministic for a given input set.
type Index struct {
	modules []*Module
	byName  map[string]*Module
}

// NewIndex builds an Index over the given modules.
func NewIndex(modules []*Module) *Index {
	byName := make(map[string]*Module, len(modules))
	for _, m := range modules {
		byName[m.Name] = m
	}
	return &Index{modules: modules, byName: byName}
}

// Modules returns the indexed modules in load order.
func (ix *Index) Modules() []*Module {
	return ix.modules
}

// Module looks up a single module by name.
func (ix *Index) Module(name string) (*Module, bool) {
	m, ok := ix.byName[name]
	return m, ok
}

// Chmodes returns every channel mode provided by any module.
func (ix *Index) Chmodes() []Mode {
	var out []Mode
	for _, m := range ix.modules {
		if m.Chmodes == nil {
			continue
		}
		out = append(out, stampModes(m.Chmodes.Chars, m.Name)...)
	}
	return out
}

// Umodes returns every user mode provided by any module.
func (ix *Index) Umodes() []Mode {
	var out []Mode
	for _, m := range ix.modules {
		if m.Umodes == nil {
			continue
		}
		out = append(out, stampModes(m.Umodes.Chars, m.Name)...)
	}
	return out
}

// Extbans returns every extended ban provided by any module.
func (ix *Index) Extbans() []ExtBan {
	var out []ExtBan
	for _, m := range ix.modules {
		if m.Extbans == nil {
			continue
		}
		for _, eb := range m.Extbans.Chars {
			eb.Module = m.Name
			out = append(out, eb)
		}
	}
	return out
}

// Snomasks returns every server notice mask provided by any module.
func (ix *Index) Snomasks() []Snomask {
	var out []Snomask
	for _, m := range ix.modules {
		for _, sno := range m.Snomasks {
			sno.Module = m.Name
			out = append(out, sno)
		}
	}
	return out
}

// TagExtensions collects the added values that extending configuration
// tags contribute, grouped by the name of the tag being extended. A tag
// entry that names several tags contributes its added values to each of
// them.
func (ix *Index) TagExtensions() map[string][]TagAttribute {
	out := make(map[string][]TagAttribute)
	for _, m := range ix.modules {
		for _, tag := range m.Configuration {
			if !tag.Extends {
				continue
			}
			for _, name := range tag.Name {
				for _, added := range tag.AddedValues {
					added.Module = m.Name
					out[name] = append(out[name], added)
				}
			}
		}
	}
	return out
}

func stampModes(modes []Mode, module string) []Mode {
	out := make([]Mode, len(modes))
	for i, mode := range modes {
		mode.Module = module
		out[i] = mode
	}
	return out
}
