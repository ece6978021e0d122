package moddata

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ExtBan type strings as used in module description files.
const (
	ExtBanMatching = "Matching"
	ExtBanActing   = "Acting"
)

// Module is the parsed description of a single server module. Every field
// except Name and Description is optional; a module only documents the
// features it actually provides.
type Module struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`

	// Added records the server version that introduced the module.
	Added string `yaml:"added,omitempty"`

	Configuration []ConfigTag  `yaml:"configuration,omitempty"`
	Chmodes       *ModeTable   `yaml:"chmodes,omitempty"`
	Umodes        *ModeTable   `yaml:"umodes,omitempty"`
	Extbans       *ExtBanTable `yaml:"extbans,omitempty"`
	Snomasks      []Snomask    `yaml:"snomasks,omitempty"`
}

// ModeTable documents the channel or user modes a module provides.
type ModeTable struct {
	Intro string `yaml:"intro,omitempty"`
	Chars []Mode `yaml:"chars"`
}

// Mode describes a single channel or user mode character.
type Mode struct {
	Char        string `yaml:"char"`
	Name        string `yaml:"name,omitempty"`
	Syntax      string `yaml:"syntax,omitempty"`
	Param       string `yaml:"param,omitempty"`
	Description string `yaml:"description"`

	// Module is the providing module's name, stamped by Index aggregation.
	// It is never read from YAML.
	Module string `yaml:"-"`
}

// ExtBanTable documents the extended bans a module provides.
type ExtBanTable struct {
	Intro string   `yaml:"intro,omitempty"`
	Chars []ExtBan `yaml:"chars"`
}

// ExtBan describes a single extended ban character. Type is either
// ExtBanMatching (changes how a ban mask matches) or ExtBanActing (changes
// what a matching mask does). Syntax holds the expected parameter syntax;
// the literal string "None" or an empty string means the extban takes no
// parameter.
type ExtBan struct {
	Char        string `yaml:"char"`
	Name        string `yaml:"name,omitempty"`
	Type        string `yaml:"type"`
	Syntax      string `yaml:"syntax,omitempty"`
	Description string `yaml:"description"`

	// Module is the providing module's name, stamped by Index aggregation.
	Module string `yaml:"-"`
}

// Snomask describes a single server notice mask character.
type Snomask struct {
	Char        string `yaml:"char"`
	Description string `yaml:"description"`

	// Module is the providing module's name, stamped by Index aggregation.
	Module string `yaml:"-"`
}

// ConfigTag documents a configuration tag a module reads. A tag with
// Extends set does not define a new tag but adds values to a tag owned by
// the core or another module; those added values are surfaced through
// Index.TagExtensions.
type ConfigTag struct {
	// Name is the tag name. Some modules document two tags with a single
	// entry, so a YAML scalar and a YAML sequence are both accepted.
	Name        StringList     `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Extends     bool           `yaml:"extends,omitempty"`
	Attributes  []TagAttribute `yaml:"attributes,omitempty"`
	AddedValues []TagAttribute `yaml:"added_values,omitempty"`
	Details     string         `yaml:"details,omitempty"`
	Example     string         `yaml:"example,omitempty"`
}

// TagAttribute documents one attribute of a configuration tag.
type TagAttribute struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type,omitempty"`
	Required    bool   `yaml:"required,omitempty"`
	Default     string `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`

	// Module is the contributing module's name, stamped by Index
	// aggregation for tag extensions.
	Module string `yaml:"-"`
}

// StringList is a string slice that also accepts a bare YAML scalar.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = StringList{v}
		return nil
	case yaml.SequenceNode:
		var v []string
		if err := node.Decode(&v); err != nil {
			return err
		}
		*s = v
		return nil
	default:
		return fmt.Errorf("line %d: tag name must be a string or a list of strings", node.Line)
	}
}

// Validate checks the structural rules a module description must follow
// before it can be rendered: a name, a description, and a single-character
// token for every mode, extban, and snomask entry.
func (m *Module) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("module has no name")
	}
	if m.Description == "" {
		return fmt.Errorf("module %q has no description", m.Name)
	}
	if m.Chmodes != nil {
		if err := validateModes("chmode", m.Chmodes.Chars); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
	}
	if m.Umodes != nil {
		if err := validateModes("umode", m.Umodes.Chars); err != nil {
			return fmt.Errorf("module %q: %w", m.Name, err)
		}
	}
	if m.Extbans != nil {
		for _, eb := range m.Extbans.Chars {
			if len(eb.Char) != 1 {
				return fmt.Errorf("module %q: extban char %q is not a single character", m.Name, eb.Char)
			}
			if eb.Type != ExtBanMatching && eb.Type != ExtBanActing {
				return fmt.Errorf("module %q: extban %s has invalid type %q", m.Name, eb.Char, eb.Type)
			}
			if eb.Description == "" {
				return fmt.Errorf("module %q: extban %s has no description", m.Name, eb.Char)
			}
		}
	}
	for _, sno := range m.Snomasks {
		if len(sno.Char) != 1 {
			return fmt.Errorf("module %q: snomask char %q is not a single character", m.Name, sno.Char)
		}
	}
	for _, tag := range m.Configuration {
		if len(tag.Name) == 0 {
			return fmt.Errorf("module %q: configuration tag has no name", m.Name)
		}
		if tag.Extends && len(tag.AddedValues) == 0 {
			return fmt.Errorf("module %q: extending tag %q has no added_values", m.Name, tag.Name[0])
		}
	}
	return nil
}

func validateModes(kind string, modes []Mode) error {
	for _, mode := range modes {
		if len(mode.Char) != 1 {
			return fmt.Errorf("%s char %q is not a single character", kind, mode.Char)
		}
		if mode.Description == "" {
			return fmt.Errorf("%s %s has no description", kind, mode.Char)
		}
	}
	return nil
}
