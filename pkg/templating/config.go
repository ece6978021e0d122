package templating

// Config holds all configuration options for the documentation template
// engine.
type Config struct {
	// LinkBase is the URL prefix for generated cross-reference links,
	// typically the docs version segment (e.g. "/3"). Module links are
	// built as <LinkBase>/modules/<name>/.
	LinkBase string `json:"link_base"`

	// NoneSentinel is the literal syntax value that means "this entry
	// takes no parameter". Cells carrying it render NonePlaceholder
	// instead of the sentinel text. An empty syntax means the same thing.
	NoneSentinel string `json:"none_sentinel"`

	// NonePlaceholder is the markdown emitted in place of NoneSentinel.
	NonePlaceholder string `json:"none_placeholder"`
}

// DefaultConfig returns a Config with the values the reference docs use.
func DefaultConfig() Config {
	return Config{
		LinkBase:        "/3",
		NoneSentinel:    "None",
		NonePlaceholder: "*None*",
	}
}
