package templating

import (
	"fmt"
	"strings"
)

// syntaxCell renders a syntax value for a reference table. The sentinel
// "None" (and an empty value) means the entry takes no parameter and is
// rendered as the italicized placeholder; any other value is rendered
// verbatim inside a code span.
func (m *Manager) syntaxCell(syntax string) string {
	cfg := m.GetConfig()
	if syntax == "" || syntax == cfg.NoneSentinel {
		return cfg.NonePlaceholder
	}
	return code(syntax)
}

// moduleLink renders a markdown link to a module's reference page.
func (m *Manager) moduleLink(name string) string {
	return fmt.Sprintf("[%s](%s)", name, m.modulePath(name))
}

// modulePath returns the site path of a module's reference page,
// <LinkBase>/modules/<name>/.
func (m *Manager) modulePath(name string) string {
	return fmt.Sprintf("%s/modules/%s/", m.GetConfig().LinkBase, name)
}

// pageLink renders a markdown link to another page under the link base,
// e.g. {{pageLink "Channel Modes" "channel-modes"}}.
func (m *Manager) pageLink(text, slug string) string {
	return fmt.Sprintf("[%s](%s/%s/)", text, m.GetConfig().LinkBase, strings.Trim(slug, "/"))
}

// anchor converts a heading into the fragment identifier the rendered
// site uses: lowercased, spaces to hyphens, everything else dropped.
func anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case r == ' ' || r == '_':
			b.WriteByte('-')
		}
	}
	return b.String()
}

// code wraps a value in a markdown code span. Backticks inside the value
// are replaced; a syntax string containing a backtick would otherwise
// break out of the span.
func code(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}

// fence wraps a value in a fenced code block with the given language.
func fence(lang, s string) string {
	return "```" + lang + "\n" + strings.TrimRight(s, "\n") + "\n```"
}

// tableCell escapes a value for use inside a markdown table row.
func tableCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.ReplaceAll(s, "\n", " ")
}
