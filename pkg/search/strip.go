package search

import (
	"regexp"
	"strings"
)

var (
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	mdLinkRe   = regexp.MustCompile(`\[([^]]*)]\([^)]*\)`)
	frontmatRe = regexp.MustCompile(`(?s)\A---\n.*?\n---\n`)
)

// extractText reduces a rendered markdown page to an indexable title and
// plain-text body. The title is the first level-one heading; pages without
// one index with an empty title and still match on body text.
func extractText(rendered string) (title, body string) {
	rendered = frontmatRe.ReplaceAllString(rendered, "")

	var b strings.Builder
	inFence := false
	for _, line := range strings.Split(rendered, "\n") {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}

		if title == "" && strings.HasPrefix(trimmed, "# ") {
			title = cleanLine(strings.TrimPrefix(trimmed, "# "))
			continue
		}

		// Table separator rows carry no text.
		if strings.Trim(trimmed, "|-: ") == "" {
			continue
		}

		if cleaned := cleanLine(trimmed); cleaned != "" {
			b.WriteString(cleaned)
			b.WriteByte(' ')
		}
	}
	return title, strings.TrimSpace(b.String())
}

func cleanLine(line string) string {
	line = htmlTagRe.ReplaceAllString(line, " ")
	line = mdLinkRe.ReplaceAllString(line, "$1")
	line = strings.NewReplacer(
		"|", " ",
		"`", "",
		"*", "",
		"#", "",
		`\`, "",
	).Replace(line)
	return strings.Join(strings.Fields(line), " ")
}
