package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Result is a single search hit.
type Result struct {
	Path    string `json:"path"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

const snippetRadius = 60

// Search runs a case-insensitive substring query over page titles and
// bodies. Title matches rank before body matches; ties break on path so
// results are stable across identical builds.
func Search(ctx context.Context, db *sql.DB, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 25
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := db.QueryContext(ctx, `
        SELECT path, title, body FROM pages
        WHERE title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\'
        ORDER BY (CASE WHEN title LIKE ? ESCAPE '\' THEN 0 ELSE 1 END), path
        LIMIT ?
    `, pattern, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var results []Result
	for rows.Next() {
		var r Result
		var body string
		if err = rows.Scan(&r.Path, &r.Title, &body); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Snippet = snippet(body, query)
		results = append(results, r)
	}
	return results, rows.Err()
}

// escapeLike escapes the LIKE metacharacters in a user query.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}

// snippet cuts a window of body text around the first occurrence of the
// query. If the body does not contain the query (a title-only match), the
// start of the body is used. The window is clamped to rune boundaries so
// non-ASCII prose never yields a torn snippet.
func snippet(body, query string) string {
	pos := matchOffset(body, query)

	start := pos - snippetRadius
	if start < 0 {
		start = 0
	}
	end := pos + len(query) + snippetRadius
	if end > len(body) {
		end = len(body)
	}
	for start > 0 && !utf8.RuneStart(body[start]) {
		start--
	}
	for end < len(body) && !utf8.RuneStart(body[end]) {
		end++
	}

	out := strings.TrimSpace(body[start:end])
	if start > 0 {
		out = "..." + out
	}
	if end < len(body) {
		out += "..."
	}
	return out
}

// matchOffset finds the byte offset in body of the first case-insensitive
// occurrence of query. Lowering can change a string's byte length, so an
// offset found in the lowered body is only trusted when the lengths still
// line up; otherwise an exact match is tried and a miss centers on the
// start of the body.
func matchOffset(body, query string) int {
	lowerBody := strings.ToLower(body)
	if len(lowerBody) == len(body) {
		if pos := strings.Index(lowerBody, strings.ToLower(query)); pos >= 0 {
			return pos
		}
		return 0
	}
	if pos := strings.Index(body, query); pos >= 0 {
		return pos
	}
	return 0
}
