package search

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const searchSchema = `
CREATE TABLE IF NOT EXISTS pages (
    path          TEXT      PRIMARY KEY,
    title         TEXT      NOT NULL,
    body          TEXT      NOT NULL,
    build_id      TEXT      NOT NULL,
    rendered_at   DATETIME  NOT NULL
);
CREATE TABLE IF NOT EXISTS builds (
    build_id      TEXT      PRIMARY KEY,
    started_at    DATETIME  NOT NULL,
    finished_at   DATETIME  NOT NULL,
    page_count    INTEGER   NOT NULL
);
`

// SetupSchema creates the search tables if they do not exist.
func SetupSchema(db *sql.DB) error {
	if _, err := db.Exec(searchSchema); err != nil {
		return fmt.Errorf("failed to setup search schema: %w", err)
	}
	return nil
}

// BuildRecord is one row of build history.
type BuildRecord struct {
	BuildID    string    `json:"build_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	PageCount  int       `json:"page_count"`
}

// Indexer accumulates one build's worth of page index entries in a single
// transaction. Either the whole build lands in the index or none of it
// does; a failed build never leaves the index half-updated.
type Indexer struct {
	tx      *sql.Tx
	buildID string
	started time.Time
	pages   int
}

// NewIndexer opens an indexing transaction for the given build.
func NewIndexer(ctx context.Context, db *sql.DB, buildID string, started time.Time) (*Indexer, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("could not begin index transaction: %w", err)
	}
	return &Indexer{tx: tx, buildID: buildID, started: started}, nil
}

// AddPage upserts one rendered page. The rendered markdown is reduced to
// plain text before storage so matches are against prose, not markup.
func (ix *Indexer) AddPage(ctx context.Context, path, rendered string) error {
	title, body := extractText(rendered)
	_, err := ix.tx.ExecContext(ctx, `
        INSERT INTO pages (path, title, body, build_id, rendered_at) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(path) DO UPDATE SET title = ?, body = ?, build_id = ?, rendered_at = ?
    `, path, title, body, ix.buildID, time.Now(), title, body, ix.buildID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to upsert page %s: %w", path, err)
	}
	ix.pages++
	return nil
}

// Commit records the build and commits the transaction.
func (ix *Indexer) Commit(ctx context.Context) error {
	_, err := ix.tx.ExecContext(ctx, `
        INSERT INTO builds (build_id, started_at, finished_at, page_count) VALUES (?, ?, ?, ?)
    `, ix.buildID, ix.started, time.Now(), ix.pages)
	if err != nil {
		_ = ix.tx.Rollback()
		return fmt.Errorf("failed to record build: %w", err)
	}
	if err = ix.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index transaction: %w", err)
	}
	return nil
}

// Rollback abandons the indexing transaction. Safe to call after Commit.
func (ix *Indexer) Rollback() {
	_ = ix.tx.Rollback()
}

// RecentBuilds returns the most recent build records, newest first.
func RecentBuilds(ctx context.Context, db *sql.DB, limit int) ([]BuildRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.QueryContext(ctx,
		"SELECT build_id, started_at, finished_at, page_count FROM builds ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query builds: %w", err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var builds []BuildRecord
	for rows.Next() {
		var b BuildRecord
		if err = rows.Scan(&b.BuildID, &b.StartedAt, &b.FinishedAt, &b.PageCount); err != nil {
			return nil, fmt.Errorf("failed to scan build record: %w", err)
		}
		builds = append(builds, b)
	}
	return builds, rows.Err()
}
