package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS history_records (
	id                   TEXT PRIMARY KEY,
	tenant_id            TEXT NOT NULL,
	file_name            TEXT NOT NULL,
	file_size            INTEGER NOT NULL DEFAULT 0,
	content_type         TEXT NOT NULL,
	created_at           DATETIME NOT NULL,
	status               TEXT NOT NULL,
	preview              TEXT,
	image_key            TEXT NOT NULL DEFAULT '',
	image_url            TEXT NOT NULL DEFAULT '',
	label                TEXT,
	iqa_score            REAL,
	probabilities_json   TEXT,
	filtered_images_json TEXT,
	report               TEXT,
	report_source        TEXT,
	analyzed_at          DATETIME
);

CREATE INDEX IF NOT EXISTS idx_history_tenant_created ON history_records(tenant_id, created_at);

CREATE TABLE IF NOT EXISTS history_failures (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	tenant_id  TEXT NOT NULL,
	record_id  TEXT NOT NULL,
	phase      TEXT NOT NULL,
	message    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_failures_record ON history_failures(tenant_id, record_id, created_at);
`

// Open opens (or creates) the local history database and its tables.
func Open(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_time_format=sqlite", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
