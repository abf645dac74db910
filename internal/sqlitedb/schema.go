// Package sqlitedb opens the two embedded SQLite databases the crawl core
// persists to: the crawl database (resources/links/pending/documents) and
// the operational log database (messages/log_entries/thread_status).
package sqlitedb

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

const crawlSchema = `
CREATE TABLE IF NOT EXISTS resources (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT,
	url TEXT UNIQUE NOT NULL,
	timestamp DATETIME NOT NULL,
	fetched DATETIME,
	last_code INTEGER,
	document_id INTEGER REFERENCES documents(id)
);
CREATE TABLE IF NOT EXISTS links (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	text TEXT,
	referrer_id INTEGER NOT NULL REFERENCES resources(id),
	target_id INTEGER NOT NULL REFERENCES resources(id)
);
CREATE TABLE IF NOT EXISTS pending (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	priority INTEGER,
	resource_id INTEGER NOT NULL UNIQUE REFERENCES resources(id),
	depth INTEGER NOT NULL,
	retries INTEGER NOT NULL DEFAULT 0,
	timestamp DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	author TEXT,
	type TEXT,
	filename TEXT,
	meta_data TEXT,
	relevancy REAL,
	num_pages INTEGER,
	accepted BOOLEAN NOT NULL,
	timestamp DATETIME NOT NULL,
	uuid TEXT UNIQUE NOT NULL
);
`

const logSchema = `
CREATE TABLE IF NOT EXISTS messages (
	label TEXT PRIMARY KEY
);
CREATE TABLE IF NOT EXISTS log_entries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	message_label TEXT,
	text TEXT,
	thread TEXT,
	timestamp DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS thread_status (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	thread TEXT UNIQUE NOT NULL,
	status TEXT NOT NULL,
	running_time INTEGER NOT NULL DEFAULT 0,
	parsed INTEGER NOT NULL DEFAULT 0,
	added INTEGER NOT NULL DEFAULT 0,
	downloaded INTEGER NOT NULL DEFAULT 0,
	timestamp DATETIME NOT NULL
);
`

// OpenCrawlDB opens (creating if absent) the crawl database at path. If
// reset is true, an existing file is removed first so the frontier starts
// from an empty state.
func OpenCrawlDB(path string, reset bool) (*sql.DB, error) {
	return openWithSchema(path, reset, crawlSchema)
}

// OpenLogDB opens (creating if absent) the operational log database at
// path. thread_status is always truncated at process start, per the
// WorkerStatus lifecycle rule, regardless of reset.
func OpenLogDB(path string, reset bool) (*sql.DB, error) {
	db, err := openWithSchema(path, reset, logSchema)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`DELETE FROM thread_status`); err != nil {
		db.Close()
		return nil, fmt.Errorf("truncate thread_status: %w", err)
	}
	return db, nil
}

func openWithSchema(path string, reset bool, schema string) (*sql.DB, error) {
	if reset {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("reset %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1) // single-writer embedded file, per the Frontier's single-mutex design

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}
	return db, nil
}
