package database

import (
	"database/sql"
	_ "github.com/mattn/go-sqlite3"
)

func New(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *sql.DB) error {
	_, err := db.Exec(`
-- VELLUM Database Schema

-- Users are the authors of content.
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    display_name TEXT NOT NULL
);

-- Identities provide a way for users to authenticate.
CREATE TABLE IF NOT EXISTS identities (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id INTEGER NOT NULL,
    provider TEXT NOT NULL,
    provider_user_id TEXT NOT NULL,
    password_hash TEXT,
    FOREIGN KEY(user_id) REFERENCES users(id)
);

-- Articles hold the full revision history: every row is one revision,
-- and all revisions of one piece of content share a cid.
CREATE TABLE IF NOT EXISTS articles (
    vid INTEGER PRIMARY KEY AUTOINCREMENT,
    cid TEXT NOT NULL,
    title TEXT NOT NULL,
    slug TEXT NOT NULL,
    body TEXT NOT NULL,
    log_message TEXT NOT NULL DEFAULT '',
    author_id INTEGER NOT NULL,
    changed_at TIMESTAMP NOT NULL,
    published_at TIMESTAMP,
    is_trash INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY(author_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_articles_cid ON articles(cid);
`)
	return err
}
