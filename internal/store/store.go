// Anop Relay - Real-time fanout core for the Anop social backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/anoprelay

// Package store is the relational data-access collaborator of the relay:
// chat message persistence, message status, post engagement and the counts
// that make up a reaction snapshot.
//
// Postgres (through the pgx stdlib driver) is the production backend;
// SQLite (modernc, pure Go) serves single-node and development setups.
// Queries are written with '?' placeholders and rebound per dialect.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver
)

// Dialect selects placeholder and DDL syntax.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

// Errors returned by the store.
var (
	ErrMessageNotFound = errors.New("store: message not found")
	ErrEmptyContent    = errors.New("store: content is empty after sanitizing")
)

// Config configures the database connection.
type Config struct {
	// Driver is "pgx" or "sqlite".
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectTimeout  time.Duration
}

// SQLStore implements the relay's persistence collaborator on database/sql.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

// Open connects using cfg and verifies the connection.
func Open(ctx context.Context, cfg Config) (*SQLStore, error) {
	var dialect Dialect
	switch cfg.Driver {
	case "pgx":
		dialect = Postgres
	case "sqlite":
		dialect = SQLite
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if dialect == SQLite {
		// One writer avoids SQLITE_BUSY under concurrent connections.
		db.SetMaxOpenConns(1)
	}

	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	return New(db, dialect), nil
}

// New wraps an open database.
func New(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, now: time.Now}
}

// Ping verifies the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// rebind converts '?' placeholders to the dialect's syntax.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func (s *SQLStore) timestamp() time.Time {
	return s.now().UTC()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS messages (
		id {{id}},
		sender_id BIGINT NOT NULL,
		receiver_id BIGINT NOT NULL,
		content TEXT NOT NULL,
		media_path TEXT,
		status VARCHAR(10) NOT NULL,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender_id)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages (receiver_id)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id {{id}},
		user_id BIGINT NOT NULL,
		content TEXT NOT NULL,
		reply_to BIGINT,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_posts_reply_to ON posts (reply_to)`,
	`CREATE TABLE IF NOT EXISTS post_likes (
		post_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		created_at {{ts}} NOT NULL,
		PRIMARY KEY (post_id, user_id)
	)`,
	`CREATE TABLE IF NOT EXISTS post_reposts (
		id {{id}},
		post_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		comment TEXT,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_post_reposts_post ON post_reposts (post_id, user_id)`,
	`CREATE TABLE IF NOT EXISTS post_views (
		id {{id}},
		post_id BIGINT NOT NULL,
		user_id BIGINT,
		view_day VARCHAR(10) NOT NULL,
		created_at {{ts}} NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_post_views_daily ON post_views (post_id, user_id, view_day)`,
	`CREATE TABLE IF NOT EXISTS post_bookmarks (
		post_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		created_at {{ts}} NOT NULL,
		PRIMARY KEY (post_id, user_id)
	)`,
}

// Migrate creates the tables the relay writes to if they do not exist.
func (s *SQLStore) Migrate(ctx context.Context) error {
	var r *strings.Replacer
	switch s.dialect {
	case Postgres:
		r = strings.NewReplacer("{{id}}", "BIGSERIAL PRIMARY KEY", "{{ts}}", "TIMESTAMPTZ")
	default:
		r = strings.NewReplacer("{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT", "{{ts}}", "DATETIME")
	}
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, r.Replace(stmt)); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}
