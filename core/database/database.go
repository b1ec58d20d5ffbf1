// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

// Package database owns the lifetime of the optional application database.
//
// The server does not query the database itself; it connects at startup so a
// misconfigured DATABASE_URL fails fast, exposes its health, and disconnects
// on every shutdown path.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	// Pure Go SQLite driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

var (
	// ErrDisabled is returned by Ping when no database is configured.
	ErrDisabled = errors.New("database disabled")

	// ErrUnsupportedScheme is returned by Open for URLs no linked driver can serve.
	ErrUnsupportedScheme = errors.New("unsupported database URL scheme")
)

const (
	driverName  = "sqlite"
	pingTimeout = 5 * time.Second
)

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA foreign_keys=ON",
	"PRAGMA busy_timeout=5000",
}

// DB is an open database connection. A nil *DB means no database is configured.
type DB struct {
	conn   *sql.DB
	scheme string
}

// Open connects to the database at rawURL.
//
// An empty URL is not an error: a warning is logged and a nil *DB returned.
func Open(ctx context.Context, rawURL string) (*DB, error) {
	if rawURL == "" {
		log.Warn().Msg("DATABASE_URL not set, skipping database connection")

		return nil, nil //nolint:nilnil // a nil handle is the disabled state
	}

	scheme, dsn, err := parseURL(rawURL)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{conn: conn, scheme: scheme}

	for _, pragma := range pragmas {
		if _, err := conn.ExecContext(ctx, pragma); err != nil {
			_ = conn.Close()

			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := db.Ping(ctx); err != nil {
		_ = conn.Close()

		return nil, err
	}

	log.Info().
		Str("scheme", scheme).
		Msg("Connected to the database")

	return db, nil
}

// parseURL maps a DATABASE_URL onto a modernc.org/sqlite data source name.
//
// Accepted forms are "sqlite:path", "sqlite://path" and "file:path[?query]".
func parseURL(rawURL string) (string, string, error) {
	switch {
	case strings.HasPrefix(rawURL, "file:"):
		return "file", rawURL, nil
	case strings.HasPrefix(rawURL, "sqlite://"):
		return "sqlite", strings.TrimPrefix(rawURL, "sqlite://"), nil
	case strings.HasPrefix(rawURL, "sqlite:"):
		return "sqlite", strings.TrimPrefix(rawURL, "sqlite:"), nil
	}

	scheme, _, found := strings.Cut(rawURL, ":")
	if !found {
		scheme = rawURL
	}

	return "", "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, scheme)
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	if db == nil {
		return ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}

// Enabled reports whether a database is configured.
func (db *DB) Enabled() bool {
	return db != nil
}

// Close disconnects from the database. It is safe to call on a nil *DB and
// more than once.
func (db *DB) Close() error {
	if db == nil || db.conn == nil {
		return nil
	}

	err := db.conn.Close()
	db.conn = nil

	if err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Info().Msg("Disconnected from the database")

	return nil
}
