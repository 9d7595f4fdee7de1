/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	applog "emojiart/internal/log"
	"emojiart/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

// schemaVersion tracks the local SQLite schema of the state database.
// Bump this when you perform breaking schema changes and add migrations.
const schemaVersion = 2

// tsLayout is fixed-width so timestamps sort lexicographically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

func stamp(t time.Time) string { return t.UTC().Format(tsLayout) }

// defaultOpTimeout bounds calls made through the context-free key-value API.
const defaultOpTimeout = 5 * time.Second

// StateDB is the per-user SQLite database holding palettes, the image cache and revisions.
type StateDB struct {
	db   *sql.DB
	path string
}

// OpenStateDB ensures the SQLite state database exists at path, opens it, enables WAL mode
// and ensures the meta/version tables and the state schema exist.
// Callers must Close it when no longer needed.
func OpenStateDB(path string) (*StateDB, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "state_open").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create state dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	// Convert to forward slashes for the SQLite URI.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: a single connection serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureStateSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure state schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("state db ready")
	return &StateDB{db: db, path: path}, nil
}

// OpenOrRecoverStateDB opens the state database. If it cannot be opened or fails an integrity
// check, the file is copied to a timestamped backup, removed and recreated empty.
// It reports whether a recovery happened.
func OpenOrRecoverStateDB(ctx context.Context, path string) (*StateDB, bool, error) {
	s, err := OpenStateDB(path)
	if err == nil {
		if cerr := s.QuickCheck(ctx); cerr == nil {
			return s, false, nil
		}
		_ = s.Close()
	}
	applog.WithComponent("storage").Warn("state db unusable, recreating", slog.String("path", path), slog.Any("err", err))
	backupStateFile(path)
	for _, suffix := range []string{"", "-wal", "-shm"} {
		_ = os.Remove(path + suffix)
	}
	s, err = OpenStateDB(path)
	if err != nil {
		return nil, true, err
	}
	return s, true, nil
}

// backupStateFile copies the current database file into a timestamped backup next to it.
func backupStateFile(path string) {
	bdir := BackupDir(path)
	_ = os.MkdirAll(bdir, 0o755)
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), backupStamp()))
	if data, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// Path returns the database file path.
func (s *StateDB) Path() string { return s.path }

// Close closes the database.
func (s *StateDB) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// QuickCheck runs SQLite's quick_check and probes the state tables.
func (s *StateDB) QuickCheck(ctx context.Context) error {
	var chk string
	if err := s.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.Contains(strings.ToLower(chk), "ok") {
		return fmt.Errorf("quick_check: %s", chk)
	}
	for _, t := range []string{"kv", "image_cache", "revisions"} {
		if _, err := s.db.ExecContext(ctx, `SELECT 1 FROM `+t+` LIMIT 1;`); err != nil {
			return fmt.Errorf("probe %s: %w", t, err)
		}
	}
	return nil
}

// SchemaVersion returns the schema number recorded in the version table.
func (s *StateDB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v)
	return v, err
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh DB starts at the current schema
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Update app and timestamp only; keep existing schema for migrations
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// ensureStateSchema creates the state tables if they do not exist.
func ensureStateSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Key-value store (palettes and other small settings)
		`CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		// Remote background images keyed by URL
		`CREATE TABLE IF NOT EXISTS image_cache (
			url         TEXT PRIMARY KEY,
			data        BLOB    NOT NULL,
			size        INTEGER NOT NULL,
			fetched_at  TEXT    NOT NULL,
			last_access TEXT    NOT NULL
		);`,
		// Autosaved document history
		`CREATE TABLE IF NOT EXISTS revisions (
			id      INTEGER PRIMARY KEY,
			session TEXT NOT NULL,
			ts      TEXT NOT NULL,
			glyphs  INTEGER NOT NULL,
			doc     BLOB NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_image_cache_access ON image_cache(last_access);`,
		`CREATE INDEX IF NOT EXISTS idx_revisions_ts ON revisions(ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure state schema: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		// Newer app wrote this DB; do not downgrade
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_image_cache_access ON image_cache(last_access);`,
				`CREATE INDEX IF NOT EXISTS idx_revisions_ts ON revisions(ts);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}
