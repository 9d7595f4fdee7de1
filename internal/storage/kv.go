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
	"time"
)

// language=SQL
// dialect=SQLite
const selectKVSQL = `SELECT value FROM kv WHERE key = ?`

// language=SQL
// dialect=SQLite
const upsertKVSQL = `INSERT INTO kv(key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const deleteKVSQL = `DELETE FROM kv WHERE key = ?`

// GetContext returns the value stored under key.
func (s *StateDB) GetContext(ctx context.Context, key string) ([]byte, bool, error) {
	var v []byte
	err := s.db.QueryRowContext(ctx, selectKVSQL, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return v, true, nil
}

// SetContext stores value under key, replacing any previous value.
func (s *StateDB) SetContext(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	if _, err := s.db.ExecContext(ctx, upsertKVSQL, key, value, stamp(time.Now())); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

// DeleteContext removes key.
func (s *StateDB) DeleteContext(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, deleteKVSQL, key)
	return err
}

// Get is the context-free key-value read used by the palette store.
// Read errors are reported as absence.
func (s *StateDB) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()
	v, ok, err := s.GetContext(ctx, key)
	if err != nil {
		return nil, false
	}
	return v, ok
}

// Set is the context-free key-value write used by the palette store.
func (s *StateDB) Set(key string, value []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()
	return s.SetContext(ctx, key, value)
}
