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
	"errors"
	"fmt"
	"time"
)

// Revision is one autosaved document state.
type Revision struct {
	ID      int64
	Session string
	TS      time.Time
	Glyphs  int
	Doc     []byte
}

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(session, ts, glyphs, doc) VALUES (?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT id, session, ts, glyphs, doc FROM revisions ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneRevisionsSQL = `DELETE FROM revisions WHERE id NOT IN (
	SELECT id FROM revisions ORDER BY ts DESC, id DESC LIMIT ?
)`

// AddRevision records a document revision and returns its id.
func (s *StateDB) AddRevision(ctx context.Context, r Revision) (int64, error) {
	if r.TS.IsZero() {
		r.TS = time.Now()
	}
	if r.Doc == nil {
		return 0, errors.New("revision without document")
	}
	res, err := s.db.ExecContext(ctx, insertRevisionSQL, r.Session, stamp(r.TS), r.Glyphs, r.Doc)
	if err != nil {
		return 0, fmt.Errorf("insert revision: %w", err)
	}
	return res.LastInsertId()
}

// ListRevisions returns up to limit most recent revisions, newest first.
func (s *StateDB) ListRevisions(ctx context.Context, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listRevisionsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		var r Revision
		var tsStr string
		if err := rows.Scan(&r.ID, &r.Session, &tsStr, &r.Glyphs, &r.Doc); err != nil {
			return nil, err
		}
		r.TS, _ = time.Parse(tsLayout, tsStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// PruneRevisions keeps at most keepLast revisions and deletes older ones.
func (s *StateDB) PruneRevisions(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, pruneRevisionsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
