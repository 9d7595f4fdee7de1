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
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"emojiart/internal/domain"
	applog "emojiart/internal/log"
)

// Autosave persists the current document to a single file and, when a state database
// is attached, records every write as a revision tagged with the session id.
type Autosave struct {
	mu      sync.Mutex
	path    string
	db      *StateDB
	keep    int
	session string
	log     *slog.Logger
}

type AutosaveOption func(*Autosave)

// WithRevisions records each save in db, keeping at most keep revisions (<= 0 keeps all).
func WithRevisions(db *StateDB, keep int) AutosaveOption {
	return func(a *Autosave) {
		a.db = db
		a.keep = keep
	}
}

// WithSession overrides the generated session id.
func WithSession(id string) AutosaveOption {
	return func(a *Autosave) { a.session = id }
}

// NewAutosave returns an autosave service for the file at path.
func NewAutosave(path string, opts ...AutosaveOption) *Autosave {
	a := &Autosave{path: path, session: uuid.NewString()}
	for _, o := range opts {
		o(a)
	}
	a.log = applog.WithComponent("storage").With(slog.String("session", a.session))
	return a
}

func (a *Autosave) Path() string    { return a.path }
func (a *Autosave) Session() string { return a.session }

// Load restores the autosaved document. A missing or malformed file yields an empty
// document; a malformed file is first retried from its newest backup.
func (a *Autosave) Load() domain.Document {
	l := applog.WithOperation(a.log, "autosave_load")
	doc, err := LoadDocument(a.path)
	if err == nil {
		return doc
	}
	if errors.Is(err, domain.ErrDecode) {
		if b, berr := ReadLatestBackup(a.path); berr == nil {
			if d, derr := domain.Decode(b); derr == nil {
				l.Warn("autosave corrupt, restored from backup", slog.Any("err", err))
				return d
			}
		}
		l.Warn("autosave corrupt, starting empty", slog.Any("err", err))
		return domain.New()
	}
	l.Debug("no autosave, starting empty", slog.Any("err", err))
	return domain.New()
}

// Save writes doc to the autosave file and records a revision.
// Failing to record the revision is logged but not returned once the file is written.
func (a *Autosave) Save(doc domain.Document) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	l := applog.WithOperation(a.log, "autosave")
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	if err := WriteFile(a.path, data); err != nil {
		l.Error("autosave write failed", slog.String("path", a.path), slog.Any("err", err))
		return err
	}
	l.Debug("autosaved", slog.Int("glyphs", doc.Len()), slog.Int("bytes", len(data)))
	if a.db == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), defaultOpTimeout)
	defer cancel()
	if _, err := a.db.AddRevision(ctx, Revision{Session: a.session, TS: time.Now(), Glyphs: doc.Len(), Doc: data}); err != nil {
		l.Warn("record revision failed", slog.Any("err", err))
		return nil
	}
	if n, err := a.db.PruneRevisions(ctx, a.keep); err != nil {
		l.Warn("prune revisions failed", slog.Any("err", err))
	} else if n > 0 {
		l.Debug("pruned revisions", slog.Int64("count", n))
	}
	return nil
}

// LoadDocument reads and decodes the document file at path, falling back to the newest
// backup when the file itself is missing.
func LoadDocument(path string) (domain.Document, error) {
	b, err := ReadFile(path)
	if err != nil {
		return domain.New(), err
	}
	return domain.Decode(b)
}

// SaveDocument encodes doc and writes it to path.
func SaveDocument(path string, doc domain.Document) error {
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return WriteFile(path, data)
}
