/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package palette keeps the user's named emoji palettes and persists them as JSON
// in a key-value store on every change.
package palette

import (
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"emojiart/internal/domain"
	applog "emojiart/internal/log"
)

// Palette is a named set of distinct emojis.
type Palette struct {
	Name   string `json:"name"`
	Emojis string `json:"emojis"`
	ID     int    `json:"id"`
}

// KV is the persistence primitive for palettes.
type KV interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
}

// Built-in palettes seeded into an empty store.
var seeds = []Palette{
	{Name: "Vehicles", Emojis: "🚌🚎🚗🚕🚙🚓🏎️🚑🚒🚐🛻🚚🚛🚜🦽🦼🩼🛴🚲🛵🏍️🛺"},
	{Name: "Sports", Emojis: "⚽️🏀🤿🥋🏂⛷️🪂🤸‍♀️🤺🧘‍♀️🏄‍♂️🏊‍♀️"},
}

// Store owns an ordered palette collection. It is never empty.
type Store struct {
	mu       sync.Mutex
	name     string
	kv       KV
	palettes []Palette
	log      *slog.Logger
}

// New restores the store called name from kv. An absent or corrupt payload is
// treated as no saved palettes and the built-in ones are seeded.
func New(name string, kv KV) *Store {
	s := &Store{
		name: name,
		kv:   kv,
		log:  applog.WithComponent("palette").With(slog.String("store", name)),
	}
	s.restore()
	if len(s.palettes) == 0 {
		for _, p := range seeds {
			s.insertLocked(p.Name, p.Emojis, 0)
		}
		s.persistLocked()
		s.log.Debug("seeded built-in palettes", slog.Int("count", len(s.palettes)))
	}
	return s
}

// Key is the key-value key the store persists under.
func (s *Store) Key() string { return "PaletteStore:" + s.name }

func (s *Store) Name() string { return s.name }

func (s *Store) restore() {
	b, ok := s.kv.Get(s.Key())
	if !ok {
		return
	}
	var ps []Palette
	if err := json.Unmarshal(b, &ps); err != nil {
		s.log.Warn("saved palettes unreadable, ignoring", slog.Any("err", err))
		return
	}
	s.palettes = ps
}

func (s *Store) persistLocked() {
	b, err := json.Marshal(s.palettes)
	if err != nil {
		s.log.Error("encode palettes failed", slog.Any("err", err))
		return
	}
	if err := s.kv.Set(s.Key(), b); err != nil {
		s.log.Error("persist palettes failed", slog.Any("err", err))
	}
}

// Count returns the number of palettes.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.palettes)
}

// Palettes returns a copy of the collection in order.
func (s *Store) Palettes() []Palette {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.palettes)
}

// Palette returns the palette at index, clamped into range.
func (s *Store) Palette(at int) Palette {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palettes[s.clampLocked(at)]
}

func (s *Store) clampLocked(at int) int {
	return min(max(at, 0), len(s.palettes)-1)
}

// Insert adds a palette at index (clamped into [0, count]) with an id greater than
// every existing one, and returns it.
func (s *Store) Insert(name, emojis string, at int) Palette {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.insertLocked(name, emojis, at)
	s.persistLocked()
	return p
}

func (s *Store) insertLocked(name, emojis string, at int) Palette {
	id := 0
	for _, p := range s.palettes {
		id = max(id, p.ID)
	}
	p := Palette{Name: name, Emojis: domain.UniqueGraphemes(emojis), ID: id + 1}
	at = min(max(at, 0), len(s.palettes))
	s.palettes = slices.Insert(s.palettes, at, p)
	return p
}

// Remove deletes the palette at index unless it is the last one or index is out of
// range, and returns the index to focus next.
func (s *Store) Remove(at int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.palettes) > 1 && at >= 0 && at < len(s.palettes) {
		s.palettes = slices.Delete(s.palettes, at, at+1)
		s.persistLocked()
	}
	n := len(s.palettes)
	if n == 0 {
		return 0
	}
	return (at%n + n) % n
}

// Update writes p back over the palette with the same id. It reports whether one was found.
func (s *Store) Update(p Palette) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.IndexFunc(s.palettes, func(q Palette) bool { return q.ID == p.ID })
	if i < 0 {
		return false
	}
	p.Emojis = domain.UniqueGraphemes(p.Emojis)
	s.palettes[i] = p
	s.persistLocked()
	return true
}

// Rename sets the name of the palette at index (clamped).
func (s *Store) Rename(at int, name string) Palette {
	return s.edit(at, func(p *Palette) { p.Name = name })
}

// AddEmojis prepends the emojis in text to the palette at index (clamped), dropping
// non-emoji characters and repeats.
func (s *Store) AddEmojis(at int, text string) Palette {
	return s.edit(at, func(p *Palette) { p.Emojis = domain.EmojisOnly(text + p.Emojis) })
}

// RemoveEmoji removes every occurrence of emoji from the palette at index (clamped).
func (s *Store) RemoveEmoji(at int, emoji string) Palette {
	return s.edit(at, func(p *Palette) {
		gs := slices.DeleteFunc(domain.Graphemes(p.Emojis), func(g string) bool { return g == emoji })
		p.Emojis = domain.UniqueGraphemes(strings.Join(gs, ""))
	})
}

func (s *Store) edit(at int, fn func(*Palette)) Palette {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.clampLocked(at)
	fn(&s.palettes[i])
	s.persistLocked()
	return s.palettes[i]
}

// Move relocates the palette at from so that it ends up at index to. Both are clamped.
func (s *Store) Move(from, to int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, to = s.clampLocked(from), s.clampLocked(to)
	if from == to {
		return
	}
	p := s.palettes[from]
	s.palettes = slices.Delete(s.palettes, from, from+1)
	s.palettes = slices.Insert(s.palettes, to, p)
	s.persistLocked()
}
