/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document owns the current document snapshot. It applies undoable intents,
// resolves the background image, and debounces autosaves.
package document

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"

	"emojiart/internal/domain"
	"emojiart/internal/fetch"
	applog "emojiart/internal/log"
	"emojiart/internal/undo"
)

// DefaultCoalesce is the autosave quiet interval used when none is configured.
const DefaultCoalesce = 5 * time.Second

// Persister writes document snapshots.
type Persister interface {
	Save(doc domain.Document) error
}

// SnapshotSize estimates the memory held by a snapshot, for undo byte caps.
func SnapshotSize(d domain.Document) int {
	n := 64
	for _, g := range d.Glyphs() {
		n += 48 + len(g.Text)
	}
	switch bg := d.Background().(type) {
	case domain.RawImage:
		n += len(bg.Data)
	case domain.RemoteURL:
		n += len(bg.URL)
	}
	return n
}

// Options configure a Controller. Every field is optional.
type Options struct {
	Fetcher   fetch.Fetcher
	Decode    func([]byte) (image.Image, error)
	Persister Persister
	// Coalesce is the quiet interval after the last change before an autosave is written.
	Coalesce time.Duration
	// Undo receives inverse snapshots; nil disables undo registration.
	Undo  *undo.Log[domain.Document]
	Clock Clock
}

// Controller serializes all changes to one document. Remote background fetches run
// on their own goroutines and re-enter under the controller lock; a fetch result is
// applied only if its generation is current and the background is unchanged.
type Controller struct {
	mu       sync.Mutex
	doc      domain.Document
	img      image.Image
	status   FetchStatus
	gen      uint64
	cancel   context.CancelFunc
	closed   bool
	timer    Timer
	dirty    bool
	onChange []func()

	saveMu    sync.Mutex
	fetches   sync.WaitGroup
	fetcher   fetch.Fetcher
	decode    func([]byte) (image.Image, error)
	persister Persister
	coalesce  time.Duration
	undo      *undo.Log[domain.Document]
	clock     Clock
	log       *slog.Logger
}

// New creates a controller for doc and starts resolving its background.
func New(doc domain.Document, opts Options) *Controller {
	c := &Controller{
		doc:       doc,
		fetcher:   opts.Fetcher,
		decode:    opts.Decode,
		persister: opts.Persister,
		coalesce:  opts.Coalesce,
		undo:      opts.Undo,
		clock:     opts.Clock,
		log:       applog.WithComponent("controller"),
	}
	if c.fetcher == nil {
		c.fetcher = fetch.NewHTTPFetcher(0, 0)
	}
	if c.decode == nil {
		c.decode = func(b []byte) (image.Image, error) {
			img, _, err := fetch.DecodeImage(b)
			return img, err
		}
	}
	if c.coalesce <= 0 {
		c.coalesce = DefaultCoalesce
	}
	if c.clock == nil {
		c.clock = realClock{}
	}
	c.mu.Lock()
	c.backgroundChangedLocked()
	c.mu.Unlock()
	return c
}

// OnChange registers fn to be called after every state change. Callbacks run
// outside the controller lock, possibly on a fetch goroutine.
func (c *Controller) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

func (c *Controller) notify() {
	c.mu.Lock()
	fns := append([]func(){}, c.onChange...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// Snapshot returns the current document.
func (c *Controller) Snapshot() domain.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.doc
}

// Image returns the displayed background image, or nil.
func (c *Controller) Image() image.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.img
}

// FetchStatus returns the state of the remote background resolution.
func (c *Controller) FetchStatus() FetchStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// SetBackground replaces the background.
func (c *Controller) SetBackground(bg domain.Background) {
	c.perform("Set Background", func(d domain.Document) domain.Document { return d.SetBackground(bg) })
}

// AddGlyph places text at (x, y) with the given size and returns the new glyph id,
// or 0 when the text is empty or not valid UTF-8.
func (c *Controller) AddGlyph(text string, x, y, size int) int {
	var id int
	c.perform("Add "+text, func(d domain.Document) domain.Document {
		var nd domain.Document
		nd, id = d.AddGlyph(text, x, y, size)
		return nd
	})
	return id
}

// MoveGlyph translates glyph id by (dx, dy). Unknown ids are ignored.
func (c *Controller) MoveGlyph(id, dx, dy int) {
	c.perform("Move", func(d domain.Document) domain.Document { return d.MoveGlyph(id, dx, dy) })
}

// ScaleGlyph multiplies the size of glyph id by factor. Unknown ids are ignored.
func (c *Controller) ScaleGlyph(id int, factor float64) {
	c.perform("Scale", func(d domain.Document) domain.Document { return d.ScaleGlyph(id, factor) })
}

// RemoveGlyph deletes glyph id. Unknown ids are ignored.
func (c *Controller) RemoveGlyph(id int) {
	c.perform("Remove", func(d domain.Document) domain.Document { return d.RemoveGlyph(id) })
}

// Restore replaces the whole document without recording an undo step.
func (c *Controller) Restore(doc domain.Document) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	before := c.doc
	c.setLocked(before, doc)
	c.mu.Unlock()
	c.notify()
}

// perform applies fn as the intent named label. A change is registered for undo,
// scheduled for autosave and, when the background differs, starts its resolution.
// Intents that leave the document unchanged have no effect at all.
func (c *Controller) perform(label string, fn func(domain.Document) domain.Document) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	before := c.doc
	after := fn(before)
	if after.Equal(before) {
		c.mu.Unlock()
		return
	}
	if c.undo != nil {
		c.undo.Register(label, before)
	}
	c.setLocked(before, after)
	c.log.Debug("intent", slog.String("op", label), slog.Int("glyphs", after.Len()))
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) setLocked(before, after domain.Document) {
	c.doc = after
	c.schedulePersistLocked()
	if !domain.BackgroundsEqual(before.Background(), after.Background()) {
		c.backgroundChangedLocked()
	}
}

// Undo restores the snapshot before the latest intent. It reports whether there was one.
func (c *Controller) Undo() bool {
	return c.replay(func(cur domain.Document) (undo.Entry[domain.Document], bool) { return c.undo.Undo(cur) })
}

// Redo re-applies the latest undone intent. It reports whether there was one.
func (c *Controller) Redo() bool {
	return c.replay(func(cur domain.Document) (undo.Entry[domain.Document], bool) { return c.undo.Redo(cur) })
}

func (c *Controller) replay(step func(domain.Document) (undo.Entry[domain.Document], bool)) bool {
	c.mu.Lock()
	if c.undo == nil || c.closed {
		c.mu.Unlock()
		return false
	}
	before := c.doc
	e, ok := step(before)
	if !ok {
		c.mu.Unlock()
		return false
	}
	c.setLocked(before, e.State)
	c.log.Debug("replay", slog.String("op", e.Label))
	c.mu.Unlock()
	c.notify()
	return true
}

func (c *Controller) CanUndo() bool { return c.undo != nil && c.undo.CanUndo() }
func (c *Controller) CanRedo() bool { return c.undo != nil && c.undo.CanRedo() }

// UndoLabel names the intent Undo would revert, or "".
func (c *Controller) UndoLabel() string {
	if c.undo == nil {
		return ""
	}
	return c.undo.UndoLabel()
}

// RedoLabel names the intent Redo would re-apply, or "".
func (c *Controller) RedoLabel() string {
	if c.undo == nil {
		return ""
	}
	return c.undo.RedoLabel()
}
