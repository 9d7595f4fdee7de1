/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo provides a snapshot-based undo/redo log. Each entry stores a
// label and the state to restore; the log never inspects or mutates states.
package undo

import (
	"sync"
	"time"
)

// Entry is one reversible step: restoring State undoes (or redoes) the action named Label.
type Entry[T any] struct {
	Label string
	State T
	TS    time.Time
}

// Config controls depth and memory caps.
type Config struct {
	// MaxDepth limits the number of undo entries kept (0 means unlimited).
	MaxDepth int
	// MaxBytes is a soft cap on the summed SizeOf of undo entries; oldest entries are pruned first.
	// Ignored when SizeOf is nil.
	MaxBytes int
}

// Log is an undo stack plus a redo stack. It is safe for concurrent use.
type Log[T any] struct {
	cfg    Config
	sizeOf func(T) int
	now    func() time.Time

	mu         sync.Mutex
	undo       []Entry[T]
	redo       []Entry[T]
	totalBytes int
}

// Option customizes a Log.
type Option[T any] func(*Log[T])

// WithSizeOf sets the size estimate used for MaxBytes accounting.
func WithSizeOf[T any](fn func(T) int) Option[T] {
	return func(l *Log[T]) { l.sizeOf = fn }
}

// WithClock overrides the timestamp source.
func WithClock[T any](now func() time.Time) Option[T] {
	return func(l *Log[T]) { l.now = now }
}

func NewLog[T any](cfg Config, opts ...Option[T]) *Log[T] {
	l := &Log[T]{cfg: cfg, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	return l
}

// Register records that the action named label was performed and that
// restoring before undoes it. Any new action invalidates the redo stack.
func (l *Log[T]) Register(label string, before T) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pushLocked(Entry[T]{Label: label, State: before, TS: l.now()})
	l.redo = nil
	l.enforceCapsLocked()
}

// Undo pops the latest entry and returns it for the caller to restore. current
// is the state being left; it is pushed as the matching redo entry.
func (l *Log[T]) Undo(current T) (Entry[T], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.undo)
	if n == 0 {
		return Entry[T]{}, false
	}
	e := l.undo[n-1]
	l.undo = l.undo[:n-1]
	l.totalBytes -= l.size(e.State)
	l.redo = append(l.redo, Entry[T]{Label: e.Label, State: current, TS: l.now()})
	return e, true
}

// Redo pops the latest redo entry and returns it for the caller to restore;
// current is pushed back onto the undo stack under the same label.
func (l *Log[T]) Redo(current T) (Entry[T], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.redo)
	if n == 0 {
		return Entry[T]{}, false
	}
	e := l.redo[n-1]
	l.redo = l.redo[:n-1]
	l.pushLocked(Entry[T]{Label: e.Label, State: current, TS: l.now()})
	l.enforceCapsLocked()
	return e, true
}

func (l *Log[T]) CanUndo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.undo) > 0
}

func (l *Log[T]) CanRedo() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.redo) > 0
}

// UndoLabel names the action Undo would revert, or "" when there is none.
func (l *Log[T]) UndoLabel() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.undo); n > 0 {
		return l.undo[n-1].Label
	}
	return ""
}

// RedoLabel names the action Redo would reapply, or "".
func (l *Log[T]) RedoLabel() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.redo); n > 0 {
		return l.redo[n-1].Label
	}
	return ""
}

// Clear drops all history.
func (l *Log[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.undo, l.redo, l.totalBytes = nil, nil, 0
}

// Stats returns current sizes for diagnostics.
func (l *Log[T]) Stats() (totalBytes, undoDepth, redoDepth int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalBytes, len(l.undo), len(l.redo)
}

func (l *Log[T]) pushLocked(e Entry[T]) {
	l.undo = append(l.undo, e)
	l.totalBytes += l.size(e.State)
}

func (l *Log[T]) size(s T) int {
	if l.sizeOf == nil {
		return 0
	}
	return l.sizeOf(s)
}

func (l *Log[T]) enforceCapsLocked() {
	drop := 0
	if l.cfg.MaxDepth > 0 && len(l.undo) > l.cfg.MaxDepth {
		drop = len(l.undo) - l.cfg.MaxDepth
	}
	for i := 0; i < drop; i++ {
		l.totalBytes -= l.size(l.undo[i].State)
	}
	// Keep at least the newest entry even if it alone exceeds MaxBytes.
	for l.sizeOf != nil && l.cfg.MaxBytes > 0 && l.totalBytes > l.cfg.MaxBytes && drop < len(l.undo)-1 {
		l.totalBytes -= l.size(l.undo[drop].State)
		drop++
	}
	if drop > 0 {
		l.undo = append([]Entry[T]{}, l.undo[drop:]...)
	}
}
