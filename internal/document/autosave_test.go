/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"errors"
	"testing"
	"time"

	"emojiart/internal/domain"
)

func TestAutosaveCoalescesBurst(t *testing.T) {
	p := &recordingPersister{}
	clk := &manualClock{}
	c := New(domain.New(), Options{Persister: p, Clock: clk, Coalesce: 5 * time.Second, Undo: newUndoLog()})
	defer c.Close()

	id := c.AddGlyph("😀", 0, 0, 40)
	clk.Advance(2 * time.Second)
	c.MoveGlyph(id, 1, 1)
	clk.Advance(2 * time.Second)
	c.ScaleGlyph(id, 2)
	clk.Advance(4 * time.Second)
	if p.count() != 0 {
		t.Fatalf("saved %d times inside the quiet interval", p.count())
	}
	if !c.Pending() {
		t.Fatalf("expected a pending change")
	}
	clk.Advance(time.Second)
	if p.count() != 1 {
		t.Fatalf("saves = %d, want 1 for the burst", p.count())
	}
	if !p.last().Equal(c.Snapshot()) {
		t.Fatalf("saved snapshot is not the latest")
	}
	clk.Advance(time.Minute)
	if p.count() != 1 {
		t.Fatalf("nothing changed, but saved again")
	}
	c.Undo()
	clk.Advance(5 * time.Second)
	if p.count() != 2 {
		t.Fatalf("undo should be persisted too, saves = %d", p.count())
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	p := &recordingPersister{}
	clk := &manualClock{}
	c := New(domain.New(), Options{Persister: p, Clock: clk, Coalesce: time.Hour})
	c.AddGlyph("🌵", 1, 1, 10)
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if p.count() != 1 || c.Pending() {
		t.Fatalf("flush should write once and clear pending")
	}
	// the stopped timer must not write again
	clk.Advance(time.Hour)
	if p.count() != 1 {
		t.Fatalf("saves = %d after timer, want 1", p.count())
	}
	c.AddGlyph("🌵", 2, 2, 10)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.count() != 2 {
		t.Fatalf("Close should flush pending change, saves = %d", p.count())
	}
	c.AddGlyph("🌵", 3, 3, 10)
	if c.Snapshot().Len() != 2 {
		t.Fatalf("intents after Close must be ignored")
	}
}

func TestFailedSaveStaysPending(t *testing.T) {
	p := &recordingPersister{err: errors.New("disk full")}
	clk := &manualClock{}
	c := New(domain.New(), Options{Persister: p, Clock: clk, Coalesce: time.Second})
	c.AddGlyph("💾", 0, 0, 10)
	clk.Advance(time.Second)
	if !c.Pending() {
		t.Fatalf("failed autosave should keep the change pending")
	}
	p.mu.Lock()
	p.err = nil
	p.mu.Unlock()
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if p.count() != 1 {
		t.Fatalf("retry on close did not save")
	}
}

func TestNoPersisterNeverPending(t *testing.T) {
	c := New(domain.New(), Options{})
	defer c.Close()
	c.AddGlyph("😀", 0, 0, 10)
	if c.Pending() {
		t.Fatalf("without a persister nothing is pending")
	}
	if err := c.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}
