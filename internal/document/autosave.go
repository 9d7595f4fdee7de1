/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"log/slog"
)

// schedulePersistLocked (re)arms the autosave timer so that a burst of changes
// produces a single write once the document has been quiet for the coalesce interval.
func (c *Controller) schedulePersistLocked() {
	if c.persister == nil {
		return
	}
	c.dirty = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(c.coalesce, c.autosave)
}

func (c *Controller) autosave() {
	if err := c.save(); err != nil {
		c.log.Error("autosave failed", slog.Any("err", err))
	}
}

// save writes the current snapshot if it changed since the last write.
func (c *Controller) save() error {
	c.saveMu.Lock()
	defer c.saveMu.Unlock()
	c.mu.Lock()
	if !c.dirty || c.persister == nil {
		c.mu.Unlock()
		return nil
	}
	doc := c.doc
	c.dirty = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	if err := c.persister.Save(doc); err != nil {
		c.mu.Lock()
		c.dirty = true
		c.mu.Unlock()
		return err
	}
	return nil
}

// Flush writes any pending change immediately.
func (c *Controller) Flush() error {
	return c.save()
}

// Pending reports whether a change is waiting to be autosaved.
func (c *Controller) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// Close flushes pending changes, cancels any in-flight fetch and waits for fetch
// goroutines to finish. Later intents are ignored.
func (c *Controller) Close() error {
	err := c.Flush()
	c.mu.Lock()
	c.closed = true
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()
	c.fetches.Wait()
	return err
}
