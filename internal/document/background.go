/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"context"
	"errors"
	"image"
	"log/slog"

	"emojiart/internal/domain"
)

// backgroundChangedLocked drops whatever the previous background produced and starts
// resolving the current one. Every call starts a new generation.
func (c *Controller) backgroundChangedLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.img = nil
	switch bg := c.doc.Background().(type) {
	case domain.RawImage:
		img, err := c.decode(bg.Data)
		if err != nil {
			// no image, but not a fetch failure either
			c.log.Debug("raw background not decodable", slog.Any("err", err))
		}
		c.img = img
		c.status = FetchStatus{State: Idle}
	case domain.RemoteURL:
		c.status = FetchStatus{State: Fetching}
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		c.fetches.Add(1)
		go c.fetchBackground(ctx, c.gen, bg)
	default:
		c.status = FetchStatus{State: Idle}
	}
}

func (c *Controller) fetchBackground(ctx context.Context, gen uint64, bg domain.RemoteURL) {
	defer c.fetches.Done()
	l := c.log.With(slog.String("op", "fetch_background"), slog.String("url", bg.URL), slog.Uint64("gen", gen))
	data, err := c.fetcher.Fetch(ctx, bg.URL)
	var img image.Image
	if err == nil {
		img, err = c.decode(data)
	}

	c.mu.Lock()
	if c.closed || c.gen != gen || !domain.BackgroundsEqual(c.doc.Background(), bg) {
		c.mu.Unlock()
		l.Debug("discarding superseded fetch", slog.Bool("cancelled", errors.Is(err, context.Canceled)))
		return
	}
	c.cancel = nil
	if err != nil {
		c.status = FetchStatus{State: Failed, URL: bg.URL}
		c.img = nil
		l.Warn("background fetch failed", slog.Any("err", err))
	} else {
		c.status = FetchStatus{State: Idle}
		c.img = img
		l.Debug("background ready")
	}
	c.mu.Unlock()
	c.notify()
}

// Wait blocks until every fetch started so far has finished.
func (c *Controller) Wait() {
	c.fetches.Wait()
}
