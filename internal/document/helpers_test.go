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
	"sync"
	"time"

	"emojiart/internal/domain"
	"emojiart/internal/undo"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	c       *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{c: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.f()
	}
}

type fetchResult struct {
	data []byte
	err  error
}

// gateFetcher blocks each URL until released and ignores cancellation, so late
// completions of superseded fetches can be observed.
type gateFetcher struct {
	mu    sync.Mutex
	gates map[string]chan fetchResult
	calls map[string]int
}

func newGateFetcher() *gateFetcher {
	return &gateFetcher{gates: map[string]chan fetchResult{}, calls: map[string]int{}}
}

func (g *gateFetcher) gate(url string) chan fetchResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[url]
	if !ok {
		ch = make(chan fetchResult, 1)
		g.gates[url] = ch
	}
	return ch
}

func (g *gateFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	g.mu.Lock()
	g.calls[url]++
	g.mu.Unlock()
	r := <-g.gate(url)
	return r.data, r.err
}

func (g *gateFetcher) release(url string, data []byte, err error) {
	g.gate(url) <- fetchResult{data: data, err: err}
}

func (g *gateFetcher) count(url string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[url]
}

// stubDecode turns "img:N" into an N x N image and rejects everything else.
func stubDecode(b []byte) (image.Image, error) {
	s := string(b)
	if len(s) < 5 || s[:4] != "img:" {
		return nil, errors.New("not an image")
	}
	n := int(s[4] - '0')
	return image.NewRGBA(image.Rect(0, 0, n, n)), nil
}

type recordingPersister struct {
	mu    sync.Mutex
	saves []domain.Document
	err   error
}

func (p *recordingPersister) Save(doc domain.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.saves = append(p.saves, doc)
	return nil
}

func (p *recordingPersister) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.saves)
}

func (p *recordingPersister) last() domain.Document {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves[len(p.saves)-1]
}

func newUndoLog() *undo.Log[domain.Document] {
	return undo.NewLog[domain.Document](undo.Config{MaxDepth: 100})
}

func imgSide(img image.Image) int {
	if img == nil {
		return 0
	}
	return img.Bounds().Dx()
}
