/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package telemetry sends opt-in anonymous usage events and crash reports.
// It is disabled unless the user opts in and configures an endpoint.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"sync"
	"time"

	"emojiart/internal/config"
	applog "emojiart/internal/log"
	"emojiart/internal/version"
)

const queueSize = 64

// Config holds runtime configuration for telemetry and crash uploads.
type Config struct {
	OptIn     bool
	EventsURL string
	CrashURL  string
	Timeout   time.Duration
}

// FromConfig converts the user configuration section.
func FromConfig(c config.TelemetryConfig) Config {
	cfg := Config{OptIn: c.OptIn, EventsURL: c.EventsURL, CrashURL: c.CrashURL, Timeout: 1500 * time.Millisecond}
	if c.TimeoutMs > 0 {
		cfg.Timeout = time.Duration(c.TimeoutMs) * time.Millisecond
	}
	return cfg
}

// Client is an async event sender. Events are queued on a bounded channel and
// dropped when it is full; send errors are logged at debug level only.
// A nil *Client is valid and disabled.
type Client struct {
	cfg  Config
	log  *slog.Logger
	cli  *http.Client
	q    chan map[string]any
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

// New constructs a client and starts its sender goroutine. Call Close to stop it.
func New(cfg Config) *Client {
	c := &Client{
		cfg:  cfg,
		log:  applog.WithComponent("telemetry"),
		cli:  &http.Client{Timeout: cfg.Timeout},
		q:    make(chan map[string]any, queueSize),
		done: make(chan struct{}),
	}
	go c.loop()
	return c
}

// Enabled reports whether usage events are sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event queues a small JSON event. props must not carry personal data such as
// paths, URLs or glyph text.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	payload := map[string]any{
		"name":    name,
		"ts":      time.Now().UTC().Format(time.RFC3339Nano),
		"version": version.String(),
		"os":      runtime.GOOS,
		"arch":    runtime.GOARCH,
	}
	for k, v := range props {
		if _, reserved := payload[k]; !reserved {
			payload[k] = v
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.q <- payload:
	default:
		c.dropped++
	}
}

// Dropped is the number of events discarded because the queue was full.
func (c *Client) Dropped() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

// Close stops accepting events and waits until the queue is drained or ctx is done.
func (c *Client) Close(ctx context.Context) {
	if c == nil {
		return
	}
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.q)
	}
	c.mu.Unlock()
	select {
	case <-c.done:
	case <-ctx.Done():
	}
}

func (c *Client) loop() {
	defer close(c.done)
	for item := range c.q {
		c.send(item)
	}
}

func (c *Client) send(item map[string]any) {
	buf, err := json.Marshal(item)
	if err != nil {
		c.log.Debug("telemetry encode failed", slog.Any("err", err))
		return
	}
	if err := c.post(context.Background(), c.cfg.EventsURL, "application/json", buf); err != nil {
		c.log.Debug("telemetry send failed", slog.Any("err", err))
		return
	}
	c.log.Debug("telemetry event sent", slog.Any("name", item["name"]))
}

// ErrDisabled is returned by UploadCrash when crash uploads are not configured.
var ErrDisabled = errors.New("telemetry: crash upload disabled")

// UploadCrash posts a crash report synchronously. The process is usually about
// to exit, so the caller bounds the wait with ctx.
func (c *Client) UploadCrash(ctx context.Context, report []byte) error {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return ErrDisabled
	}
	return c.post(ctx, c.cfg.CrashURL, "text/plain; charset=utf-8", report)
}

func (c *Client) post(ctx context.Context, url, contentType string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.cli.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("telemetry: %s returned %s", url, resp.Status)
	}
	return nil
}
