/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fetch retrieves background image bytes over http(s) or from local files,
// optionally through a persistent cache, and decodes them.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	applog "emojiart/internal/log"
	"emojiart/internal/version"
)

var (
	// ErrTooLarge is returned when a resource exceeds the configured byte limit.
	ErrTooLarge = errors.New("resource too large")
	// ErrUnsupportedScheme is returned for URLs that are neither http(s) nor file.
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
)

// Fetcher retrieves the bytes behind a URL. Implementations must honour ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, rawURL string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, rawURL string) ([]byte, error) { return f(ctx, rawURL) }

// HTTPFetcher fetches http(s) and file URLs.
type HTTPFetcher struct {
	Timeout  time.Duration // zero means no timeout beyond ctx
	MaxBytes int64         // zero means unlimited
	client   *http.Client
}

// NewHTTPFetcher creates a fetcher with the given timeout and size cap.
func NewHTTPFetcher(timeout time.Duration, maxBytes int64) *HTTPFetcher {
	return &HTTPFetcher{Timeout: timeout, MaxBytes: maxBytes, client: &http.Client{}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}
	l := applog.WithOperation(applog.WithComponent("fetch"), "fetch").With(slog.String("url", rawURL))
	start := time.Now()
	var b []byte
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		b, err = f.fetchHTTP(ctx, u)
	case "file":
		b, err = f.readFile(ctx, u)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	l.Debug("fetched", slog.Int("bytes", len(b)), slog.Duration("took", time.Since(start)))
	return b, nil
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "emojiart/"+version.String())
	client := f.client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("GET %s: %s", u.Redacted(), resp.Status)
	}
	if f.MaxBytes > 0 && resp.ContentLength > f.MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}
	return f.readAll(resp.Body)
}

func (f *HTTPFetcher) readFile(ctx context.Context, u *url.URL) ([]byte, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.readAll(file)
}

func (f *HTTPFetcher) readAll(r io.Reader) ([]byte, error) {
	if f.MaxBytes <= 0 {
		return io.ReadAll(r)
	}
	b, err := io.ReadAll(io.LimitReader(r, f.MaxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(b)) > f.MaxBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, f.MaxBytes)
	}
	return b, nil
}

// Cache is a persistent store of fetched bytes keyed by URL.
type Cache interface {
	Get(ctx context.Context, url string) ([]byte, bool, error)
	Put(ctx context.Context, url string, data []byte) error
}

// CachingFetcher serves remote URLs from Cache when possible and stores fetched
// images. Responses that are not images (error pages, rate-limit notices) are
// never cached, so setting the same URL again retries the network.
// File URLs bypass the cache.
type CachingFetcher struct {
	Next  Fetcher
	Cache Cache
}

func (c *CachingFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if !isRemote(rawURL) {
		return c.Next.Fetch(ctx, rawURL)
	}
	l := applog.WithOperation(applog.WithComponent("fetch"), "cache").With(slog.String("url", rawURL))
	if b, ok, err := c.Cache.Get(ctx, rawURL); err != nil {
		l.Warn("cache read failed", slog.Any("err", err))
	} else if ok && IsImage(b) {
		l.Debug("cache hit", slog.Int("bytes", len(b)))
		return b, nil
	} else if ok {
		l.Debug("ignoring cached non-image", slog.Int("bytes", len(b)))
	}
	b, err := c.Next.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if !IsImage(b) {
		l.Debug("not caching non-image response", slog.Int("bytes", len(b)))
		return b, nil
	}
	if perr := c.Cache.Put(ctx, rawURL, b); perr != nil {
		l.Warn("cache write failed", slog.Any("err", perr))
	}
	return b, nil
}

func isRemote(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	s := strings.ToLower(u.Scheme)
	return s == "http" || s == "https"
}

// ImageURL returns the real image location for links that wrap it in an
// "imgurl" query parameter (image search results); other URLs are returned unchanged.
func ImageURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if inner := u.Query().Get("imgurl"); inner != "" {
		if iu, err := url.Parse(inner); err == nil && iu.Scheme != "" {
			return inner
		}
	}
	return rawURL
}

// FileURL converts a local path into a file URL.
func FileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: path}).String()
}
