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
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ImageCache stores fetched background images keyed by URL, evicting least recently
// used entries once the total size exceeds MaxBytes.
type ImageCache struct {
	s        *StateDB
	MaxBytes int64
}

// ImageCache returns the image cache view of the database. maxBytes <= 0 disables eviction.
func (s *StateDB) ImageCache(maxBytes int64) *ImageCache {
	return &ImageCache{s: s, MaxBytes: maxBytes}
}

// Get returns the cached bytes for url and refreshes its access time.
func (c *ImageCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	var data []byte
	err := c.s.db.QueryRowContext(ctx, `SELECT data FROM image_cache WHERE url = ?`, url).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("image cache get: %w", err)
	}
	now := stamp(time.Now())
	_, _ = c.s.db.ExecContext(ctx, `UPDATE image_cache SET last_access=? WHERE url=?`, now, url)
	return data, true, nil
}

// Put upserts the bytes for url and enforces the size cap.
func (c *ImageCache) Put(ctx context.Context, url string, data []byte) error {
	if c.MaxBytes > 0 && int64(len(data)) > c.MaxBytes {
		// Never fits; keep the cache as it is.
		return nil
	}
	now := stamp(time.Now())
	_, err := c.s.db.ExecContext(ctx, `INSERT INTO image_cache(url, data, size, fetched_at, last_access) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET data=excluded.data, size=excluded.size, fetched_at=excluded.fetched_at, last_access=excluded.last_access`,
		url, data, len(data), now, now)
	if err != nil {
		return fmt.Errorf("image cache put: %w", err)
	}
	return c.evictToFit(ctx)
}

// TotalBytes returns the total size of all cached images.
func (c *ImageCache) TotalBytes(ctx context.Context) (int64, error) {
	var n sql.NullInt64
	if err := c.s.db.QueryRowContext(ctx, `SELECT SUM(size) FROM image_cache`).Scan(&n); err != nil {
		return 0, err
	}
	return n.Int64, nil
}

// evictToFit deletes oldest-accessed entries until the total size is within MaxBytes.
func (c *ImageCache) evictToFit(ctx context.Context) error {
	if c.MaxBytes <= 0 {
		return nil
	}
	total, err := c.TotalBytes(ctx)
	if err != nil {
		return err
	}
	if total <= c.MaxBytes {
		return nil
	}
	rows, err := c.s.db.QueryContext(ctx, `SELECT url, size FROM image_cache ORDER BY last_access ASC`)
	if err != nil {
		return err
	}
	var victims []string
	for rows.Next() && total > c.MaxBytes {
		var u string
		var size int64
		if err := rows.Scan(&u, &size); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, u)
		total -= size
	}
	_ = rows.Close()
	for _, u := range victims {
		if _, err := c.s.db.ExecContext(ctx, `DELETE FROM image_cache WHERE url=?`, u); err != nil {
			return err
		}
	}
	return nil
}
