/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	BackupsDirName = "backups"
	// MaxBackups is how many timestamped backups are kept per file.
	MaxBackups = 5
)

// ErrNoBackup is returned when no backup exists for a file.
var ErrNoBackup = errors.New("no backups found")

// backupStamp is a var so tests can produce distinct stamps within one second.
var backupStamp = func() string { return time.Now().Format("20060102-150405.000") }

// BackupDir returns the directory holding backups for path.
func BackupDir(path string) string {
	return filepath.Join(filepath.Dir(path), BackupsDirName)
}

// WriteFile replaces the file at path with data using transactional semantics
// and a timestamped backup of the previous content (if present).
func WriteFile(path string, data []byte) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}

	// If a current file exists, copy it to a timestamped backup before replacing
	if _, statErr := os.Stat(path); statErr == nil {
		bdir := BackupDir(path)
		if err := os.MkdirAll(bdir, 0o755); err != nil {
			return fmt.Errorf("ensure backups dir: %w", err)
		}
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), backupStamp()))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current file: %w", cerr)
		}
		pruneBackups(path, MaxBackups)
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp file: %w", werr)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		// Windows refuses to rename over an existing file
		_ = os.Remove(path)
		if rerr = os.Rename(temp, path); rerr != nil {
			_ = os.Remove(temp)
			return fmt.Errorf("replace file: %w", rerr)
		}
	}
	return nil
}

// ReadFile returns the content of path. When the file cannot be read it falls back
// to the newest backup; the returned error then wraps both failures.
func ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err == nil {
		return b, nil
	}
	bb, berr := ReadLatestBackup(path)
	if berr != nil {
		return nil, fmt.Errorf("read %s: %w; backup attempt: %v", filepath.Base(path), err, berr)
	}
	return bb, nil
}

// ReadLatestBackup returns the content of the newest backup of path.
func ReadLatestBackup(path string) ([]byte, error) {
	candidates, err := listBackups(path)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoBackup
	}
	latest := candidates[len(candidates)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	return b, nil
}

// listBackups returns backup paths for path, oldest first.
func listBackups(path string) ([]string, error) {
	bdir := BackupDir(path)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

func pruneBackups(path string, keep int) {
	all, err := listBackups(path)
	if err != nil || len(all) <= keep {
		return
	}
	for _, p := range all[:len(all)-keep] {
		_ = os.Remove(p)
	}
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
