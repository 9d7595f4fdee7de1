/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic in the CLI into a crash report plus a last autosave.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "emojiart/internal/log"
	"emojiart/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Flusher writes pending document changes.
type Flusher interface {
	Flush() error
}

// Uploader sends a crash report somewhere off the machine.
type Uploader interface {
	UploadCrash(ctx context.Context, report []byte) error
}

// uploadTimeout bounds the upload before the process exits.
const uploadTimeout = 3 * time.Second

// Recover captures a panic, logs an error with stacktrace, writes a crash report
// into dir (the temp dir when empty), flushes any pending autosave through f and
// hands the report to u. f and u may be nil.
//
// Usage: defer crash.Recover(dataDir, ctrl, uploader)
func Recover(dir string, f Flusher, u Uploader) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		report := buildReport(r, stack)
		reportPath, err := writeReport(dir, report)
		if err != nil {
			l.Error("write crash report failed", slog.Any("err", err))
		}
		if f != nil {
			if err := f.Flush(); err != nil {
				l.Error("final autosave failed", slog.Any("err", err))
			} else {
				l.Info("final autosave written")
			}
		}
		if u != nil {
			ctx, cancel := context.WithTimeout(context.Background(), uploadTimeout)
			if err := u.UploadCrash(ctx, report); err != nil {
				l.Debug("crash upload skipped", slog.Any("err", err))
			}
			cancel()
		}

		_, _ = fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
		_, _ = fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

func buildReport(panicVal any, stack []byte) []byte {
	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "EmojiArt Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))
	return buf.Bytes()
}

func writeReport(dir string, report []byte) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	_ = os.MkdirAll(dir, 0o755)
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, report, 0o644); err != nil {
		return path, err
	}
	return path, nil
}
