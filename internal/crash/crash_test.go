/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteReportCreatesFileInTemp(t *testing.T) {
	path, err := writeReport("", buildReport("boom", []byte("stacktrace")))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	t.Cleanup(func() { _ = os.Remove(path) })
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, "EmojiArt Crash Report") {
		t.Fatalf("report header missing")
	}
	if !strings.Contains(s, "Panic: boom") {
		t.Fatalf("panic content missing: %s", s)
	}
}

func TestWriteReportCreatesFileInDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	path, err := writeReport(dir, buildReport("kaboom", []byte("stack")))
	if err != nil {
		t.Fatalf("writeReport error: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("expected crash report under %s, got %s", dir, path)
	}
}

type flushCounter struct {
	n   int
	err error
}

func (f *flushCounter) Flush() error {
	f.n++
	return f.err
}

type uploadRecorder struct {
	reports [][]byte
	err     error
}

func (u *uploadRecorder) UploadCrash(_ context.Context, report []byte) error {
	u.reports = append(u.reports, report)
	return u.err
}

// silenceStderr swallows stderr output for the duration of the test.
func silenceStderr(t *testing.T) {
	t.Helper()
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	t.Cleanup(func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r)
	})
}

func TestRecoverWritesReportAndFlushes(t *testing.T) {
	silenceStderr(t)
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	dir := t.TempDir()
	fl := &flushCounter{}
	up := &uploadRecorder{}
	func() {
		defer Recover(dir, fl, up)
		panic("boom")
	}()

	var found string
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			found = filepath.Join(dir, f.Name())
			break
		}
	}
	if found == "" {
		t.Fatalf("expected crash report file in %s", dir)
	}
	b, err := os.ReadFile(found)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) {
		t.Fatalf("report does not contain panic: %s", string(b))
	}
	if fl.n != 1 {
		t.Fatalf("flush calls = %d, want 1", fl.n)
	}
	if len(up.reports) != 1 || !bytes.Equal(up.reports[0], b) {
		t.Fatalf("uploaded report differs from the written one")
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}

func TestRecoverWithoutPanicDoesNothing(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()
	fl := &flushCounter{err: errors.New("unused")}
	func() {
		defer Recover(t.TempDir(), fl, nil)
	}()
	if called || fl.n != 0 {
		t.Fatalf("Recover acted without a panic")
	}
}

func TestRecoverToleratesFailures(t *testing.T) {
	silenceStderr(t)
	code := 0
	oldExit := exitFn
	exitFn = func(c int) { code = c }
	defer func() { exitFn = oldExit }()

	fl := &flushCounter{err: errors.New("disk full")}
	up := &uploadRecorder{err: errors.New("offline")}
	func() {
		defer Recover(t.TempDir(), fl, up)
		panic(errors.New("bad state"))
	}()
	if fl.n != 1 || len(up.reports) != 1 || code != 2 {
		t.Fatalf("flush=%d uploads=%d exit=%d", fl.n, len(up.reports), code)
	}

	code = 0
	func() {
		defer Recover(t.TempDir(), nil, nil)
		panic("no session")
	}()
	if code != 2 {
		t.Fatalf("expected exit code 2 without flusher, got %d", code)
	}
}
