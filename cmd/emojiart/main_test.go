/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"emojiart/internal/config"
	applog "emojiart/internal/log"
	"emojiart/internal/telemetry"
)

func TestMain(m *testing.M) {
	applog.Init(applog.Options{Level: "error", Writer: io.Discard})
	os.Exit(m.Run())
}

func testConfig(t *testing.T) config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.Document.AutosavePath = filepath.Join(dir, "Autosave.emojiart")
	cfg.Document.CoalesceMs = 10
	cfg.State.DBPath = filepath.Join(dir, "state.sqlite")
	return cfg
}

func runCLI(t *testing.T, cfg config.AppConfig, input string, args ...string) (int, string) {
	t.Helper()
	var out bytes.Buffer
	code := run(cfg, args, strings.NewReader(input), &out, nil, nil)
	return code, out.String()
}

func pngFile(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestVersionAndUnknownCommand(t *testing.T) {
	cfg := testConfig(t)
	if code, out := runCLI(t, cfg, "", "version"); code != 0 || !strings.Contains(out, "EmojiArt") {
		t.Fatalf("version: %d %q", code, out)
	}
	if code, out := runCLI(t, cfg, "", "frobnicate"); code != 2 || !strings.Contains(out, "Usage:") {
		t.Fatalf("unknown: %d %q", code, out)
	}
}

func TestEditSessionPersistsDocument(t *testing.T) {
	cfg := testConfig(t)
	code, out := runCLI(t, cfg, "add 😀 10 -5 40\nadd ⭐ 0 0 20\nundo\nbogus\nquit\nadd 🚫 0 0 1\n", "edit")
	if code != 0 {
		t.Fatalf("edit exit %d: %s", code, out)
	}
	if !strings.Contains(out, "undid Add ⭐") || !strings.Contains(out, `unknown command "bogus"`) {
		t.Fatalf("unexpected session output:\n%s", out)
	}
	code, out = runCLI(t, cfg, "", "show")
	if code != 0 {
		t.Fatalf("show exit %d", code)
	}
	if !strings.Contains(out, "glyphs: 1") || !strings.Contains(out, "😀 at (10,-5) size 40") || strings.Contains(out, "🚫") {
		t.Fatalf("show output:\n%s", out)
	}
	code, out = runCLI(t, cfg, "", "history")
	if code != 0 || !strings.Contains(out, "1 glyphs") {
		t.Fatalf("history output (%d):\n%s", code, out)
	}
}

func TestEditScaleMoveByID(t *testing.T) {
	cfg := testConfig(t)
	_, out := runCLI(t, cfg, "add 😀 10 -5 40\nquit\n", "edit")
	id := regexp.MustCompile(`added #(\d+)`).FindStringSubmatch(out)
	if id == nil {
		t.Fatalf("no id in output: %s", out)
	}
	_, out = runCLI(t, cfg, "scale "+id[1]+" 1.5\nmove "+id[1]+" 5 5\nshow\n", "edit")
	if !strings.Contains(out, "😀 at (15,0) size 60") {
		t.Fatalf("scale/move not applied:\n%s", out)
	}
}

func TestEditDropAndRawBackground(t *testing.T) {
	cfg := testConfig(t)
	img := filepath.Join(t.TempDir(), "bg.png")
	if err := os.WriteFile(img, pngFile(t, 3, 2), 0o644); err != nil {
		t.Fatal(err)
	}
	_, out := runCLI(t, cfg, "bg file "+img+"\nstatus\ndrop 400 300 🐱 hello\ndrop 1 1 plain\nshow\n", "edit")
	for _, want := range []string{"fetch: idle", "image: 3x2", "🐱 at (0,0) size 40", "nothing to drop", "background: image ("} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestEditRemoteBackgroundUsesCache(t *testing.T) {
	cfg := testConfig(t)
	body := pngFile(t, 1600, 600)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	_, out := runCLI(t, cfg, "bg url "+srv.URL+"/bg.png\nwait\nfit\n", "edit")
	if !strings.Contains(out, "fetch idle") || !strings.Contains(out, "zoom 0.5") {
		t.Fatalf("remote background not resolved:\n%s", out)
	}
	srv.Close()
	// the autosaved document still points at the server; the cache serves it
	_, out = runCLI(t, cfg, "wait\n", "edit")
	if !strings.Contains(out, "fetch idle") {
		t.Fatalf("cached background not used:\n%s", out)
	}
}

func TestEditRemoteBackgroundFailure(t *testing.T) {
	cfg := testConfig(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	_, out := runCLI(t, cfg, "bg url "+srv.URL+"/nope.png\nwait\nbg blank\nstatus\n", "edit")
	if !strings.Contains(out, "fetch failed("+srv.URL+"/nope.png)") || !strings.Contains(out, "fetch: idle") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestShowMissingDocument(t *testing.T) {
	cfg := testConfig(t)
	code, out := runCLI(t, cfg, "", "show")
	if code != 0 || !strings.Contains(out, "no document") {
		t.Fatalf("show: %d %q", code, out)
	}
}

func TestPalettesCommand(t *testing.T) {
	cfg := testConfig(t)
	code, out := runCLI(t, cfg, "", "palettes")
	if code != 0 || !strings.Contains(out, "Vehicles") || !strings.Contains(out, "Sports") {
		t.Fatalf("list: %d\n%s", code, out)
	}
	_, out = runCLI(t, cfg, "", "palettes", "add", "Faces", "😀😀😃", "0")
	if !strings.Contains(out, `added palette "Faces" (id 3)`) || !strings.Contains(out, "😀😃") {
		t.Fatalf("add:\n%s", out)
	}
	_, out = runCLI(t, cfg, "", "palettes", "emojis", "0", "x🙂")
	if !strings.Contains(out, "🙂😀😃") {
		t.Fatalf("emojis:\n%s", out)
	}
	_, out = runCLI(t, cfg, "", "palettes", "rename", "0", "Smileys")
	if !strings.Contains(out, "Smileys") {
		t.Fatalf("rename:\n%s", out)
	}
	for i := 0; i < 3; i++ {
		runCLI(t, cfg, "", "palettes", "remove", "0")
	}
	code, out = runCLI(t, cfg, "", "palettes", "remove", "0")
	if code != 0 || !strings.Contains(out, "not removed") {
		t.Fatalf("removing the last palette should be refused:\n%s", out)
	}
	if code, _ := runCLI(t, cfg, "", "palettes", "remove", "x"); code != 2 {
		t.Fatalf("invalid index should exit 2")
	}
}

func TestExportCommand(t *testing.T) {
	cfg := testConfig(t)
	img := filepath.Join(t.TempDir(), "bg.png")
	if err := os.WriteFile(img, pngFile(t, 30, 20), 0o644); err != nil {
		t.Fatal(err)
	}
	if code, out := runCLI(t, cfg, "", "export", filepath.Join(t.TempDir(), "x.svg")); code != 1 || !strings.Contains(out, "no document") {
		t.Fatalf("export without document: %d %q", code, out)
	}
	runCLI(t, cfg, "bg file "+img+"\nadd 😀 0 0 40\n", "edit")

	dir := t.TempDir()
	svg := filepath.Join(dir, "art.svg")
	if code, out := runCLI(t, cfg, "", "export", svg); code != 0 {
		t.Fatalf("export svg: %d %q", code, out)
	}
	b, err := os.ReadFile(svg)
	if err != nil || !strings.Contains(string(b), "😀") || !strings.Contains(string(b), "data:image/png;base64,") {
		t.Fatalf("svg content: %v\n%s", err, b)
	}
	pdf := filepath.Join(dir, "art.pdf")
	if code, out := runCLI(t, cfg, "", "export", pdf, "", "2"); code != 0 {
		t.Fatalf("export pdf: %d %q", code, out)
	}
	if code, _ := runCLI(t, cfg, "", "export", filepath.Join(dir, "art.gif")); code != 2 {
		t.Fatalf("unsupported format should exit 2")
	}
}

func TestEditSessionReportsTelemetry(t *testing.T) {
	events := make(chan map[string]any, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		if err := json.NewDecoder(r.Body).Decode(&m); err == nil {
			events <- m
		}
	}))
	defer srv.Close()

	cfg := testConfig(t)
	tele := telemetry.New(telemetry.Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	var out bytes.Buffer
	if code := run(cfg, []string{"edit"}, strings.NewReader("add 😀 0 0 40\n# note\nshow\n"), &out, nil, tele); code != 0 {
		t.Fatalf("edit exit %d: %s", code, out.String())
	}
	tele.Close(context.Background())

	select {
	case m := <-events:
		if m["name"] != "edit_session" || m["commands"] != float64(2) || m["glyphs"] != float64(1) || m["saved"] != true {
			t.Fatalf("unexpected event: %v", m)
		}
	default:
		t.Fatalf("no telemetry event received")
	}
}

func TestActiveSessionFlush(t *testing.T) {
	var s activeSession
	if err := s.Flush(); err != nil {
		t.Fatalf("empty session flush: %v", err)
	}
	f := &countingFlusher{}
	s.set(f)
	if err := s.Flush(); err != nil || f.n != 1 {
		t.Fatalf("flush not delegated: %v %d", err, f.n)
	}
}

type countingFlusher struct{ n int }

func (f *countingFlusher) Flush() error {
	f.n++
	return nil
}
