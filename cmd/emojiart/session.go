/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"emojiart/internal/crash"
	"emojiart/internal/document"
	"emojiart/internal/domain"
	"emojiart/internal/fetch"
	"emojiart/internal/geometry"
	"emojiart/internal/storage"
	"emojiart/internal/undo"
)

// viewSize is the virtual canvas used to map drop points and fit the background.
var viewSize = geometry.Size{W: 800, H: 600}

func (a *app) edit(in io.Reader, out io.Writer, arg string, onSession func(crash.Flusher)) int {
	path := a.docPath(arg)
	var opts []storage.AutosaveOption
	if a.db != nil {
		opts = append(opts, storage.WithRevisions(a.db, a.cfg.State.KeepRevisions))
	}
	saver := storage.NewAutosave(path, opts...)
	undoLog := undo.NewLog[domain.Document](
		undo.Config{MaxDepth: a.cfg.Undo.MaxDepth, MaxBytes: a.cfg.Undo.MaxBytes},
		undo.WithSizeOf(document.SnapshotSize),
	)
	ctrl := document.New(saver.Load(), document.Options{
		Fetcher:   a.fetcher(),
		Persister: saver,
		Coalesce:  a.cfg.Document.CoalesceInterval(),
		Undo:      undoLog,
	})
	if onSession != nil {
		onSession(ctrl)
	}
	a.log.Info("edit session", slog.String("path", path), slog.String("session", saver.Session()))

	start := time.Now()
	s := &session{ctrl: ctrl, out: out, camera: geometry.NewCamera()}
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		quit, err := s.exec(sc.Text())
		if err != nil {
			fmt.Fprintln(out, "error:", err)
		}
		if quit {
			break
		}
	}
	err := ctrl.Close()
	a.tele.Event("edit_session", map[string]any{
		"commands":    s.commands,
		"glyphs":      ctrl.Snapshot().Len(),
		"duration_ms": time.Since(start).Milliseconds(),
		"saved":       err == nil,
	})
	if err != nil {
		fmt.Fprintln(out, "Error: save failed:", err)
		return 1
	}
	return 0
}

// session interprets edit commands against one controller.
type session struct {
	ctrl     *document.Controller
	out      io.Writer
	camera   geometry.Camera
	commands int
}

var errUsage = errors.New("usage")

func (s *session) viewport() geometry.Viewport { return s.camera.Viewport(viewSize) }

// exec runs one command line and reports whether the session should end.
func (s *session) exec(line string) (bool, error) {
	f := strings.Fields(line)
	if len(f) == 0 || strings.HasPrefix(f[0], "#") {
		return false, nil
	}
	cmd, args := f[0], f[1:]
	s.commands++
	switch cmd {
	case "quit", "exit":
		return true, nil
	case "help":
		s.help()
	case "add":
		if len(args) != 4 {
			return false, fmt.Errorf("%w: add <glyph> <x> <y> <size>", errUsage)
		}
		n, err := ints(args[1:]...)
		if err != nil {
			return false, err
		}
		id := s.ctrl.AddGlyph(args[0], n[0], n[1], n[2])
		if id == 0 {
			return false, fmt.Errorf("invalid glyph text %q", args[0])
		}
		fmt.Fprintf(s.out, "added #%d\n", id)
	case "move":
		if len(args) != 3 {
			return false, fmt.Errorf("%w: move <id> <dx> <dy>", errUsage)
		}
		n, err := ints(args...)
		if err != nil {
			return false, err
		}
		s.ctrl.MoveGlyph(n[0], n[1], n[2])
	case "scale":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: scale <id> <factor>", errUsage)
		}
		n, err := ints(args[0])
		if err != nil {
			return false, err
		}
		factor, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return false, fmt.Errorf("invalid factor %q", args[1])
		}
		s.ctrl.ScaleGlyph(n[0], factor)
	case "remove":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: remove <id>", errUsage)
		}
		n, err := ints(args[0])
		if err != nil {
			return false, err
		}
		s.ctrl.RemoveGlyph(n[0])
	case "bg":
		return false, s.background(args)
	case "drop":
		if len(args) < 3 {
			return false, fmt.Errorf("%w: drop <x> <y> <text|url>", errUsage)
		}
		x, errX := strconv.ParseFloat(args[0], 64)
		y, errY := strconv.ParseFloat(args[1], 64)
		if errX != nil || errY != nil {
			return false, fmt.Errorf("invalid drop point %s,%s", args[0], args[1])
		}
		payload := strings.Join(args[2:], " ")
		d := document.Drop{Text: payload}
		if isWebURL(payload) {
			d = document.Drop{URL: payload}
		}
		if !s.ctrl.Drop(d, geometry.Pt{X: x, Y: y}, s.viewport()) {
			fmt.Fprintln(s.out, "nothing to drop")
		}
	case "undo":
		label := s.ctrl.UndoLabel()
		if !s.ctrl.Undo() {
			fmt.Fprintln(s.out, "nothing to undo")
		} else {
			fmt.Fprintf(s.out, "undid %s\n", label)
		}
	case "redo":
		label := s.ctrl.RedoLabel()
		if !s.ctrl.Redo() {
			fmt.Fprintln(s.out, "nothing to redo")
		} else {
			fmt.Fprintf(s.out, "redid %s\n", label)
		}
	case "zoom":
		if len(args) != 1 {
			return false, fmt.Errorf("%w: zoom <factor>", errUsage)
		}
		z, err := strconv.ParseFloat(args[0], 64)
		if err != nil || z <= 0 {
			return false, fmt.Errorf("invalid zoom %q", args[0])
		}
		s.camera = s.camera.EndZoom(z)
		fmt.Fprintf(s.out, "zoom %.3g\n", s.camera.Zoom())
	case "pan":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: pan <dx> <dy>", errUsage)
		}
		dx, errX := strconv.ParseFloat(args[0], 64)
		dy, errY := strconv.ParseFloat(args[1], 64)
		if errX != nil || errY != nil {
			return false, fmt.Errorf("invalid pan %s,%s", args[0], args[1])
		}
		s.camera = s.camera.EndPan(geometry.Size{W: dx, H: dy})
	case "fit":
		s.ctrl.Wait()
		img := s.ctrl.Image()
		if img == nil {
			return false, errors.New("no background image to fit")
		}
		s.camera = s.camera.ZoomToFit(fetch.ImageSize(img), viewSize)
		fmt.Fprintf(s.out, "zoom %.3g\n", s.camera.Zoom())
	case "wait":
		s.ctrl.Wait()
		fmt.Fprintln(s.out, "fetch", s.ctrl.FetchStatus())
	case "show":
		s.show()
	case "status":
		s.status()
	case "save":
		if err := s.ctrl.Flush(); err != nil {
			return false, err
		}
		fmt.Fprintln(s.out, "saved")
	default:
		return false, fmt.Errorf("unknown command %q (try help)", cmd)
	}
	return false, nil
}

func (s *session) background(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: bg blank|url <u>|file <path>", errUsage)
	}
	switch args[0] {
	case "blank":
		s.ctrl.SetBackground(domain.Blank{})
	case "url":
		if len(args) != 2 {
			return fmt.Errorf("%w: bg url <u>", errUsage)
		}
		s.ctrl.SetBackground(domain.RemoteURL{URL: fetch.ImageURL(args[1])})
	case "file":
		if len(args) != 2 {
			return fmt.Errorf("%w: bg file <path>", errUsage)
		}
		b, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		s.ctrl.SetBackground(domain.RawImage{Data: b})
	default:
		return fmt.Errorf("%w: bg blank|url <u>|file <path>", errUsage)
	}
	return nil
}

func (s *session) show() {
	doc := s.ctrl.Snapshot()
	vp := s.viewport()
	fmt.Fprintf(s.out, "background: %s\n", describeBackground(doc.Background()))
	fmt.Fprintf(s.out, "glyphs: %d\n", doc.Len())
	for _, g := range doc.Glyphs() {
		p := vp.ToView(g.X, g.Y)
		fmt.Fprintf(s.out, "  #%d %s at (%d,%d) size %d  view (%.1f,%.1f) %.1fpt\n", g.ID, g.Text, g.X, g.Y, g.Size, p.X, p.Y, vp.ViewSize(g.Size))
	}
}

func (s *session) status() {
	fmt.Fprintf(s.out, "fetch: %s\n", s.ctrl.FetchStatus())
	if img := s.ctrl.Image(); img != nil {
		sz := fetch.ImageSize(img)
		fmt.Fprintf(s.out, "image: %.0fx%.0f\n", sz.W, sz.H)
	}
	fmt.Fprintf(s.out, "zoom: %.3g\n", s.camera.Zoom())
	fmt.Fprintf(s.out, "pending save: %v\n", s.ctrl.Pending())
	if l := s.ctrl.UndoLabel(); l != "" {
		fmt.Fprintf(s.out, "undo: %s\n", l)
	}
	if l := s.ctrl.RedoLabel(); l != "" {
		fmt.Fprintf(s.out, "redo: %s\n", l)
	}
}

func (s *session) help() {
	fmt.Fprintln(s.out, `commands:
  add <glyph> <x> <y> <size>   move <id> <dx> <dy>   scale <id> <factor>   remove <id>
  bg blank | bg url <u> | bg file <path>
  drop <x> <y> <text|url>      drop at a view point
  undo  redo  zoom <f>  pan <dx> <dy>  fit  wait  show  status  save  quit`)
}

func ints(ss ...string) ([]int, error) {
	out := make([]int, len(ss))
	for i, s := range ss {
		n, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", s)
		}
		out[i] = n
	}
	return out, nil
}

func isWebURL(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
