/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"emojiart/internal/config"
	"emojiart/internal/domain"
	"emojiart/internal/fetch"
	applog "emojiart/internal/log"
	"emojiart/internal/palette"
	"emojiart/internal/storage"
	"emojiart/internal/telemetry"
)

// app holds the resources shared by all commands.
type app struct {
	cfg  config.AppConfig
	db   *storage.StateDB // nil when the state database is unavailable
	tele *telemetry.Client
	log  *slog.Logger
}

func openApp(cfg config.AppConfig, tele *telemetry.Client) (*app, error) {
	a := &app{cfg: cfg, tele: tele, log: applog.WithComponent("cli")}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	db, recovered, err := storage.OpenOrRecoverStateDB(ctx, cfg.State.DBPath)
	if err != nil {
		// palettes fall back to memory, history and the image cache are disabled
		a.log.Warn("state db unavailable", slog.Any("err", err))
		return a, nil
	}
	if recovered {
		a.log.Warn("state db was recreated", slog.String("path", cfg.State.DBPath))
	}
	a.db = db
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *app) kv() palette.KV {
	if a.db != nil {
		return a.db
	}
	return palette.NewMemoryKV()
}

func (a *app) fetcher() fetch.Fetcher {
	base := fetch.NewHTTPFetcher(a.cfg.Fetch.Timeout(), a.cfg.Fetch.MaxBytes)
	if a.cfg.Fetch.Cache && a.db != nil {
		return &fetch.CachingFetcher{Next: base, Cache: a.db.ImageCache(a.cfg.Fetch.CacheMaxBytes)}
	}
	return base
}

func (a *app) docPath(arg string) string {
	if arg != "" {
		return arg
	}
	return a.cfg.Document.AutosavePath
}

func (a *app) show(out io.Writer, arg string) int {
	path := a.docPath(arg)
	doc, err := storage.LoadDocument(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(out, "%s: no document\n", path)
		return 0
	case err != nil:
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	printDocument(out, doc)
	return 0
}

func (a *app) history(out io.Writer, args []string) int {
	if a.db == nil {
		fmt.Fprintln(out, "Error: state database unavailable")
		return 1
	}
	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			fmt.Fprintf(out, "invalid count %q\n", args[0])
			return 2
		}
		n = v
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	revs, err := a.db.ListRevisions(ctx, n)
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	if len(revs) == 0 {
		fmt.Fprintln(out, "no revisions")
		return 0
	}
	for _, r := range revs {
		session := r.Session
		if len(session) > 8 {
			session = session[:8]
		}
		fmt.Fprintf(out, "%4d  %s  %s  %d glyphs  %d bytes\n", r.ID, r.TS.Local().Format(time.DateTime), session, r.Glyphs, len(r.Doc))
	}
	return 0
}

func printDocument(out io.Writer, doc domain.Document) {
	fmt.Fprintf(out, "background: %s\n", describeBackground(doc.Background()))
	fmt.Fprintf(out, "glyphs: %d\n", doc.Len())
	for _, g := range doc.Glyphs() {
		fmt.Fprintf(out, "  #%d %s at (%d,%d) size %d\n", g.ID, g.Text, g.X, g.Y, g.Size)
	}
}

func describeBackground(bg domain.Background) string {
	switch b := bg.(type) {
	case domain.RemoteURL:
		return "url " + b.URL
	case domain.RawImage:
		return fmt.Sprintf("image (%d bytes)", len(b.Data))
	default:
		return "blank"
	}
}
