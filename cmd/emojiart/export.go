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
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"emojiart/internal/domain"
	"emojiart/internal/export"
	"emojiart/internal/fetch"
	"emojiart/internal/storage"
)

// export writes a document to an SVG, PNG or PDF file: export <out> [doc] [scale].
func (a *app) export(out io.Writer, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(out, "usage: export <out.svg|out.png|out.pdf> [doc] [scale]")
		return 2
	}
	dest := args[0]
	if _, err := export.FormatFor(dest); err != nil {
		fmt.Fprintln(out, "Error:", err)
		return 2
	}
	opt := export.Options{}
	if s := argAt(args, 2); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			fmt.Fprintf(out, "invalid scale %q\n", s)
			return 2
		}
		opt.Scale = v
	}

	path := a.docPath(argAt(args, 1))
	doc, err := storage.LoadDocument(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(out, "%s: no document\n", path)
		return 1
	case err != nil:
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	opt.Title = filepath.Base(path)

	bg := a.backgroundImage(doc.Background())
	if err := export.WriteFile(dest, doc, bg, opt); err != nil {
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	format, _ := export.FormatFor(dest)
	a.tele.Event("export", map[string]any{"format": format, "glyphs": doc.Len(), "background": doc.Background().Kind()})
	fmt.Fprintf(out, "exported %s\n", dest)
	return 0
}

// backgroundImage resolves a background for export. Failures are logged and
// the export proceeds without an image.
func (a *app) backgroundImage(bg domain.Background) image.Image {
	var data []byte
	switch b := bg.(type) {
	case domain.RawImage:
		data = b.Data
	case domain.RemoteURL:
		timeout := a.cfg.Fetch.Timeout()
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		d, err := a.fetcher().Fetch(ctx, b.URL)
		if err != nil {
			a.log.Warn("background fetch failed", slog.String("url", b.URL), slog.Any("err", err))
			return nil
		}
		data = d
	default:
		return nil
	}
	img, format, err := fetch.DecodeImage(data)
	if err != nil {
		a.log.Warn("background decode failed", slog.Any("err", err))
		return nil
	}
	a.log.Debug("background resolved", slog.String("format", format), slog.Int("bytes", len(data)))
	return img
}
