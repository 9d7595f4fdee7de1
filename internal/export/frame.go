/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes EmojiArt documents to SVG, PNG and PDF files.
//
// Model coordinates have their origin at the center of the background image and
// grow right and down. The exported page covers the background image and every
// glyph box plus Options.Padding.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"emojiart/internal/domain"
)

const (
	FormatSVG = "svg"
	FormatPNG = "png"
	FormatPDF = "pdf"
)

// ErrEmpty is returned for a document without glyphs and without a background image.
var ErrEmpty = errors.New("export: nothing to export")

// Options controls all exporters. Zero values select defaults.
type Options struct {
	Scale    float64    // output pixels (PNG, SVG) or points (PDF) per model unit; default 1
	Padding  float64    // model units around the content; default 8, negative for none
	BoxColor color.RGBA // glyph frames in PNG and PDF output; default gray
	Title    string     // PDF document title
}

func (o Options) withDefaults() Options {
	if o.Scale <= 0 || math.IsNaN(o.Scale) || math.IsInf(o.Scale, 0) {
		o.Scale = 1
	}
	if o.Padding < 0 || math.IsNaN(o.Padding) {
		o.Padding = 0
	} else if o.Padding == 0 {
		o.Padding = 8
	}
	if o.BoxColor == (color.RGBA{}) {
		o.BoxColor = color.RGBA{R: 128, G: 128, B: 128, A: 255}
	}
	if o.Title == "" {
		o.Title = "EmojiArt"
	}
	return o
}

// Frame is a model-space rectangle.
type Frame struct {
	MinX, MinY, MaxX, MaxY float64
}

func (f Frame) Width() float64  { return f.MaxX - f.MinX }
func (f Frame) Height() float64 { return f.MaxY - f.MinY }

func (f Frame) union(o Frame) Frame {
	return Frame{
		MinX: math.Min(f.MinX, o.MinX), MinY: math.Min(f.MinY, o.MinY),
		MaxX: math.Max(f.MaxX, o.MaxX), MaxY: math.Max(f.MaxY, o.MaxY),
	}
}

// BackgroundFrame is the model-space area of a background image, centered on the origin.
func BackgroundFrame(bg image.Image) Frame {
	b := bg.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())
	return Frame{MinX: -w / 2, MinY: -h / 2, MaxX: w / 2, MaxY: h / 2}
}

// GlyphFrame is the square box of side Size centered on the glyph position.
func GlyphFrame(g domain.Glyph) Frame {
	half := float64(g.Size) / 2
	return Frame{MinX: float64(g.X) - half, MinY: float64(g.Y) - half, MaxX: float64(g.X) + half, MaxY: float64(g.Y) + half}
}

// ContentFrame covers bg (may be nil) and every glyph of doc, grown by pad on each side.
func ContentFrame(doc domain.Document, bg image.Image, pad float64) (Frame, error) {
	var f Frame
	have := false
	if bg != nil && !bg.Bounds().Empty() {
		f, have = BackgroundFrame(bg), true
	}
	for _, g := range doc.Glyphs() {
		gf := GlyphFrame(g)
		if !have {
			f, have = gf, true
			continue
		}
		f = f.union(gf)
	}
	if !have {
		return Frame{}, ErrEmpty
	}
	f.MinX -= pad
	f.MinY -= pad
	f.MaxX += pad
	f.MaxY += pad
	return f, nil
}

// page maps model coordinates into output coordinates.
type page struct {
	frame Frame
	scale float64
}

func (p page) pt(x, y float64) (float64, float64) {
	return (x - p.frame.MinX) * p.scale, (y - p.frame.MinY) * p.scale
}

func (p page) size() (float64, float64) { return p.frame.Width() * p.scale, p.frame.Height() * p.scale }

func newPage(doc domain.Document, bg image.Image, opt Options) (page, error) {
	f, err := ContentFrame(doc, bg, opt.Padding)
	if err != nil {
		return page{}, err
	}
	return page{frame: f, scale: opt.Scale}, nil
}

// FormatFor derives the export format from a file extension.
func FormatFor(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case FormatSVG, FormatPNG, FormatPDF:
		return ext, nil
	}
	return "", fmt.Errorf("export: unsupported format %q", ext)
}

// Write encodes doc in the given format.
func Write(w io.Writer, format string, doc domain.Document, bg image.Image, opt Options) error {
	switch format {
	case FormatSVG:
		return WriteSVG(w, doc, bg, opt)
	case FormatPNG:
		return WritePNG(w, doc, bg, opt)
	case FormatPDF:
		return WritePDF(w, doc, bg, opt)
	}
	return fmt.Errorf("export: unsupported format %q", format)
}

// WriteFile exports doc to path, choosing the format from its extension.
func WriteFile(path string, doc domain.Document, bg image.Image, opt Options) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure out dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", format, err)
	}
	if err := Write(f, format, doc, bg, opt); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", format, err)
	}
	return nil
}
