/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"

	"emojiart/internal/domain"
)

// maxPixels bounds the raster so a huge scale cannot exhaust memory.
const maxPixels = 64 << 20

// WritePNG rasterizes doc: the background image scaled into place and an outline
// for every glyph box. Glyph text is not drawn.
func WritePNG(w io.Writer, doc domain.Document, bg image.Image, opt Options) error {
	opt = opt.withDefaults()
	p, err := newPage(doc, bg, opt)
	if err != nil {
		return err
	}
	pw, ph := p.size()
	pixW := max(int(math.Round(pw)), 1)
	pixH := max(int(math.Round(ph)), 1)
	if pixW*pixH > maxPixels {
		return fmt.Errorf("export: raster %dx%d too large", pixW, pixH)
	}

	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	if bg != nil && !bg.Bounds().Empty() {
		bf := BackgroundFrame(bg)
		x0, y0 := p.pt(bf.MinX, bf.MinY)
		x1, y1 := p.pt(bf.MaxX, bf.MaxY)
		dst := image.Rect(int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1)), int(math.Round(y1)))
		xdraw.ApproxBiLinear.Scale(img, dst, bg, bg.Bounds(), xdraw.Over, nil)
	}

	for _, g := range doc.Glyphs() {
		gf := GlyphFrame(g)
		x0, y0 := p.pt(gf.MinX, gf.MinY)
		x1, y1 := p.pt(gf.MaxX, gf.MaxY)
		strokeRect(img, int(math.Round(x0)), int(math.Round(y0)), int(math.Round(x1))-1, int(math.Round(y1))-1, opt.BoxColor)
	}

	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
// Pixels outside img are skipped by SetRGBA.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}
