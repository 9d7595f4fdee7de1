/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"emojiart/internal/domain"
	"emojiart/internal/version"
)

// WritePDF writes doc as a single-page PDF sized to the content, one model unit
// per Options.Scale points. The core fonts cannot encode emoji, so each glyph is
// drawn as its frame labelled with the glyph id.
func WritePDF(w io.Writer, doc domain.Document, bg image.Image, opt Options) error {
	opt = opt.withDefaults()
	p, err := newPage(doc, bg, opt)
	if err != nil {
		return err
	}
	pw, ph := p.size()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	pdf.SetTitle(opt.Title, true)
	pdf.SetCreator("EmojiArt "+version.String(), true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetMargins(0, 0, 0)
	pdf.AddPage()

	if bg != nil && !bg.Bounds().Empty() {
		var enc bytes.Buffer
		if err := png.Encode(&enc, bg); err != nil {
			return fmt.Errorf("encode background: %w", err)
		}
		imgOpt := gofpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader("background", imgOpt, &enc)
		bf := BackgroundFrame(bg)
		x, y := p.pt(bf.MinX, bf.MinY)
		pdf.ImageOptions("background", x, y, bf.Width()*p.scale, bf.Height()*p.scale, false, imgOpt, 0, "")
	}

	pdf.SetDrawColor(int(opt.BoxColor.R), int(opt.BoxColor.G), int(opt.BoxColor.B))
	pdf.SetTextColor(int(opt.BoxColor.R), int(opt.BoxColor.G), int(opt.BoxColor.B))
	pdf.SetLineWidth(0.5)
	for _, g := range doc.Glyphs() {
		gf := GlyphFrame(g)
		x, y := p.pt(gf.MinX, gf.MinY)
		side := gf.Width() * p.scale
		pdf.Rect(x, y, side, side, "D")
		fsz := math.Max(4, math.Min(12, side/4))
		pdf.SetFont("Helvetica", "", fsz)
		pdf.Text(x+1, y+fsz, fmt.Sprintf("#%d", g.ID))
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
