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
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"

	"emojiart/internal/domain"
)

// WriteSVG writes doc as a standalone SVG. The background is embedded as a PNG
// data URI and glyphs are text elements centered on their position, so emoji
// render with the viewer's fonts.
func WriteSVG(w io.Writer, doc domain.Document, bg image.Image, opt Options) error {
	opt = opt.withDefaults()
	p, err := newPage(doc, bg, opt)
	if err != nil {
		return err
	}
	fr := p.frame
	pw, ph := p.size()

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"%g %g %g %g\">\n",
		int(math.Round(pw)), int(math.Round(ph)), fr.MinX, fr.MinY, fr.Width(), fr.Height())
	wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" fill=\"#ffffff\"/>\n", fr.MinX, fr.MinY, fr.Width(), fr.Height())

	if bg != nil && !bg.Bounds().Empty() {
		var enc bytes.Buffer
		if err := png.Encode(&enc, bg); err != nil {
			return fmt.Errorf("encode background: %w", err)
		}
		bf := BackgroundFrame(bg)
		wf("  <image x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" href=\"data:image/png;base64,%s\"/>\n",
			bf.MinX, bf.MinY, bf.Width(), bf.Height(), base64.StdEncoding.EncodeToString(enc.Bytes()))
	}

	for _, g := range doc.Glyphs() {
		wf("  <text x=\"%d\" y=\"%d\" font-size=\"%d\" text-anchor=\"middle\" dominant-baseline=\"central\">%s</text>\n",
			g.X, g.Y, g.Size, escText(g.Text))
	}
	wf("</svg>\n")

	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
