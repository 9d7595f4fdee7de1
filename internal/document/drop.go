/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"strings"

	"emojiart/internal/domain"
	"emojiart/internal/fetch"
	"emojiart/internal/geometry"
)

// DefaultGlyphSize is the on-screen size of a newly dropped glyph.
const DefaultGlyphSize = 40

// Drop is a payload dragged onto the canvas. The first usable item wins in the
// order URL, image data, text.
type Drop struct {
	URL   string
	Image []byte
	Text  string
}

// Drop handles a drop at view point at. A URL becomes the remote background, image
// data becomes the raw background, and text whose first character is an emoji is
// added as a glyph of DefaultGlyphSize on screen. It reports whether anything was accepted.
func (c *Controller) Drop(p Drop, at geometry.Pt, vp geometry.Viewport) bool {
	if u := strings.TrimSpace(p.URL); u != "" {
		c.SetBackground(domain.RemoteURL{URL: fetch.ImageURL(u)})
		return true
	}
	if len(p.Image) > 0 {
		c.SetBackground(domain.RawImage{Data: p.Image})
		return true
	}
	if g := domain.FirstGrapheme(p.Text); domain.IsEmoji(g) {
		x, y := vp.ToModel(at)
		c.AddGlyph(g, x, y, vp.ModelSize(DefaultGlyphSize))
		return true
	}
	return false
}
