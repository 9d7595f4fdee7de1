/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"math"
	"slices"
	"unicode/utf8"
)

// Glyph is one placed emoji. X and Y are offsets from the canvas center in
// model units (positive y is down); Size is the nominal size at zoom 1.
type Glyph struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
	Size int    `json:"size"`
}

// MinGlyphSize is the floor applied when scaling.
const MinGlyphSize = 1

// Document is an immutable snapshot. The zero value is an empty document with a blank background.
type Document struct {
	background Background
	glyphs     []Glyph
}

// New returns an empty document.
func New() Document { return Document{background: Blank{}} }

// Background returns the document background, never nil. RawImage data is
// shared with the document and must not be modified.
func (d Document) Background() Background { return normalize(d.background) }

// Glyphs returns a copy of the glyphs in z-order (last is on top).
func (d Document) Glyphs() []Glyph { return slices.Clone(d.glyphs) }

// Len is the number of glyphs.
func (d Document) Len() int { return len(d.glyphs) }

// Glyph looks a glyph up by id.
func (d Document) Glyph(id int) (Glyph, bool) {
	if i := d.index(id); i >= 0 {
		return d.glyphs[i], true
	}
	return Glyph{}, false
}

func (d Document) index(id int) int {
	return slices.IndexFunc(d.glyphs, func(g Glyph) bool { return g.ID == id })
}

// Equal is structural equality over background and glyph sequence.
func (d Document) Equal(o Document) bool {
	return BackgroundsEqual(d.background, o.background) && slices.Equal(d.glyphs, o.glyphs)
}

// SetBackground returns a copy with bg as background. A background that could
// not be persisted (see ValidBackground) leaves the document unchanged.
func (d Document) SetBackground(bg Background) Document {
	if !ValidBackground(bg) {
		return d
	}
	return Document{background: detach(bg), glyphs: d.glyphs}
}

// ValidGlyphText reports whether text can be placed: non-empty valid UTF-8.
func ValidGlyphText(text string) bool { return text != "" && utf8.ValidString(text) }

// AddGlyph appends a glyph with a freshly minted id and returns the new
// document along with that id. Text rejected by ValidGlyphText leaves the
// document unchanged and yields id 0.
func (d Document) AddGlyph(text string, x, y, size int) (Document, int) {
	if !ValidGlyphText(text) {
		return d, 0
	}
	g := Glyph{ID: nextGlyphID(), Text: text, X: x, Y: y, Size: max(size, MinGlyphSize)}
	glyphs := make([]Glyph, 0, len(d.glyphs)+1)
	glyphs = append(glyphs, d.glyphs...)
	glyphs = append(glyphs, g)
	return Document{background: d.background, glyphs: glyphs}, g.ID
}

// UpdateGlyph applies fn to the glyph with the given id. A missing id is not an
// error: the document is returned unchanged, since the glyph may have been
// removed by an undo. fn cannot change the id, and a result with invalid text
// is discarded.
func (d Document) UpdateGlyph(id int, fn func(Glyph) Glyph) Document {
	i := d.index(id)
	if i < 0 {
		return d
	}
	glyphs := slices.Clone(d.glyphs)
	g := fn(glyphs[i])
	if !ValidGlyphText(g.Text) {
		return d
	}
	g.ID = id
	glyphs[i] = g
	return Document{background: d.background, glyphs: glyphs}
}

// MoveGlyph translates a glyph by (dx, dy) model units.
func (d Document) MoveGlyph(id, dx, dy int) Document {
	return d.UpdateGlyph(id, func(g Glyph) Glyph {
		g.X += dx
		g.Y += dy
		return g
	})
}

// ScaleGlyph multiplies a glyph's size by factor, rounding half away from zero
// and flooring at MinGlyphSize. A non-finite factor is ignored.
func (d Document) ScaleGlyph(id int, factor float64) Document {
	if math.IsNaN(factor) || math.IsInf(factor, 0) {
		return d
	}
	return d.UpdateGlyph(id, func(g Glyph) Glyph {
		g.Size = ScaleSize(g.Size, factor)
		return g
	})
}

// ScaleSize is the scaling rule used by ScaleGlyph.
func ScaleSize(size int, factor float64) int {
	return max(int(math.Round(float64(size)*factor)), MinGlyphSize)
}

// RemoveGlyph drops the glyph with the given id; a missing id is a no-op.
func (d Document) RemoveGlyph(id int) Document {
	i := d.index(id)
	if i < 0 {
		return d
	}
	return Document{background: d.background, glyphs: slices.Delete(slices.Clone(d.glyphs), i, i+1)}
}
