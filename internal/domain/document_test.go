/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "testing"

func TestGlyphScenario(t *testing.T) {
	d0 := New()
	d1, id := d0.AddGlyph("😀", 10, -5, 40)
	if d1.Len() != 1 {
		t.Fatalf("expected one glyph, got %d", d1.Len())
	}
	g, ok := d1.Glyph(id)
	if !ok || g.Text != "😀" || g.X != 10 || g.Y != -5 || g.Size != 40 || g.ID <= 0 {
		t.Fatalf("unexpected glyph: %+v ok=%v", g, ok)
	}
	d2 := d1.ScaleGlyph(id, 1.5)
	if g, _ := d2.Glyph(id); g.Size != 60 {
		t.Fatalf("scaled size = %d, want 60", g.Size)
	}
	d3 := d2.MoveGlyph(id, 5, 5)
	if g, _ := d3.Glyph(id); g.X != 15 || g.Y != 0 {
		t.Fatalf("moved glyph = %+v, want x=15 y=0", g)
	}
	// Earlier snapshots are untouched.
	if d0.Len() != 0 {
		t.Fatalf("original document mutated")
	}
	if g, _ := d1.Glyph(id); g.Size != 40 || g.X != 10 {
		t.Fatalf("intermediate snapshot mutated: %+v", g)
	}
}

func TestIDsAreUniqueAndNeverReused(t *testing.T) {
	d, a := New().AddGlyph("🐶", 0, 0, 10)
	d, b := d.AddGlyph("🐱", 0, 0, 10)
	d = d.RemoveGlyph(b)
	_, c := d.AddGlyph("🐭", 0, 0, 10)
	if a == b || b == c || a == c {
		t.Fatalf("ids reused: %d %d %d", a, b, c)
	}
	if c <= b {
		t.Fatalf("ids must be monotonic: %d after %d", c, b)
	}
}

func TestUpdateMissingGlyphIsNoop(t *testing.T) {
	d, _ := New().AddGlyph("🚗", 1, 2, 30)
	if got := d.MoveGlyph(-42, 3, 3); !got.Equal(d) {
		t.Fatalf("move of unknown id changed the document")
	}
	if got := d.ScaleGlyph(-42, 2); !got.Equal(d) {
		t.Fatalf("scale of unknown id changed the document")
	}
	if got := d.RemoveGlyph(-42); !got.Equal(d) {
		t.Fatalf("remove of unknown id changed the document")
	}
}

func TestUpdateGlyphKeepsID(t *testing.T) {
	d, id := New().AddGlyph("🚗", 1, 2, 30)
	d = d.UpdateGlyph(id, func(g Glyph) Glyph {
		g.ID = 9999
		g.Text = "🚕"
		return g
	})
	g, ok := d.Glyph(id)
	if !ok || g.Text != "🚕" {
		t.Fatalf("update lost the glyph or changed its id: %+v", d.Glyphs())
	}
}

func TestScaleSizeRounding(t *testing.T) {
	cases := []struct {
		size   int
		factor float64
		want   int
	}{
		{40, 1.5, 60},
		{5, 0.5, 3},   // 2.5 rounds away from zero
		{3, 0.5, 2},   // 1.5 rounds away from zero
		{10, 0.01, 1}, // floored
		{10, 0, 1},
		{10, -2, 1},
		{7, 1, 7},
	}
	for _, c := range cases {
		if got := ScaleSize(c.size, c.factor); got != c.want {
			t.Fatalf("ScaleSize(%d, %v) = %d, want %d", c.size, c.factor, got, c.want)
		}
	}
}

func TestBackgroundEquality(t *testing.T) {
	if !(Blank{}).Equal(Blank{}) || (Blank{}).Equal(RemoteURL{URL: "x"}) {
		t.Fatalf("blank equality wrong")
	}
	if !(RemoteURL{URL: "a"}).Equal(RemoteURL{URL: "a"}) || (RemoteURL{URL: "a"}).Equal(RemoteURL{URL: "b"}) {
		t.Fatalf("url equality wrong")
	}
	if !(RawImage{Data: []byte{1, 2}}).Equal(RawImage{Data: []byte{1, 2}}) || (RawImage{Data: []byte{1}}).Equal(RemoteURL{}) {
		t.Fatalf("raw image equality wrong")
	}
	if !BackgroundsEqual(nil, Blank{}) {
		t.Fatalf("nil must count as blank")
	}
	var zero Document
	if !zero.Equal(New()) {
		t.Fatalf("zero document must equal New()")
	}
}

func TestSetBackgroundDetachesBytes(t *testing.T) {
	data := []byte{1, 2, 3}
	d := New().SetBackground(RawImage{Data: data})
	data[0] = 9
	bg, _ := d.Background().(RawImage)
	if bg.Data[0] != 1 {
		t.Fatalf("document shares caller bytes")
	}
}

func TestBackgroundReadDoesNotCopy(t *testing.T) {
	d := New().SetBackground(RawImage{Data: []byte{1, 2, 3}})
	a, _ := d.Background().(RawImage)
	b, _ := d.Background().(RawImage)
	if &a.Data[0] != &b.Data[0] {
		t.Fatalf("Background() copied the raw bytes")
	}
	if !BackgroundsEqual(d.Background(), RawImage{Data: []byte{1, 2, 3}}) {
		t.Fatalf("raw backgrounds with equal bytes must compare equal")
	}
}
