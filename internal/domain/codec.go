/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecode marks persisted document bytes that could not be understood.
var ErrDecode = errors.New("decode document")

// wireDocument is the persisted JSON shape:
//
//	{"background": {"kind": "url", "url": "..."}, "emojis": [{"id":1,"text":"😀","x":0,"y":0,"size":40}]}
type wireDocument struct {
	Background wireBackground `json:"background"`
	Emojis     []Glyph        `json:"emojis"`
}

type wireBackground struct {
	Kind string `json:"kind"`
	URL  string `json:"url,omitempty"`
	// encoding/json writes []byte as base64.
	Data []byte `json:"data,omitempty"`
}

// Encode serializes the document to its persisted JSON form.
func (d Document) Encode() ([]byte, error) {
	return json.Marshal(d)
}

// MarshalJSON implements json.Marshaler.
func (d Document) MarshalJSON() ([]byte, error) {
	w := wireDocument{Emojis: d.glyphs}
	if w.Emojis == nil {
		w.Emojis = []Glyph{}
	}
	switch bg := d.Background().(type) {
	case Blank:
		w.Background.Kind = KindBlank
	case RemoteURL:
		w.Background = wireBackground{Kind: KindRemoteURL, URL: bg.URL}
	case RawImage:
		w.Background = wireBackground{Kind: KindRawImage, Data: bg.Data}
	default:
		return nil, fmt.Errorf("encode document: unknown background %T", bg)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(b []byte) error {
	doc, err := Decode(b)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// Decode parses persisted JSON. Errors wrap ErrDecode. Glyphs without an id
// (older files) are assigned fresh ones; duplicate ids are rejected.
func Decode(b []byte) (Document, error) {
	var w wireDocument
	if err := json.Unmarshal(b, &w); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	var bg Background
	switch w.Background.Kind {
	case KindBlank, "":
		bg = Blank{}
	case KindRemoteURL:
		bg = RemoteURL{URL: w.Background.URL}
		if !ValidBackground(bg) {
			return Document{}, fmt.Errorf("%w: url background without url", ErrDecode)
		}
	case KindRawImage:
		bg = RawImage{Data: w.Background.Data}
	default:
		return Document{}, fmt.Errorf("%w: unknown background kind %q", ErrDecode, w.Background.Kind)
	}
	seen := make(map[int]bool, len(w.Emojis))
	for _, g := range w.Emojis {
		if g.ID > 0 {
			reserveGlyphIDs(g.ID)
		}
	}
	glyphs := make([]Glyph, 0, len(w.Emojis))
	for _, g := range w.Emojis {
		if g.ID <= 0 {
			g.ID = nextGlyphID()
		}
		if seen[g.ID] {
			return Document{}, fmt.Errorf("%w: duplicate glyph id %d", ErrDecode, g.ID)
		}
		seen[g.ID] = true
		if !ValidGlyphText(g.Text) {
			return Document{}, fmt.Errorf("%w: glyph %d has no text", ErrDecode, g.ID)
		}
		glyphs = append(glyphs, g)
	}
	if len(glyphs) == 0 {
		glyphs = nil
	}
	return Document{background: bg, glyphs: glyphs}, nil
}
