/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package domain holds the document model of an emoji art canvas: a background
// and an ordered set of glyph placements. Documents are immutable values; every
// operation returns a new Document and leaves its receiver untouched.
package domain

import (
	"bytes"
	"unicode/utf8"
)

// Background is one of Blank, RemoteURL or RawImage.
type Background interface {
	// Equal reports whether both backgrounds are the same variant with the same payload.
	Equal(Background) bool
	// Kind is the variant tag used in the persisted form.
	Kind() string
	isBackground()
}

// Background kinds as persisted.
const (
	KindBlank     = "blank"
	KindRemoteURL = "url"
	KindRawImage  = "imageData"
)

// Blank is an empty canvas.
type Blank struct{}

// RemoteURL is an image to be retrieved from URL.
type RemoteURL struct{ URL string }

// RawImage is encoded image data held in the document itself.
type RawImage struct{ Data []byte }

func (Blank) Kind() string     { return KindBlank }
func (RemoteURL) Kind() string { return KindRemoteURL }
func (RawImage) Kind() string  { return KindRawImage }

func (Blank) isBackground()     {}
func (RemoteURL) isBackground() {}
func (RawImage) isBackground()  {}

func (Blank) Equal(o Background) bool {
	switch o.(type) {
	case Blank, nil:
		return true
	}
	return false
}

func (b RemoteURL) Equal(o Background) bool {
	v, ok := o.(RemoteURL)
	return ok && v.URL == b.URL
}

func (b RawImage) Equal(o Background) bool {
	v, ok := o.(RawImage)
	return ok && bytes.Equal(v.Data, b.Data)
}

// normalize maps a nil background to Blank.
func normalize(b Background) Background {
	if b == nil {
		return Blank{}
	}
	return b
}

// detach copies raw bytes so the document never shares them with the caller.
func detach(b Background) Background {
	if v, ok := b.(RawImage); ok {
		return RawImage{Data: bytes.Clone(v.Data)}
	}
	return normalize(b)
}

// ValidBackground reports whether b survives encoding unchanged: a remote URL
// must be non-empty valid UTF-8.
func ValidBackground(b Background) bool {
	if v, ok := b.(RemoteURL); ok {
		return v.URL != "" && utf8.ValidString(v.URL)
	}
	return true
}

// BackgroundsEqual compares two possibly nil backgrounds; nil counts as Blank.
func BackgroundsEqual(a, b Background) bool { return normalize(a).Equal(normalize(b)) }
