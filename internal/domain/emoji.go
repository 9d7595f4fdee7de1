/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

// emojiScalars covers code points carrying the Unicode Emoji property.
var emojiScalars = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0023, Hi: 0x0023, Stride: 1},
		{Lo: 0x002a, Hi: 0x002a, Stride: 1},
		{Lo: 0x0030, Hi: 0x0039, Stride: 1},
		{Lo: 0x00a9, Hi: 0x00ae, Stride: 5},
		{Lo: 0x203c, Hi: 0x203c, Stride: 1},
		{Lo: 0x2049, Hi: 0x2049, Stride: 1},
		{Lo: 0x2122, Hi: 0x2122, Stride: 1},
		{Lo: 0x2139, Hi: 0x2139, Stride: 1},
		{Lo: 0x2194, Hi: 0x2199, Stride: 1},
		{Lo: 0x21a9, Hi: 0x21aa, Stride: 1},
		{Lo: 0x231a, Hi: 0x231b, Stride: 1},
		{Lo: 0x2328, Hi: 0x2328, Stride: 1},
		{Lo: 0x23cf, Hi: 0x23cf, Stride: 1},
		{Lo: 0x23e9, Hi: 0x23f3, Stride: 1},
		{Lo: 0x23f8, Hi: 0x23fa, Stride: 1},
		{Lo: 0x24c2, Hi: 0x24c2, Stride: 1},
		{Lo: 0x25aa, Hi: 0x25ab, Stride: 1},
		{Lo: 0x25b6, Hi: 0x25c0, Stride: 10},
		{Lo: 0x25fb, Hi: 0x25fe, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2934, Hi: 0x2935, Stride: 1},
		{Lo: 0x2b05, Hi: 0x2b07, Stride: 1},
		{Lo: 0x2b1b, Hi: 0x2b1c, Stride: 1},
		{Lo: 0x2b50, Hi: 0x2b55, Stride: 5},
		{Lo: 0x3030, Hi: 0x3030, Stride: 1},
		{Lo: 0x303d, Hi: 0x303d, Stride: 1},
		{Lo: 0x3297, Hi: 0x3299, Stride: 2},
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1},
	},
}

// IsEmoji reports whether the grapheme cluster g renders as an emoji. A lone scalar
// below U+238D (digits, ©, ↔ ...) only counts when followed by a presentation
// selector or other modifier.
func IsEmoji(g string) bool {
	if g == "" {
		return false
	}
	var first rune
	n := 0
	for _, r := range g {
		if n == 0 {
			first = r
		}
		n++
	}
	if !unicode.Is(emojiScalars, first) {
		return false
	}
	return first >= 0x238d || n > 1
}

// Graphemes splits s into user-perceived characters.
func Graphemes(s string) []string {
	var out []string
	state := -1
	for len(s) > 0 {
		var c string
		c, s, _, state = uniseg.FirstGraphemeClusterInString(s, state)
		out = append(out, c)
	}
	return out
}

// FirstGrapheme returns the first user-perceived character of s.
func FirstGrapheme(s string) string {
	c, _, _, _ := uniseg.FirstGraphemeClusterInString(s, -1)
	return c
}

// UniqueGraphemes removes repeated characters from s keeping first occurrences.
func UniqueGraphemes(s string) string {
	seen := make(map[string]bool)
	var b strings.Builder
	for _, g := range Graphemes(s) {
		if seen[g] {
			continue
		}
		seen[g] = true
		b.WriteString(g)
	}
	return b.String()
}

// EmojisOnly keeps the emoji characters of s, without repeats, in order of first occurrence.
func EmojisOnly(s string) string {
	var b strings.Builder
	for _, g := range Graphemes(UniqueGraphemes(s)) {
		if IsEmoji(g) {
			b.WriteString(g)
		}
	}
	return b.String()
}
