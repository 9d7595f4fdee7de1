/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "sync/atomic"

// lastGlyphID is the session-wide id counter. Ids are never reused within a
// process, including after a glyph is removed or an add is undone.
var lastGlyphID atomic.Int64

func nextGlyphID() int {
	return int(lastGlyphID.Add(1))
}

// reserveGlyphIDs advances the counter past id so decoded glyphs keep their ids
// and freshly added ones never collide with them.
func reserveGlyphIDs(id int) {
	for {
		cur := lastGlyphID.Load()
		if int64(id) <= cur || lastGlyphID.CompareAndSwap(cur, int64(id)) {
			return
		}
	}
}
