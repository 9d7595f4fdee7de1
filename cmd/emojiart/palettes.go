/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"emojiart/internal/palette"
)

func (a *app) palettes(out io.Writer, args []string) int {
	store := palette.New(a.cfg.Palettes.StoreName, a.kv())
	sub := "list"
	if len(args) > 0 {
		sub, args = args[0], args[1:]
	}
	index := func(s string) (int, bool) {
		n, err := strconv.Atoi(s)
		if err != nil {
			fmt.Fprintf(out, "invalid index %q\n", s)
			return 0, false
		}
		return n, true
	}
	switch sub {
	case "list":
	case "add":
		if len(args) < 2 {
			fmt.Fprintln(out, "usage: palettes add <name> <emojis> [index]")
			return 2
		}
		at := 0
		if len(args) > 2 {
			n, ok := index(args[2])
			if !ok {
				return 2
			}
			at = n
		}
		p := store.Insert(args[0], args[1], at)
		fmt.Fprintf(out, "added palette %q (id %d)\n", p.Name, p.ID)
	case "remove":
		if len(args) != 1 {
			fmt.Fprintln(out, "usage: palettes remove <index>")
			return 2
		}
		n, ok := index(args[0])
		if !ok {
			return 2
		}
		before := store.Count()
		next := store.Remove(n)
		if store.Count() == before {
			fmt.Fprintln(out, "palette not removed (out of range or last palette)")
		}
		fmt.Fprintf(out, "focus %d\n", next)
	case "rename":
		if len(args) < 2 {
			fmt.Fprintln(out, "usage: palettes rename <index> <name>")
			return 2
		}
		n, ok := index(args[0])
		if !ok {
			return 2
		}
		store.Rename(n, strings.Join(args[1:], " "))
	case "emojis":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: palettes emojis <index> <emojis>")
			return 2
		}
		n, ok := index(args[0])
		if !ok {
			return 2
		}
		store.AddEmojis(n, args[1])
	case "remove-emoji":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: palettes remove-emoji <index> <emoji>")
			return 2
		}
		n, ok := index(args[0])
		if !ok {
			return 2
		}
		store.RemoveEmoji(n, args[1])
	case "move":
		if len(args) != 2 {
			fmt.Fprintln(out, "usage: palettes move <from> <to>")
			return 2
		}
		from, ok := index(args[0])
		if !ok {
			return 2
		}
		to, ok := index(args[1])
		if !ok {
			return 2
		}
		store.Move(from, to)
	default:
		fmt.Fprintf(out, "unknown palettes command %q\n", sub)
		return 2
	}
	for i, p := range store.Palettes() {
		fmt.Fprintf(out, "%2d  %-12s %s  (id %d)\n", i, p.Name, p.Emojis, p.ID)
	}
	return 0
}
