/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"emojiart/internal/config"
	"emojiart/internal/crash"
	applog "emojiart/internal/log"
	"emojiart/internal/telemetry"
	"emojiart/internal/version"
)

func usage(w io.Writer) {
	fmt.Fprintln(w, "EmojiArt document engine")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  emojiart version|-v|--version          Show version")
	fmt.Fprintln(w, "  emojiart show [doc]                    Print a document (default: the autosave)")
	fmt.Fprintln(w, "  emojiart edit [doc]                    Edit a document with commands read from stdin")
	fmt.Fprintln(w, "  emojiart palettes [list|add|remove|rename|emojis|remove-emoji|move] ...")
	fmt.Fprintln(w, "  emojiart history [n]                   List the n most recent autosave revisions")
	fmt.Fprintln(w, "  emojiart export <out> [doc] [scale]    Export a document as .svg, .png or .pdf")
}

func main() {
	config.LoadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	l.Debug("start", slog.Int("args", len(os.Args)))

	dataDir, _ := config.DataDir()
	tele := telemetry.New(telemetry.FromConfig(cfg.Telemetry))
	sess := &activeSession{}
	code := func() int {
		defer crash.Recover(dataDir, sess, tele)
		return run(cfg, os.Args[1:], os.Stdin, os.Stdout, sess.set, tele)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	tele.Close(ctx)
	cancel()
	os.Exit(code)
}

// activeSession lets the crash handler flush whichever edit session is open.
type activeSession struct {
	mu sync.Mutex
	f  crash.Flusher
}

func (s *activeSession) set(f crash.Flusher) {
	s.mu.Lock()
	s.f = f
	s.mu.Unlock()
}

func (s *activeSession) Flush() error {
	s.mu.Lock()
	f := s.f
	s.mu.Unlock()
	if f == nil {
		return nil
	}
	return f.Flush()
}

func run(cfg config.AppConfig, args []string, in io.Reader, out io.Writer, onSession func(crash.Flusher), tele *telemetry.Client) int {
	if len(args) == 0 {
		usage(out)
		return 0
	}
	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, "EmojiArt", version.String())
		return 0
	case "help", "-h", "--help":
		usage(out)
		return 0
	}

	a, err := openApp(cfg, tele)
	if err != nil {
		fmt.Fprintln(out, "Error:", err)
		return 1
	}
	defer a.Close()

	switch args[0] {
	case "show":
		return a.show(out, argAt(args, 1))
	case "edit":
		return a.edit(in, out, argAt(args, 1), onSession)
	case "palettes":
		return a.palettes(out, args[1:])
	case "history":
		return a.history(out, args[1:])
	case "export":
		return a.export(out, args[1:])
	}
	fmt.Fprintf(out, "unknown command %q\n", args[0])
	usage(out)
	return 2
}

func argAt(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}
