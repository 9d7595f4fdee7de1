/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigDir, dir)
	for _, k := range []string{EnvAutosavePath, EnvCoalesceMs, EnvFetchTimeoutMs, EnvFetchCache, EnvPaletteStore, EnvStateDB, EnvLogLevel, EnvLogFormat, EnvLogSource, EnvLogFile, EnvTelemetryOptIn, EnvTelemetryURL, EnvCrashUploadURL} {
		t.Setenv(k, "")
	}
	return dir
}

func TestDefaultsWithoutFile(t *testing.T) {
	dir := isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Document.AutosavePath, filepath.Join(dir, "Autosave.emojiart"); got != want {
		t.Fatalf("AutosavePath = %q, want %q", got, want)
	}
	if cfg.Document.CoalesceInterval() != 5*time.Second {
		t.Fatalf("CoalesceInterval = %v, want 5s", cfg.Document.CoalesceInterval())
	}
	if cfg.Fetch.Timeout() != 0 {
		t.Fatalf("fetch timeout should default to none, got %v", cfg.Fetch.Timeout())
	}
	if !cfg.Fetch.Cache || cfg.Palettes.StoreName != "Default" || cfg.State.KeepRevisions != 50 {
		t.Fatalf("unexpected defaults: %#v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Document.CoalesceMs = 750
	cfg.Fetch.Cache = false
	cfg.Palettes.StoreName = "Work"
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Document.CoalesceMs != 750 || got.Fetch.Cache || got.Palettes.StoreName != "Work" {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("palettes:\n  store_name: Mine\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Palettes.StoreName != "Mine" {
		t.Fatalf("StoreName = %q", cfg.Palettes.StoreName)
	}
	if !cfg.Fetch.Cache {
		t.Fatalf("fetch.cache should keep its default when absent from the file")
	}
}

func TestMalformedFileFallsBackToDefaults(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("document: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Document.CoalesceMs != 5000 {
		t.Fatalf("CoalesceMs = %d, want default", cfg.Document.CoalesceMs)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/emojiart.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/emojiart.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(EnvAutosavePath, "/tmp/x.emojiart")
	t.Setenv(EnvCoalesceMs, "250")
	t.Setenv(EnvFetchTimeoutMs, "1500")
	t.Setenv(EnvFetchCache, "off")
	t.Setenv(EnvPaletteStore, "Travel")
	t.Setenv(EnvStateDB, "/tmp/state.sqlite")
	t.Setenv(EnvLogLevel, "ERROR")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Document.AutosavePath != "/tmp/x.emojiart" || cfg.Document.CoalesceMs != 250 {
		t.Fatalf("document overrides not applied: %#v", cfg.Document)
	}
	if cfg.Fetch.Timeout() != 1500*time.Millisecond || cfg.Fetch.Cache {
		t.Fatalf("fetch overrides not applied: %#v", cfg.Fetch)
	}
	if cfg.Palettes.StoreName != "Travel" || cfg.State.DBPath != "/tmp/state.sqlite" || cfg.Logging.Level != "error" {
		t.Fatalf("overrides not applied: %#v", cfg)
	}
}

func TestTelemetryIsOptIn(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telemetry.OptIn || cfg.Telemetry.EventsURL != "" || cfg.Telemetry.TimeoutMs != 1500 {
		t.Fatalf("telemetry defaults: %#v", cfg.Telemetry)
	}
	t.Setenv(EnvTelemetryOptIn, "yes")
	t.Setenv(EnvTelemetryURL, "https://example.com/events")
	t.Setenv(EnvCrashUploadURL, "https://example.com/crash")
	cfg, _ = Load()
	if !cfg.Telemetry.OptIn || cfg.Telemetry.EventsURL != "https://example.com/events" || cfg.Telemetry.CrashURL != "https://example.com/crash" {
		t.Fatalf("telemetry overrides not applied: %#v", cfg.Telemetry)
	}
}

func TestInvalidEnvNumberIgnored(t *testing.T) {
	isolate(t)
	t.Setenv(EnvCoalesceMs, "soon")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Document.CoalesceMs != 5000 {
		t.Fatalf("CoalesceMs = %d, want default", cfg.Document.CoalesceMs)
	}
}

func TestEnvOverrideFor(t *testing.T) {
	isolate(t)
	if _, ok := EnvOverrideFor("palettes.store_name"); ok {
		t.Fatalf("no override expected while env is empty")
	}
	t.Setenv(EnvPaletteStore, "X")
	env, ok := EnvOverrideFor("palettes.store_name")
	if !ok || env != EnvPaletteStore {
		t.Fatalf("EnvOverrideFor = %q,%v", env, ok)
	}
	if _, ok := EnvOverrideFor("nope.key"); ok {
		t.Fatalf("unknown key reported as overridden")
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	p := filepath.Join(dir, ".env")
	if err := os.WriteFile(p, []byte("EMOJIART_PALETTE_STORE=FromFile\nEMOJIART_STATE_DB=/from/file.sqlite\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvPaletteStore, "FromEnv")
	os.Unsetenv(EnvStateDB)
	t.Cleanup(func() { os.Unsetenv(EnvStateDB) })
	LoadDotEnv(p, filepath.Join(dir, "missing.env"))
	if got := os.Getenv(EnvPaletteStore); got != "FromEnv" {
		t.Fatalf("existing env overridden: %q", got)
	}
	if got := os.Getenv(EnvStateDB); got != "/from/file.sqlite" {
		t.Fatalf("dotenv value not loaded: %q", got)
	}
}
