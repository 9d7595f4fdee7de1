/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted as YAML in the user
// config directory. Environment variables are read-only overrides at runtime.
// Bump ConfigVersion when the structure changes incompatibly.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Document      DocumentConfig  `yaml:"document"`
	Fetch         FetchConfig     `yaml:"fetch"`
	Palettes      PalettesConfig  `yaml:"palettes"`
	State         StateConfig     `yaml:"state"`
	Undo          UndoConfig      `yaml:"undo"`
	Logging       LoggingConfig   `yaml:"logging"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

type DocumentConfig struct {
	AutosavePath string `yaml:"autosave_path"`
	CoalesceMs   int    `yaml:"coalesce_ms"`
}

type FetchConfig struct {
	TimeoutMs     int   `yaml:"timeout_ms"` // 0 disables the timeout
	MaxBytes      int64 `yaml:"max_bytes"`
	Cache         bool  `yaml:"cache"`
	CacheMaxBytes int64 `yaml:"cache_max_bytes"`
}

type PalettesConfig struct {
	StoreName string `yaml:"store_name"`
}

type StateConfig struct {
	DBPath        string `yaml:"db_path"`
	KeepRevisions int    `yaml:"keep_revisions"`
}

type UndoConfig struct {
	MaxDepth int `yaml:"max_depth"`
	MaxBytes int `yaml:"max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// TelemetryConfig controls the opt-in usage events and crash uploads.
// Nothing is sent unless OptIn is set and the matching URL is configured.
type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Defaults returns the application defaults. Paths are resolved relative to DataDir.
func Defaults() AppConfig {
	dir, _ := DataDir()
	return AppConfig{
		ConfigVersion: 1,
		Document:      DocumentConfig{AutosavePath: filepath.Join(dir, "Autosave.emojiart"), CoalesceMs: 5000},
		Fetch:         FetchConfig{TimeoutMs: 0, MaxBytes: 32 << 20, Cache: true, CacheMaxBytes: 64 << 20},
		Palettes:      PalettesConfig{StoreName: "Default"},
		State:         StateConfig{DBPath: filepath.Join(dir, "state.sqlite"), KeepRevisions: 50},
		Undo:          UndoConfig{MaxDepth: 200, MaxBytes: 32 << 20},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Telemetry:     TelemetryConfig{TimeoutMs: 1500},
	}
}

// Env var names used as overrides. The logging ones are shared with internal/log,
// and EnvConfigDir relocates both the config file and the data directory.
const (
	EnvAutosavePath   = "EMOJIART_AUTOSAVE_PATH"
	EnvCoalesceMs     = "EMOJIART_COALESCE_MS"
	EnvFetchTimeoutMs = "EMOJIART_FETCH_TIMEOUT_MS"
	EnvFetchCache     = "EMOJIART_FETCH_CACHE"
	EnvPaletteStore   = "EMOJIART_PALETTE_STORE"
	EnvStateDB        = "EMOJIART_STATE_DB"
	EnvLogLevel       = "EMOJIART_LOG_LEVEL"
	EnvLogFormat      = "EMOJIART_LOG_FORMAT"
	EnvLogSource      = "EMOJIART_LOG_SOURCE"
	EnvLogFile        = "EMOJIART_LOG_FILE"
	EnvTelemetryOptIn = "EMOJIART_TELEMETRY_OPT_IN"
	EnvTelemetryURL   = "EMOJIART_TELEMETRY_URL"
	EnvCrashUploadURL = "EMOJIART_CRASH_UPLOAD_URL"
	EnvConfigDir      = "EMOJIART_HOME"
)

// DataDir returns the per-user directory holding config, autosave and state.
func DataDir() (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvConfigDir)); v != "" {
		return v, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "EmojiArt")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "EmojiArt")
	default:
		base = filepath.Join(os.Getenv("HOME"), ".config", "emojiart")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (default ".env") into
// the process environment without overriding variables that are already set.
// Missing files are ignored.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

// Load reads the user config file if present, applies defaults and merges environment overrides.
// A malformed file is ignored in favor of defaults.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		// unmarshal over defaults so keys missing from the file keep their default
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if s := strings.TrimSpace(src.Document.AutosavePath); s != "" {
		dst.Document.AutosavePath = s
	}
	if src.Document.CoalesceMs > 0 {
		dst.Document.CoalesceMs = src.Document.CoalesceMs
	}
	if src.Fetch.TimeoutMs > 0 {
		dst.Fetch.TimeoutMs = src.Fetch.TimeoutMs
	}
	if src.Fetch.MaxBytes > 0 {
		dst.Fetch.MaxBytes = src.Fetch.MaxBytes
	}
	dst.Fetch.Cache = src.Fetch.Cache
	if src.Fetch.CacheMaxBytes > 0 {
		dst.Fetch.CacheMaxBytes = src.Fetch.CacheMaxBytes
	}
	if s := strings.TrimSpace(src.Palettes.StoreName); s != "" {
		dst.Palettes.StoreName = s
	}
	if s := strings.TrimSpace(src.State.DBPath); s != "" {
		dst.State.DBPath = s
	}
	if src.State.KeepRevisions > 0 {
		dst.State.KeepRevisions = src.State.KeepRevisions
	}
	if src.Undo.MaxDepth > 0 {
		dst.Undo.MaxDepth = src.Undo.MaxDepth
	}
	if src.Undo.MaxBytes > 0 {
		dst.Undo.MaxBytes = src.Undo.MaxBytes
	}
	if s := strings.TrimSpace(src.Logging.Level); s != "" {
		dst.Logging.Level = strings.ToLower(s)
	}
	if s := strings.TrimSpace(src.Logging.Format); s != "" {
		dst.Logging.Format = strings.ToLower(s)
	}
	dst.Logging.Source = src.Logging.Source
	if s := strings.TrimSpace(src.Logging.File); s != "" {
		dst.Logging.File = s
	}
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	dst.Telemetry.EventsURL = strings.TrimSpace(src.Telemetry.EventsURL)
	dst.Telemetry.CrashURL = strings.TrimSpace(src.Telemetry.CrashURL)
	if src.Telemetry.TimeoutMs > 0 {
		dst.Telemetry.TimeoutMs = src.Telemetry.TimeoutMs
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvAutosavePath)); v != "" {
		cfg.Document.AutosavePath = v
	}
	if n, ok := envInt(EnvCoalesceMs); ok && n > 0 {
		cfg.Document.CoalesceMs = n
	}
	if n, ok := envInt(EnvFetchTimeoutMs); ok && n >= 0 {
		cfg.Fetch.TimeoutMs = n
	}
	if v := strings.TrimSpace(os.Getenv(EnvFetchCache)); v != "" {
		cfg.Fetch.Cache = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPaletteStore)); v != "" {
		cfg.Palettes.StoreName = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvStateDB)); v != "" {
		cfg.State.DBPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.Telemetry.EventsURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCrashUploadURL)); v != "" {
		cfg.Telemetry.CrashURL = v
	}
}

func envInt(key string) (int, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	return n, err == nil
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

var envKeys = map[string]string{
	"document.autosave_path": EnvAutosavePath,
	"document.coalesce_ms":   EnvCoalesceMs,
	"fetch.timeout_ms":       EnvFetchTimeoutMs,
	"fetch.cache":            EnvFetchCache,
	"palettes.store_name":    EnvPaletteStore,
	"state.db_path":          EnvStateDB,
	"logging.level":          EnvLogLevel,
	"logging.format":         EnvLogFormat,
	"logging.source":         EnvLogSource,
	"logging.file":           EnvLogFile,
	"telemetry.opt_in":       EnvTelemetryOptIn,
	"telemetry.events_url":   EnvTelemetryURL,
	"telemetry.crash_url":    EnvCrashUploadURL,
}

// EnvOverrideFor returns the env var name if the dotted key is overridden by the environment.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// CoalesceInterval is the autosave quiet interval.
func (d DocumentConfig) CoalesceInterval() time.Duration {
	if d.CoalesceMs <= 0 {
		return time.Duration(Defaults().Document.CoalesceMs) * time.Millisecond
	}
	return time.Duration(d.CoalesceMs) * time.Millisecond
}

// Timeout is the per-fetch timeout, zero meaning none.
func (f FetchConfig) Timeout() time.Duration {
	if f.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(f.TimeoutMs) * time.Millisecond
}
