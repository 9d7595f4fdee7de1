/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage implements document persistence and the local state database.
// Files are written transactionally (temp file + rename) with timestamped backups of the previous content,
// and reads fall back to the newest backup when the primary file is missing.
// The per-user SQLite state database holds the key-value store used for palettes, the remote image cache
// and the autosave revision history. Everything in it except the kv table is disposable.
package storage
