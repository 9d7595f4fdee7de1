/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package document

import (
	"fmt"
	"time"
)

// FetchState is the resolution state of a remote background.
type FetchState int

const (
	Idle FetchState = iota
	Fetching
	Failed
)

func (s FetchState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("FetchState(%d)", int(s))
	}
}

// FetchStatus tracks the current remote background. URL is set only when State is Failed.
type FetchStatus struct {
	State FetchState
	URL   string
}

func (s FetchStatus) String() string {
	if s.State == Failed {
		return fmt.Sprintf("failed(%s)", s.URL)
	}
	return s.State.String()
}

// Timer is a scheduled callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Clock schedules the autosave callback. Tests inject a manual clock.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
