// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package templating

import (
	"sync"
	"time"
)

// DefaultHistorySize is the number of diagnostics a History keeps when no
// positive size is given.
const DefaultHistorySize = 100

// HistoryEntry is a diagnostic with the time it was reported.
type HistoryEntry struct {
	Time       time.Time
	Diagnostic *Diagnostic
}

// History is a Reporter that remembers the most recent diagnostics in a
// fixed-size ring and forwards each one to the next reporter. When full, new
// diagnostics overwrite the oldest.
//
//	history := templating.NewHistory(100, templating.NewLogReporter(logger))
//	engine := templating.New(templating.WithReporter(history))
//	recent := history.Last(10)
type History struct {
	next Reporter

	mu    sync.RWMutex
	items []HistoryEntry
	head  int // next write position
	count int
}

var _ Reporter = (*History)(nil)

// NewHistory creates a history of size entries in front of next. A nil next
// reports nothing further and returns Sentinel.
func NewHistory(size int, next Reporter) *History {
	if size <= 0 {
		size = DefaultHistorySize
	}
	return &History{
		next:  next,
		items: make([]HistoryEntry, size),
	}
}

// Report implements Reporter.
func (h *History) Report(d *Diagnostic) string {
	h.add(HistoryEntry{Time: time.Now(), Diagnostic: d})
	if h.next == nil {
		return Sentinel
	}
	return h.next.Report(d)
}

func (h *History) add(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = e
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Last returns up to n of the most recent entries, oldest first. n <= 0
// returns every entry.
func (h *History) Last(n int) []HistoryEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if n <= 0 || n > h.count {
		n = h.count
	}

	out := make([]HistoryEntry, n)
	start := (h.head - n + len(h.items)) % len(h.items)
	for i := range out {
		out[i] = h.items[(start+i)%len(h.items)]
	}
	return out
}

// Len returns the number of entries held.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Cap returns the maximum number of entries.
func (h *History) Cap() int {
	return len(h.items)
}

// Clear drops every entry.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clear(h.items)
	h.head = 0
	h.count = 0
}
