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

package compiler

import (
	"strconv"
	"strings"
)

// lineTracker follows the template line while segments are translated. The
// counter starts at 1 and never decreases.
type lineTracker struct {
	line int
}

func newLineTracker() *lineTracker {
	return &lineTracker{line: 1}
}

// skip advances past the newlines of text without rewriting it.
func (t *lineTracker) skip(text string) {
	t.line += strings.Count(text, "\n")
}

// logic advances past the newlines of a logic fragment, following each one
// with a marker assignment so generated code keeps the line in step at run
// time.
func (t *lineTracker) logic(code string) string {
	if !strings.Contains(code, "\n") {
		return code
	}
	var b strings.Builder
	for i, part := range strings.Split(code, "\n") {
		if i > 0 {
			t.line++
			b.WriteString("\n")
			b.WriteString(t.marker())
		}
		b.WriteString(part)
	}
	return b.String()
}

func (t *lineTracker) marker() string {
	return markerFor(t.line)
}

func markerFor(line int) string {
	return lineVar + "=" + strconv.Itoa(line) + ";"
}
