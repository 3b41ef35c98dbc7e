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
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
)

// Sentinel is returned in place of output whenever a template fails.
const Sentinel = "{Template Error}"

// Reporter receives every diagnostic and returns the string handed to the
// caller instead of output.
type Reporter interface {
	Report(d *Diagnostic) string
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(d *Diagnostic) string

// Report implements Reporter.
func (f ReporterFunc) Report(d *Diagnostic) string {
	return f(d)
}

// LogReporter logs diagnostics through slog and returns Sentinel.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a LogReporter. A nil logger uses slog.Default().
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// Report implements Reporter.
func (r *LogReporter) Report(d *Diagnostic) string {
	attrs := []any{
		"template", snippet(d.ID, 60),
		"phase", d.Phase.String(),
		"name", d.Name,
		"error", d.Message,
	}
	if d.Line > 0 {
		attrs = append(attrs, "line", d.Line, "source", d.SourceLine)
	}
	if d.Err != nil && d.Err.Error() != d.Message {
		attrs = append(attrs, "cause", d.Err.Error())
	}
	r.logger.Error("template failed", attrs...)

	if d.Code != "" {
		r.logger.Debug("generated code", "template", snippet(d.ID, 60), "code", d.Code)
	}

	return Sentinel
}

// WriterReporter writes every diagnostic as a report block to W and returns
// Sentinel. It is safe for concurrent use.
type WriterReporter struct {
	mu sync.Mutex
	W  io.Writer
}

// NewWriterReporter creates a WriterReporter writing to w.
func NewWriterReporter(w io.Writer) *WriterReporter {
	return &WriterReporter{W: w}
}

// Report implements Reporter.
func (r *WriterReporter) Report(d *Diagnostic) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintln(r.W, FormatReport(d))
	return Sentinel
}

// FormatReport renders d as the classic report block:
//
//	[template]:
//	<id>
//
//	[name]:
//	<phase>
//
//	[message]:
//	<message>
//
// followed by [line] and [source] when the line is known and [temp] when
// generated code is attached.
func FormatReport(d *Diagnostic) string {
	var b strings.Builder

	b.WriteString("[template]:\n" + d.ID)
	b.WriteString("\n\n[name]:\n" + d.Phase.String())

	if d.Message != "" {
		b.WriteString("\n\n[message]:\n" + d.Message)
	}

	if d.Line > 0 {
		b.WriteString("\n\n[line]:\n" + strconv.Itoa(d.Line))
		b.WriteString("\n\n[source]:\n" + d.SourceLine)
	}

	if d.Code != "" {
		b.WriteString("\n\n[temp]:\n" + d.Code)
	}

	return b.String()
}
