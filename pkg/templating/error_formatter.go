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
	"strings"
)

// FormatDiagnostic formats a diagnostic into a human-readable multi-line
// string with a header, the location, the problem, the offending template line
// and actionable hints.
func FormatDiagnostic(d *Diagnostic) string {
	if d == nil {
		return ""
	}

	var builder strings.Builder

	// Header
	builder.WriteString(fmt.Sprintf("Template %s: %s\n", d.Phase, snippet(d.ID, 60)))
	builder.WriteString(strings.Repeat("─", 60))
	builder.WriteString("\n")

	if d.Line > 0 {
		builder.WriteString(fmt.Sprintf("Location: Line %d\n", d.Line))
	}

	problem := d.Message
	if len(problem) > 100 {
		problem = problem[:97] + "..."
	}
	builder.WriteString(fmt.Sprintf("Problem:  %s: %s\n", d.Name, problem))

	if context := extractTemplateContext(d.Source, d.Line); context != "" {
		builder.WriteString("\n")
		builder.WriteString("Template Context:\n")
		builder.WriteString(context)
	}

	if hints := generateHints(d); len(hints) > 0 {
		builder.WriteString("\n")
		builder.WriteString("Hint: ")
		builder.WriteString(strings.Join(hints, "\n      "))
		builder.WriteString("\n")
	}

	return builder.String()
}

// FormatDiagnosticShort returns a single-line version of the diagnostic for
// logging contexts where multi-line output isn't appropriate.
func FormatDiagnosticShort(d *Diagnostic) string {
	if d == nil {
		return ""
	}

	parts := []string{fmt.Sprintf("Template: %s", snippet(d.ID, 60))}
	if d.Line > 0 {
		parts = append(parts, fmt.Sprintf("Line %d", d.Line))
	}

	problem := d.Name + ": " + d.Message
	if len(problem) > 60 {
		problem = problem[:57] + "..."
	}
	parts = append(parts, problem)

	return strings.Join(parts, " | ")
}

// generateHints generates actionable hints based on common failure patterns.
func generateHints(d *Diagnostic) []string {
	var hints []string

	switch {
	case d.Name == "SandboxError":
		hints = append(hints,
			"'this' and '$methods' cannot be used inside templates.",
			"Pass values through the data context or register a method instead.")
	case d.Name == "NotFound":
		hints = append(hints,
			"Define the template before rendering it,",
			"or make it available to the engine's loader.")
	case d.Phase == PhaseSyntax:
		hints = append(hints,
			"Check that every <% %> fragment is complete and that braces",
			"opened in one fragment are closed in a later one.")
	case strings.Contains(d.Message, "is not a function"):
		hints = append(hints,
			"The called name is neither a registered method nor a function in the data.",
			"Register methods before defining the templates that use them.")
	case strings.Contains(d.Message, "Cannot read property"):
		hints = append(hints,
			"A value before '.' is undefined or null.",
			"Verify that the field exists in the data passed to the template.")
	case strings.Contains(d.Message, "is not defined"):
		hints = append(hints,
			"The variable is not declared inside the template.",
			"Declare it with var or pass it in the data context.")
	}

	if len(hints) == 0 {
		hints = append(hints,
			"Check your template syntax and the data passed to the template.")
	}

	return hints
}

// extractTemplateContext shows the template line of the failure with its
// neighbours, marking the failing line.
func extractTemplateContext(templateContent string, line int) string {
	if templateContent == "" || line < 1 {
		return ""
	}
	lines := strings.Split(templateContent, "\n")
	if line > len(lines) {
		return ""
	}

	first, last := max(line-1, 1), min(line+1, len(lines))
	width := len(fmt.Sprintf("%d", last))

	var builder strings.Builder
	for n := first; n <= last; n++ {
		marker := " "
		if n == line {
			marker = ">"
		}
		builder.WriteString(fmt.Sprintf("%s %*d | %s\n", marker, width, n, strings.TrimSuffix(lines[n-1], "\r")))
	}

	return builder.String()
}
