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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatDiagnostic(t *testing.T) {
	tests := []struct {
		name            string
		diagnostic      *Diagnostic
		wantContains    []string
		wantNotContains []string
	}{
		{
			name: "render fault with location",
			diagnostic: &Diagnostic{
				Phase:   PhaseRender,
				ID:      "page.html",
				Name:    "TypeError",
				Message: "Cannot read property 'name' of undefined",
				Line:    2,
				Source:  "<ul>\n<li><%= user.name %></li>\n</ul>",
			},
			wantContains: []string{
				"Template Render Error: page.html",
				"Location: Line 2",
				"Problem:  TypeError: Cannot read property 'name' of undefined",
				"> 2 | <li><%= user.name %></li>",
				"  1 | <ul>",
				"  3 | </ul>",
				"Hint:",
				"Verify that the field exists",
			},
		},
		{
			name: "sandbox violation",
			diagnostic: &Diagnostic{
				Phase:   PhaseSyntax,
				ID:      "self",
				Name:    "SandboxError",
				Message: `Prohibit the use of the "this"`,
				Line:    1,
				Source:  "<%= this %>",
			},
			wantContains: []string{
				"Template Syntax Error: self",
				"'this' and '$methods' cannot be used",
			},
		},
		{
			name: "not found has no location",
			diagnostic: &Diagnostic{
				Phase:   PhaseRender,
				ID:      "missing",
				Name:    "NotFound",
				Message: NotCachedMessage,
			},
			wantContains: []string{
				"Problem:  NotFound: Not Cache",
				"make it available to the engine's loader",
			},
			wantNotContains: []string{
				"Location:",
				"Template Context:",
			},
		},
		{
			name: "unknown failure gets generic hint",
			diagnostic: &Diagnostic{
				Phase:   PhaseRender,
				ID:      "x",
				Name:    "Error",
				Message: "boom",
			},
			wantContains: []string{
				"Check your template syntax and the data passed to the template.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatDiagnostic(tt.diagnostic)

			for _, want := range tt.wantContains {
				assert.Contains(t, result, want)
			}
			for _, notWant := range tt.wantNotContains {
				assert.NotContains(t, result, notWant)
			}
		})
	}

	assert.Empty(t, FormatDiagnostic(nil))
}

func TestGenerateHints(t *testing.T) {
	tests := []struct {
		name     string
		message  string
		wantHint string
	}{
		{"not a function", "upper is not a function", "neither a registered method"},
		{"undeclared", "x is not defined", "Declare it with var"},
		{"property of undefined", "Cannot read property 'a' of null", "A value before '.'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hints := generateHints(&Diagnostic{Phase: PhaseRender, Name: "TypeError", Message: tt.message})
			assert.Contains(t, strings.Join(hints, " "), tt.wantHint)
		})
	}

	hints := generateHints(&Diagnostic{Phase: PhaseSyntax, Name: "SyntaxError", Message: "unexpected token"})
	assert.Contains(t, strings.Join(hints, " "), "every <% %> fragment is complete")
}

func TestExtractTemplateContext(t *testing.T) {
	content := "line 1\nline 2\nline 3\nline 4"

	tests := []struct {
		name string
		line int
		want string
	}{
		{"first line", 1, "> 1 | line 1\n  2 | line 2\n"},
		{"middle line", 3, "  2 | line 2\n> 3 | line 3\n  4 | line 4\n"},
		{"last line", 4, "  3 | line 3\n> 4 | line 4\n"},
		{"out of range", 9, ""},
		{"unknown line", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractTemplateContext(content, tt.line))
		})
	}

	assert.Equal(t, "   9 | i\n> 10 | j\n", extractTemplateContext("a\nb\nc\nd\ne\nf\ng\nh\ni\nj", 10))
}

func TestFormatDiagnosticShort(t *testing.T) {
	d := &Diagnostic{
		Phase:   PhaseRender,
		ID:      "page",
		Name:    "ReferenceError",
		Message: "x is not defined",
		Line:    3,
	}

	assert.Equal(t, "Template: page | Line 3 | ReferenceError: x is not defined", FormatDiagnosticShort(d))

	d.Message = strings.Repeat("m", 100)
	result := FormatDiagnosticShort(d)
	assert.True(t, strings.HasSuffix(result, "..."))
	assert.Empty(t, FormatDiagnosticShort(nil))
}
