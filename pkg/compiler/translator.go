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
	"errors"
	"strings"
)

const whitespace = " \t\r\n\v\f"

var literalEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\r", `\r`,
	"\n", `\n`,
)

// translator turns segments into script instructions, feeding every logic
// fragment through the extractor and binder.
type translator struct {
	statement StatementFunc
	debug     bool
	lines     *lineTracker
	binder    *binder
}

// literal emits an append of the escaped text.
func (t *translator) literal(text string) string {
	t.lines.skip(text)
	return outVar + "+='" + literalEscaper.Replace(text) + "';\n"
}

// logic emits the fragment as code, or as a value append when it is an
// output marker.
func (t *translator) logic(code string) (string, error) {
	line := t.lines.line
	tracking := t.debug && t.statement == nil

	if t.statement != nil {
		code = t.statement(code)
	}

	if expr, ok := outputExpression(code); ok {
		var after string
		if tracking {
			t.lines.skip(code)
			if !strings.Contains(expr, "//") {
				expr = strings.ReplaceAll(expr, "\n", " ")
			}
			if t.lines.line != line {
				after = t.lines.marker()
			}
		}
		code = outVar + "+=" + valueCall(expr) + ";" + after
	} else if tracking {
		code = t.lines.logic(code)
	}

	if t.debug {
		code = markerFor(line) + code
	}

	names, err := ExtractVariables(code)
	if err != nil {
		var sandboxErr *SandboxError
		if errors.As(err, &sandboxErr) {
			sandboxErr.Line = line
		}
		return "", err
	}
	for _, name := range names {
		t.binder.bind(name)
	}

	return code + "\n", nil
}

// outputExpression reports whether code is an output marker (a leading single
// =) and returns the expression without the marker, leading whitespace and
// trailing semicolons.
func outputExpression(code string) (string, bool) {
	trimmed := strings.TrimLeft(code, whitespace)
	if !strings.HasPrefix(trimmed, "=") || strings.HasPrefix(trimmed, "==") {
		return "", false
	}
	expr := strings.TrimLeft(trimmed[1:], whitespace)
	expr = strings.TrimRight(expr, ";"+whitespace)
	return expr, true
}

// valueCall wraps expr in a $getValue call. An expression carrying a line
// comment gets its closing parenthesis on a line of its own.
func valueCall(expr string) string {
	if strings.Contains(expr, "//") {
		return GetValueMethod + "(" + expr + "\n)"
	}
	return GetValueMethod + "(" + expr + ")"
}
