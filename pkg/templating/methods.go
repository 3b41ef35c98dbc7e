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
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"path/filepath"

	"arttemplate/pkg/script"
)

// MethodFunc is a Go function callable from templates once registered with
// Engine.SetMethod. Arguments arrive as plain Go values: strings, float64
// numbers, bools, nil, []interface{} and map[string]interface{}.
//
// Example:
//
//	engine.SetMethod("shout", templating.MethodFunc(func(args ...interface{}) (interface{}, error) {
//	    if len(args) != 1 {
//	        return nil, fmt.Errorf("shout requires exactly one argument")
//	    }
//	    return strings.ToUpper(fmt.Sprint(args[0])) + "!", nil
//	}))
type MethodFunc func(args ...interface{}) (interface{}, error)

// StandardMethods returns the optional helper methods enabled with
// WithStandardMethods.
func StandardMethods() map[string]MethodFunc {
	return map[string]MethodFunc{
		"escapeHTML": EscapeHTML,
		"globMatch":  GlobMatch,
		"b64decode":  B64Decode,
		"b64encode":  B64Encode,
		"json":       JSON,
	}
}

// EscapeHTML escapes <, >, &, ' and " in the string form of its argument.
//
// Usage in templates:
//
//	<p><%= escapeHTML(comment) %></p>
func EscapeHTML(args ...interface{}) (interface{}, error) {
	if len(args) == 0 || args[0] == nil {
		return "", nil
	}
	return html.EscapeString(script.ToString(args[0])), nil
}

// GlobMatch filters a list of strings by glob pattern.
//
// Usage in templates:
//
//	<% $forEach(globMatch(partials, "sidebar-*"), function(id){ %>
//	  <%= include(id) %>
//	<% }) %>
//
// Parameters:
//   - args[0]: List of strings to filter (non-string items are skipped)
//   - args[1]: Glob pattern (supports * and ? wildcards)
//
// Returns:
//   - Filtered list containing only matching strings
//   - Error if input is not a list, pattern is missing, or pattern is invalid
func GlobMatch(args ...interface{}) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("globMatch: list and pattern arguments required")
	}

	var list []interface{}
	switch v := args[0].(type) {
	case []interface{}:
		list = v
	case []string:
		list = make([]interface{}, len(v))
		for i, s := range v {
			list[i] = s
		}
	default:
		return nil, fmt.Errorf("globMatch: input must be a list, got %T", args[0])
	}

	pattern, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("globMatch: pattern must be a string, got %T", args[1])
	}

	result := []interface{}{}
	for _, item := range list {
		str, ok := item.(string)
		if !ok {
			continue
		}

		matched, err := filepath.Match(pattern, str)
		if err != nil {
			return nil, fmt.Errorf("globMatch: invalid pattern %q: %w", pattern, err)
		}

		if matched {
			result = append(result, str)
		}
	}

	return result, nil
}

// B64Decode decodes a base64-encoded string.
//
// Usage in templates:
//
//	<%= b64decode(token) %>
func B64Decode(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("b64decode: input argument required")
	}
	str, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("b64decode: input must be a string, got %T", args[0])
	}

	decoded, err := base64.StdEncoding.DecodeString(str)
	if err != nil {
		return nil, fmt.Errorf("b64decode: %w", err)
	}

	return string(decoded), nil
}

// B64Encode base64-encodes the string form of its argument.
func B64Encode(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("b64encode: input argument required")
	}
	return base64.StdEncoding.EncodeToString([]byte(script.ToString(args[0]))), nil
}

// JSON serializes its argument.
//
// Usage in templates:
//
//	<script>var state = <%= json(state) %>;</script>
func JSON(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return "undefined", nil
	}
	out, err := json.Marshal(args[0])
	if err != nil {
		return nil, fmt.Errorf("json: %w", err)
	}
	return string(out), nil
}
