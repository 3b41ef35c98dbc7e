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

const (
	// DefaultOpenTag starts a logic fragment.
	DefaultOpenTag = "<%"

	// DefaultCloseTag ends a logic fragment.
	DefaultCloseTag = "%>"
)

// StatementFunc rewrites the raw text of a logic fragment before it is
// translated. It replaces the line tracking rewrite of debug mode.
type StatementFunc func(code string) string

// Options configure a compilation.
type Options struct {
	// OpenTag and CloseTag delimit logic fragments. Both are literal
	// substrings, not patterns.
	OpenTag  string
	CloseTag string

	// Statement is an optional custom rewriter for logic fragments.
	Statement StatementFunc

	// Debug forces debug mode for every compilation.
	Debug bool
}

// DefaultOptions returns the process-wide defaults: <% and %>, no statement
// rewriter, debug off.
func DefaultOptions() Options {
	return Options{
		OpenTag:  DefaultOpenTag,
		CloseTag: DefaultCloseTag,
	}
}

// withDefaults fills empty tags.
func (o Options) withDefaults() Options {
	if o.OpenTag == "" {
		o.OpenTag = DefaultOpenTag
	}
	if o.CloseTag == "" {
		o.CloseTag = DefaultCloseTag
	}
	return o
}
