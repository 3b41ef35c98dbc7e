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
	"regexp"

	"arttemplate/pkg/script"
)

var (
	// comments, quoted strings and member access suffixes
	ignoredPattern = regexp.MustCompile(`(?s)/\*.*?\*/|//[^\n]*|'[^']*'|"[^"]*"|\.[$\w]+`)

	wordSeparator = regexp.MustCompile(`[^$\w]+`)
)

// sandboxed names give a fragment access to the calling context or to the
// method registry itself.
var sandboxed = map[string]bool{
	"this":       true,
	MethodsParam: true,
}

// ExtractVariables returns the free variable names referenced by code, in
// first-reference order and without duplicates. Comments, string literals and
// member access suffixes are ignored, so foo.bar yields only foo. Reserved
// words and tokens starting with a digit are skipped. A sandboxed name fails
// the extraction with a SandboxError.
func ExtractVariables(code string) ([]string, error) {
	code = ignoredPattern.ReplaceAllString(code, "")

	seen := map[string]bool{}
	var names []string

	for _, name := range wordSeparator.Split(code, -1) {
		if sandboxed[name] {
			return nil, NewSandboxError(name, 0)
		}
		if name == "" || script.IsReserved(name) || isDigit(name[0]) || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	return names, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
