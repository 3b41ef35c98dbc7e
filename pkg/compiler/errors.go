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

import "fmt"

// SandboxError reports a logic fragment referencing a forbidden identifier.
// It is never retried.
type SandboxError struct {
	// Name is the forbidden identifier.
	Name string

	// Line is the template line of the offending fragment.
	Line int
}

// Error implements the error interface.
func (e *SandboxError) Error() string {
	return fmt.Sprintf("Prohibit the use of the %q", e.Name)
}

// SyntaxError reports assembled code that the script parser rejected. Code
// holds the generated function for inspection.
type SyntaxError struct {
	// Code is the generated function source.
	Code string

	// Cause is the parser error.
	Cause error
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return e.Cause.Error()
}

// Unwrap returns the parser error.
func (e *SyntaxError) Unwrap() error {
	return e.Cause
}

// NewSandboxError creates a SandboxError for name.
func NewSandboxError(name string, line int) *SandboxError {
	return &SandboxError{Name: name, Line: line}
}

// NewSyntaxError creates a SyntaxError for the given function body.
func NewSyntaxError(body string, cause error) *SyntaxError {
	return &SyntaxError{
		Code:  functionSource(body),
		Cause: cause,
	}
}
