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

import "fmt"

// CompilationError represents a template compilation failure.
type CompilationError struct {
	// TemplateName is the id of the template that failed to compile
	TemplateName string

	// TemplateSnippet contains the first 200 characters of the template
	TemplateSnippet string

	// Cause is the compiler error (*compiler.SandboxError or *compiler.SyntaxError)
	Cause error
}

// Error implements the error interface.
func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile template '%s': %v", e.TemplateName, e.Cause)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *CompilationError) Unwrap() error {
	return e.Cause
}

// TemplateNotFoundError represents a request for a template that is neither
// cached nor available from the loader.
type TemplateNotFoundError struct {
	// TemplateName is the id of the requested template
	TemplateName string

	// AvailableTemplates lists the template ids that are known, when the
	// source of the error can tell
	AvailableTemplates []string
}

// Error implements the error interface.
func (e *TemplateNotFoundError) Error() string {
	return fmt.Sprintf("template '%s' not found", e.TemplateName)
}

// IncludeDepthError is raised when templates include each other deeper than
// MaxIncludeDepth, which usually means a template includes itself.
type IncludeDepthError struct {
	// TemplateName is the id of the include that exceeded the limit
	TemplateName string
}

// Error implements the error interface.
func (e *IncludeDepthError) Error() string {
	return fmt.Sprintf("include of '%s' exceeds the maximum depth of %d", e.TemplateName, MaxIncludeDepth)
}

// NewCompilationError creates a CompilationError for a template compilation failure.
func NewCompilationError(templateName, templateContent string, cause error) *CompilationError {
	return &CompilationError{
		TemplateName:    templateName,
		TemplateSnippet: snippet(templateContent, 200),
		Cause:           cause,
	}
}

// NewTemplateNotFoundError creates a TemplateNotFoundError with the list of available templates.
func NewTemplateNotFoundError(templateName string, availableTemplates []string) *TemplateNotFoundError {
	return &TemplateNotFoundError{
		TemplateName:       templateName,
		AvailableTemplates: availableTemplates,
	}
}

func snippet(s string, n int) string {
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
