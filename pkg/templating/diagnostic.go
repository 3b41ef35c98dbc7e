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
	"errors"
	"fmt"
	"strings"

	"arttemplate/pkg/compiler"
	"arttemplate/pkg/script"
)

// NotCachedMessage is the message of a diagnostic for an unknown template id.
const NotCachedMessage = "Not Cache"

// Diagnostic describes a failed compilation or render.
type Diagnostic struct {
	// Phase is when the failure happened.
	Phase Phase

	// ID is the template id. Render failures of anonymous templates use the
	// template source instead.
	ID string

	// Name classifies the failure: the fault name for render failures
	// ("TypeError", "ReferenceError", ...), "SandboxError", "SyntaxError",
	// "NotFound" or "LoadError".
	Name string

	// Message is the failure message.
	Message string

	// Line is the template line of the failure, or 0 when unknown.
	Line int

	// SourceLine is the text of the template at Line.
	SourceLine string

	// Source is the template source.
	Source string

	// Code is the generated function when it failed to build.
	Code string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (d *Diagnostic) Error() string {
	msg := fmt.Sprintf("%s in template '%s': %s", d.Phase, snippet(d.ID, 60), d.Message)
	if d.Line > 0 {
		msg += fmt.Sprintf(" (line %d)", d.Line)
	}
	return msg
}

// Unwrap returns the underlying error.
func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// NewSyntaxDiagnostic describes a compile failure of template id.
func NewSyntaxDiagnostic(id, source string, err error) *Diagnostic {
	d := &Diagnostic{
		Phase:   PhaseSyntax,
		ID:      id,
		Name:    "SyntaxError",
		Message: err.Error(),
		Source:  source,
		Err:     err,
	}

	var sandboxErr *compiler.SandboxError
	var syntaxErr *compiler.SyntaxError
	switch {
	case errors.As(err, &sandboxErr):
		d.Name = "SandboxError"
		d.setLine(sandboxErr.Line)
	case errors.As(err, &syntaxErr):
		d.Code = syntaxErr.Code
	}

	return d
}

// NewRenderDiagnostic describes a render failure of template id. An empty id
// falls back to the source.
func NewRenderDiagnostic(id, source string, err error) *Diagnostic {
	if id == "" {
		id = source
	}
	d := &Diagnostic{
		Phase:   PhaseRender,
		ID:      id,
		Name:    "Error",
		Message: err.Error(),
		Source:  source,
		Err:     err,
	}

	var fault *script.Fault
	if errors.As(err, &fault) {
		d.Name = fault.Name()
		d.Message = fault.Message()
		d.setLine(fault.Line())
	}

	return d
}

// NewNotFoundDiagnostic describes a render of a template id that could not be
// resolved. An unknown id yields the NotCachedMessage; any other loader
// failure keeps its own message under the name "LoadError".
func NewNotFoundDiagnostic(id string, err error) *Diagnostic {
	if err == nil {
		err = NewTemplateNotFoundError(id, nil)
	}
	d := &Diagnostic{
		Phase:   PhaseRender,
		ID:      id,
		Name:    "NotFound",
		Message: NotCachedMessage,
		Err:     err,
	}

	var notFound *TemplateNotFoundError
	if !errors.As(err, &notFound) {
		d.Name = "LoadError"
		d.Message = err.Error()
	}
	return d
}

func (d *Diagnostic) setLine(line int) {
	if line <= 0 {
		return
	}
	d.Line = line
	lines := strings.Split(d.Source, "\n")
	if line <= len(lines) {
		d.SourceLine = strings.TrimSuffix(lines[line-1], "\r")
	}
}
