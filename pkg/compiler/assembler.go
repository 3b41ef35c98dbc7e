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

import "strings"

// Program is the generated code of one template: the body of a function
// taking the data context and the method registry.
type Program struct {
	// Source is the template the program was generated from.
	Source string

	// Code is the function body.
	Code string

	// Bindings are the declared free variables in first-reference order.
	Bindings []Binding

	// Debug reports whether line tracking is compiled in.
	Debug bool
}

// Function returns the program as a complete function declaration.
func (p *Program) Function() string {
	return functionSource(p.Code)
}

// Variables returns the names of the declared free variables.
func (p *Program) Variables() []string {
	names := make([]string, len(p.Bindings))
	for i, b := range p.Bindings {
		names[i] = b.Name
	}
	return names
}

// assemble generates the program for source. Declarations come first, then
// the output accumulator, the translated segments in source order and the
// final return. In debug mode the segments are wrapped so a fault leaves with
// the current line attached.
func assemble(source string, opts Options, methods *Registry, debug bool) (*Program, error) {
	t := &translator{
		statement: opts.Statement,
		debug:     debug,
		lines:     newLineTracker(),
		binder:    newBinder(methods, outVar, lineVar, DataParam),
	}

	var body strings.Builder
	for _, seg := range Split(source, opts.OpenTag, opts.CloseTag) {
		switch seg.Kind {
		case Literal:
			body.WriteString(t.literal(seg.Text))
		case Logic:
			code, err := t.logic(seg.Text)
			if err != nil {
				return nil, err
			}
			body.WriteString(code)
		}
	}

	code := body.String()
	if debug {
		code = "try{" + code + "}catch(e){e.line=" + lineVar + ";throw e}"
	}

	var decl strings.Builder
	decl.WriteString("var ")
	if debug {
		decl.WriteString(lineVar + "=0,")
	}
	for _, b := range t.binder.bindings {
		decl.WriteString(b.String())
		decl.WriteString(",")
	}
	decl.WriteString(outVar + "='';")

	return &Program{
		Source:   source,
		Code:     decl.String() + code + "return " + outVar + ";",
		Bindings: t.binder.bindings,
		Debug:    debug,
	}, nil
}
