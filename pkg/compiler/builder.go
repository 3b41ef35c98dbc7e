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
	"arttemplate/pkg/script"
)

// Unit is a compiled template.
type Unit struct {
	program *Program
	fn      *script.Function
}

// Build parses the program into a callable unit. Malformed code yields a
// SyntaxError carrying the generated function.
func Build(p *Program) (*Unit, error) {
	fn, err := script.Compile([]string{DataParam, MethodsParam}, p.Code)
	if err != nil {
		return nil, NewSyntaxError(p.Code, err)
	}
	return &Unit{program: p, fn: fn}, nil
}

// Program returns the generated code the unit was built from.
func (u *Unit) Program() *Program {
	return u.program
}

// Debug reports whether the unit tracks template lines.
func (u *Unit) Debug() bool {
	return u.program.Debug
}

// Call runs the template against data with methods bound to $methods.
// methods is usually a *Registry; a nil value stands for NewRegistry(). A nil
// data context behaves like an empty object. Runtime faults, including panics
// of native methods, are returned as *script.Fault; in debug mode their Line
// is the template line.
func (u *Unit) Call(data any, methods script.PropertyGetter) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = "", script.PanicFault(r)
		}
	}()

	if script.Normalize(data) == nil {
		data = script.NewObject()
	}
	if methods == nil {
		methods = NewRegistry()
	}
	v, err := u.fn.Call([]script.Value{data, methods})
	if err != nil {
		return "", err
	}
	return script.ToString(v), nil
}

func functionSource(body string) string {
	return "function anonymous(" + DataParam + "," + MethodsParam + ") {" + body + "}"
}
