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

// Compiler compiles templates with fixed options against a method registry.
// Registered method names are resolved at compile time, so methods should be
// registered before the templates using them are compiled.
type Compiler struct {
	opts    Options
	methods *Registry
}

// New creates a compiler. A nil registry is replaced by NewRegistry().
func New(opts Options, methods *Registry) *Compiler {
	if methods == nil {
		methods = NewRegistry()
	}
	return &Compiler{opts: opts.withDefaults(), methods: methods}
}

// Options returns the compiler options.
func (c *Compiler) Options() Options {
	return c.opts
}

// Methods returns the registry templates are bound against.
func (c *Compiler) Methods() *Registry {
	return c.methods
}

// Assemble generates the code for source without building it. debug is
// ORed with Options.Debug.
func (c *Compiler) Assemble(source string, debug bool) (*Program, error) {
	return assemble(source, c.opts, c.methods, debug || c.opts.Debug)
}

// Compile assembles and builds source.
func (c *Compiler) Compile(source string, debug bool) (*Unit, error) {
	p, err := c.Assemble(source, debug)
	if err != nil {
		return nil, err
	}
	return Build(p)
}
