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
	// DataParam names the data context parameter of generated code.
	DataParam = "$data"

	// MethodsParam names the method registry parameter of generated code.
	MethodsParam = "$methods"

	// IncludeName is the builtin helper rendering another template inline.
	IncludeName = "include"

	outVar  = "$out"
	lineVar = "$line"
)

// includeHelper renders template id with data, defaulting to the current data
// context.
const includeHelper = "function(id,data){" +
	"if(data===undefined){data=" + DataParam + "}" +
	"return " + MethodsParam + "." + RenderMethod + "(id,data)" +
	"}"

// Binding declares one free variable of a template.
type Binding struct {
	Name string
	Expr string
}

// String renders the binding as it appears in a var declaration.
func (b Binding) String() string {
	return b.Name + "=" + b.Expr
}

// binder resolves free variables: the include helper first, then registered
// methods, then fields of the data context. Each name is bound once.
type binder struct {
	methods  *Registry
	declared map[string]bool
	bindings []Binding
}

func newBinder(methods *Registry, reserved ...string) *binder {
	b := &binder{methods: methods, declared: map[string]bool{}}
	for _, name := range reserved {
		b.declared[name] = true
	}
	return b
}

func (b *binder) bind(name string) {
	if b.declared[name] {
		return
	}
	b.declared[name] = true

	var expr string
	switch {
	case name == IncludeName:
		expr = includeHelper
	case b.methods != nil && b.methods.Has(name):
		expr = MethodsParam + "." + name
	default:
		expr = DataParam + "." + name
	}
	b.bindings = append(b.bindings, Binding{Name: name, Expr: expr})
}
