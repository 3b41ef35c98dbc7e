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

// Package compiler turns template source mixing literal text with
// <% ... %> logic fragments into an executable unit.
//
// Compilation happens in stages. Split cuts the source into literal and logic
// segments. Each segment is translated into an instruction of the script
// language: literals become escaped appends to the output accumulator, logic
// passes through unchanged except for output markers (<%= expr %>), which
// become value appends. Free variables referenced by logic are extracted and
// bound, in priority order, to the include helper, a registered method or a
// field of the data context. In debug mode line markers are woven into the
// code so a runtime fault can be traced back to its template line.
//
// The assembled Program is parsed by Build into a Unit that is called with the
// data context and the method Registry:
//
//	c := compiler.New(compiler.DefaultOptions(), compiler.NewRegistry())
//	unit, err := c.Compile("Hi, <%=name%>!", false)
//	if err != nil {
//	    return err
//	}
//	out, err := unit.Call(map[string]any{"name": "Ann"}, c.Methods())
//	// out == "Hi, Ann!"
package compiler
