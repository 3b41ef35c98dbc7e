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

// Package script implements the small expression language that template logic
// fragments are written in.
//
// The language is a JavaScript-flavoured subset: var declarations, if/else,
// for, for-in, while, do-while, switch, try/catch/finally, throw, function
// literals and declarations, object and array literals, member access, calls
// and the usual arithmetic, comparison and logical operators. There is no
// this, no new, no prototype chain and no access to anything the caller does
// not pass in, which makes it safe to run untrusted template code.
//
// Source is compiled into a closure with Compile and run through Call:
//
//	fn, err := script.Compile([]string{"$data"}, "return $data.a + 1;")
//	if err != nil {
//	    return err
//	}
//	v, err := fn.Call([]script.Value{map[string]interface{}{"a": 41}})
//	// v == float64(42)
//
// Go maps, slices and structs can be passed as values; they are read through
// reflection. Go functions become callable with ToCallable.
package script
