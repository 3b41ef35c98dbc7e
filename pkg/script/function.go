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

package script

import (
	"errors"
	"fmt"
	"reflect"
)

// Callable is any value that can be invoked from a script.
type Callable interface {
	Call(args []Value) (Value, error)
}

// NativeFunc is a Go function callable from scripts.
type NativeFunc func(args []Value) (Value, error)

// Call implements Callable.
func (f NativeFunc) Call(args []Value) (Value, error) {
	return f(args)
}

// Function is a closure created from a function literal.
type Function struct {
	lit   *FuncLit
	scope *scope
}

// Call implements Callable.
func (f *Function) Call(args []Value) (Value, error) {
	return callFunction(f, args)
}

// Name returns the declared name of the function, if any.
func (f *Function) Name() string {
	return f.lit.Name
}

// Compile parses body as the statement list of a function with the given
// parameter names and returns it as a closure with no enclosing scope.
func Compile(params []string, body string) (*Function, error) {
	lit, err := ParseFunction(params, body)
	if err != nil {
		return nil, err
	}
	return &Function{lit: lit, scope: newScope(nil, true)}, nil
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// ToCallable adapts fn to a Callable. Supported shapes are Callable itself,
// func([]Value) (Value, error), func(...interface{}) (interface{}, error),
// and any other Go func, whose arguments are converted by reflection. A
// trailing error result is turned into a fault.
func ToCallable(fn interface{}) (Callable, bool) {
	switch f := fn.(type) {
	case Callable:
		return f, true
	case func([]Value) (Value, error):
		return NativeFunc(f), true
	case func(...interface{}) (interface{}, error):
		return NativeFunc(func(args []Value) (Value, error) {
			return f(exportArgs(args)...)
		}), true
	}
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func || rv.IsNil() {
		return nil, false
	}
	return NativeFunc(func(args []Value) (Value, error) {
		return reflectCall(rv, args)
	}), true
}

func exportArgs(args []Value) []interface{} {
	out := make([]interface{}, len(args))
	for i, a := range args {
		out[i] = Export(a)
	}
	return out
}

func reflectCall(fn reflect.Value, args []Value) (result Value, err error) {
	t := fn.Type()
	in := make([]reflect.Value, 0, len(args))
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	for i := 0; i < fixed; i++ {
		var arg Value = Undefined
		if i < len(args) {
			arg = args[i]
		}
		v, err := convertArg(arg, t.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, v)
	}
	if t.IsVariadic() {
		elem := t.In(fixed).Elem()
		for i := fixed; i < len(args); i++ {
			v, err := convertArg(args[i], elem)
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			in = append(in, v)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("native function panicked: %v", r)
		}
	}()
	out := fn.Call(in)

	if n := len(out); n > 0 && t.Out(n-1) == errorType {
		if e, _ := out[n-1].Interface().(error); e != nil {
			return nil, e
		}
		out = out[:n-1]
	}
	if len(out) == 0 {
		return Undefined, nil
	}
	return Normalize(out[0].Interface()), nil
}

func convertArg(v Value, t reflect.Type) (reflect.Value, error) {
	if t.Kind() == reflect.Interface && t.NumMethod() == 0 {
		exported := Export(v)
		if exported == nil {
			return reflect.Zero(t), nil
		}
		return reflect.ValueOf(exported), nil
	}
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(ToString(v)).Convert(t), nil
	case reflect.Bool:
		return reflect.ValueOf(ToBoolean(v)).Convert(t), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return reflect.ValueOf(ToNumber(v)).Convert(t), nil
	}
	if v == nil || IsUndefined(v) {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(Export(v))
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}
	if rv.Type().ConvertibleTo(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, errors.New("cannot use " + TypeOf(v) + " value as " + t.String())
}
