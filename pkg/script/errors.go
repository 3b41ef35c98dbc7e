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
)

// ParseError reports malformed source. Pos is the byte offset into the text
// handed to the parser.
type ParseError struct {
	Pos     int
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("%s (offset %d)", e.Message, e.Pos)
}

// Fault is a value thrown while running a script, either by a throw
// statement or by the runtime itself (TypeError and friends). Runtime
// faults carry an *Object with name and message properties so that
// catch blocks can inspect and annotate them.
type Fault struct {
	// Value is the thrown value.
	Value Value

	// Cause is the Go error behind the fault, when a native function failed.
	Cause error
}

// Error implements the error interface.
func (f *Fault) Error() string {
	if obj, ok := f.Value.(*Object); ok && obj.Has("message") {
		name := ToString(obj.Get("name"))
		if IsUndefined(obj.Get("name")) || name == "" {
			name = "Error"
		}
		return name + ": " + ToString(obj.Get("message"))
	}
	return "uncaught " + ToString(f.Value)
}

// Unwrap returns the Go error behind the fault, if any.
func (f *Fault) Unwrap() error {
	return f.Cause
}

// Name returns the fault name ("TypeError", "Error", ...).
func (f *Fault) Name() string {
	if obj, ok := f.Value.(*Object); ok {
		if name := obj.Get("name"); !IsUndefined(name) {
			return ToString(name)
		}
	}
	return "Error"
}

// Message returns the fault message without its name.
func (f *Fault) Message() string {
	if obj, ok := f.Value.(*Object); ok {
		if msg := obj.Get("message"); !IsUndefined(msg) {
			return ToString(msg)
		}
	}
	return ToString(f.Value)
}

// Line returns the line property attached to the thrown object, or 0.
func (f *Fault) Line() int {
	if obj, ok := f.Value.(*Object); ok {
		n := ToNumber(obj.Get("line"))
		if n > 0 {
			return int(n)
		}
	}
	return 0
}

// NewError creates an error object the way the runtime builds its own.
func NewError(name, message string) *Object {
	obj := NewObject()
	obj.Set("name", name)
	obj.Set("message", message)
	return obj
}

func typeErrorf(format string, args ...interface{}) *Fault {
	return &Fault{Value: NewError("TypeError", fmt.Sprintf(format, args...))}
}

func rangeErrorf(format string, args ...interface{}) *Fault {
	return &Fault{Value: NewError("RangeError", fmt.Sprintf(format, args...))}
}

// asFault turns any error surfacing from native code into a Fault so catch
// blocks see a uniform value.
func asFault(err error) *Fault {
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	obj := NewError("Error", err.Error())
	obj.cause = err
	return &Fault{Value: obj, Cause: err}
}

// PanicFault turns a value recovered from a panic in native code into an
// Error fault.
func PanicFault(r interface{}) *Fault {
	return asFault(fmt.Errorf("native function panicked: %v", r))
}
