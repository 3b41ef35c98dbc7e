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
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Value is any value a script can observe. Script-native values are
// Undefined, nil (null), bool, float64, string, *Object, *Array and Callable.
// Anything else is a host value supplied by Go code and accessed through
// reflection.
type Value = interface{}

type undefinedType struct{}

func (undefinedType) String() string { return "undefined" }

// Undefined is the value of missing properties and uninitialized variables.
var Undefined Value = undefinedType{}

// IsUndefined reports whether v is Undefined.
func IsUndefined(v Value) bool {
	_, ok := v.(undefinedType)
	return ok
}

// PropertyGetter is implemented by host objects that expose named members
// without going through reflection.
type PropertyGetter interface {
	GetProperty(name string) (Value, bool)
}

// Normalize converts Go scalars to their script representation: every numeric
// kind becomes float64 and named string/bool types lose their name. Composite
// host values are returned unchanged.
func Normalize(v interface{}) Value {
	switch x := v.(type) {
	case nil, undefinedType, bool, float64, string, *Object, *Array:
		return v
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case float32:
		return float64(x)
	case uint:
		return float64(x)
	case uint64:
		return float64(x)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		if _, ok := v.(fmt.Stringer); !ok {
			return rv.String()
		}
	case reflect.Bool:
		return rv.Bool()
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func:
		if rv.IsNil() {
			return nil
		}
	}
	return v
}

// ToBoolean converts v following the usual truthiness rules.
func ToBoolean(v Value) bool {
	switch x := Normalize(v).(type) {
	case nil, undefinedType:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case string:
		return x != ""
	default:
		return true
	}
}

// ToNumber converts v to a number, yielding NaN where no conversion exists.
func ToNumber(v Value) float64 {
	switch x := Normalize(v).(type) {
	case nil:
		return 0
	case undefinedType:
		return math.NaN()
	case bool:
		if x {
			return 1
		}
		return 0
	case float64:
		return x
	case string:
		return stringToNumber(x)
	case *Array:
		return stringToNumber(ToString(x))
	default:
		if isHostList(x) {
			return stringToNumber(ToString(x))
		}
		return math.NaN()
	}
}

func stringToNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, 64)
		if err != nil {
			return math.NaN()
		}
		return float64(n)
	}
	switch s {
	case "Infinity", "+Infinity":
		return math.Inf(1)
	case "-Infinity":
		return math.Inf(-1)
	}
	// ParseFloat accepts "inf" and "nan", which are not numbers here
	if strings.ContainsAny(s, "iInN") {
		return math.NaN()
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return n
}

// ToString converts v to its string form.
func ToString(v Value) string {
	switch x := Normalize(v).(type) {
	case nil:
		return "null"
	case undefinedType:
		return "undefined"
	case bool:
		if x {
			return "true"
		}
		return "false"
	case float64:
		return formatNumber(x)
	case string:
		return x
	case *Array:
		return joinValues(x.Elems, ",")
	case *Object:
		return "[object Object]"
	case Callable:
		return "function () { [native code] }"
	case error:
		return x.Error()
	case fmt.Stringer:
		return x.String()
	default:
		if isHostList(x) {
			return joinValues(hostListValues(x), ",")
		}
		if isHostMap(x) {
			return "[object Object]"
		}
		return fmt.Sprint(x)
	}
}

func joinValues(elems []Value, sep string) string {
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e == nil || IsUndefined(e) {
			continue
		}
		parts[i] = ToString(e)
	}
	return strings.Join(parts, sep)
}

func formatNumber(f float64) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0:
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// TypeOf returns the name the typeof operator yields for v.
func TypeOf(v Value) string {
	switch Normalize(v).(type) {
	case undefinedType:
		return "undefined"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case Callable:
		return "function"
	default:
		return "object"
	}
}

// StrictEquals implements ===.
func StrictEquals(a, b Value) bool {
	a, b = Normalize(a), Normalize(b)
	switch x := a.(type) {
	case nil:
		return b == nil
	case undefinedType:
		return IsUndefined(b)
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case string:
		y, ok := b.(string)
		return ok && x == y
	}
	return sameReference(a, b)
}

// sameReference compares composite values by identity. Maps, slices and
// funcs are not comparable with ==, so they are compared by pointer.
func sameReference(a, b Value) bool {
	ra, rb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !ra.IsValid() || !rb.IsValid() || ra.Type() != rb.Type() {
		return false
	}
	switch ra.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Ptr, reflect.Chan, reflect.UnsafePointer:
		return ra.Pointer() == rb.Pointer()
	}
	if ra.Type().Comparable() {
		return a == b
	}
	return false
}

func isPrimitive(v Value) bool {
	switch v.(type) {
	case nil, undefinedType, bool, float64, string:
		return true
	}
	return false
}

// LooseEquals implements ==.
func LooseEquals(a, b Value) bool {
	a, b = Normalize(a), Normalize(b)
	aNullish := a == nil || IsUndefined(a)
	bNullish := b == nil || IsUndefined(b)
	if aNullish || bNullish {
		return aNullish && bNullish
	}
	if isPrimitive(a) && isPrimitive(b) {
		_, aStr := a.(string)
		_, bStr := b.(string)
		if aStr && bStr {
			return a.(string) == b.(string)
		}
		return ToNumber(a) == ToNumber(b)
	}
	if isPrimitive(a) != isPrimitive(b) {
		if _, ok := a.(bool); ok {
			return ToNumber(a) == ToNumber(b)
		}
		if _, ok := b.(bool); ok {
			return ToNumber(a) == ToNumber(b)
		}
		if isPrimitive(a) {
			return LooseEquals(a, ToString(b))
		}
		return LooseEquals(ToString(a), b)
	}
	return sameReference(a, b)
}

// Keys returns the enumerable property names of v in iteration order.
// Host maps are iterated in sorted key order so output is deterministic.
func Keys(v Value) []string {
	switch x := Normalize(v).(type) {
	case *Object:
		return append([]string(nil), x.keys...)
	case *Array:
		return indexKeys(len(x.Elems))
	case string:
		return indexKeys(len([]rune(x)))
	case nil, undefinedType, bool, float64, Callable:
		return nil
	}
	rv := indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Map:
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, ToString(Normalize(k.Interface())))
		}
		sort.Strings(keys)
		return keys
	case reflect.Slice, reflect.Array:
		return indexKeys(rv.Len())
	case reflect.Struct:
		var keys []string
		for i := 0; i < rv.NumField(); i++ {
			if f := rv.Type().Field(i); f.IsExported() {
				keys = append(keys, fieldName(f))
			}
		}
		return keys
	}
	return nil
}

func indexKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

// Export converts a script value back into plain Go values: objects become
// map[string]interface{}, arrays []interface{} and Undefined nil.
func Export(v Value) interface{} {
	switch x := v.(type) {
	case undefinedType:
		return nil
	case *Object:
		m := make(map[string]interface{}, len(x.keys))
		for _, k := range x.keys {
			m[k] = Export(x.props[k])
		}
		return m
	case *Array:
		out := make([]interface{}, len(x.Elems))
		for i, e := range x.Elems {
			out[i] = Export(e)
		}
		return out
	}
	return v
}
