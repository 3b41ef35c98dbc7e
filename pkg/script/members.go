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
	"math"
	"sort"
	"strings"
)

func propertyKey(key Value) string {
	if f, ok := Normalize(key).(float64); ok && f >= 0 && f == math.Trunc(f) {
		return formatNumber(f)
	}
	return ToString(key)
}

// GetMember reads obj[key].
func GetMember(obj Value, key Value) (Value, error) {
	name := propertyKey(key)
	switch x := Normalize(obj).(type) {
	case nil, undefinedType:
		return nil, typeErrorf("Cannot read property '%s' of %s", name, ToString(x))
	case *Object:
		return x.Get(name), nil
	case *Array:
		if name == "length" {
			return float64(len(x.Elems)), nil
		}
		if i, ok := arrayIndex(name); ok {
			return x.get(i), nil
		}
		return arrayMethod(x, name), nil
	case string:
		return stringMember(x, name), nil
	case bool, float64:
		return Undefined, nil
	case Callable:
		if name == "call" {
			return NativeFunc(func(args []Value) (Value, error) {
				if len(args) > 0 {
					args = args[1:]
				}
				return x.Call(args)
			}), nil
		}
		return Undefined, nil
	default:
		if v, ok := hostGet(x, name); ok {
			return v, nil
		}
		if isHostList(x) {
			// read-only array methods work on a snapshot of the host slice
			return arrayMethod(NewArray(hostListValues(x)...), name), nil
		}
		return Undefined, nil
	}
}

// SetMember performs obj[key] = value.
func SetMember(obj Value, key Value, value Value) error {
	name := propertyKey(key)
	switch x := Normalize(obj).(type) {
	case nil, undefinedType:
		return typeErrorf("Cannot set property '%s' of %s", name, ToString(x))
	case *Object:
		x.Set(name, value)
	case *Array:
		if name == "length" {
			n := ToNumber(value)
			if n < 0 || n != math.Trunc(n) || n > math.MaxInt32 {
				return rangeErrorf("Invalid array length")
			}
			x.setLength(int(n))
			return nil
		}
		if i, ok := arrayIndex(name); ok {
			if i > math.MaxInt32 {
				return rangeErrorf("Invalid array index")
			}
			x.set(i, value)
		}
	case bool, float64, string, Callable:
		// primitives and functions ignore property writes
	default:
		return hostSet(x, name, value)
	}
	return nil
}

// DeleteMember removes obj[key]; only objects and host maps support it.
func DeleteMember(obj Value, key Value) (bool, error) {
	name := propertyKey(key)
	switch x := Normalize(obj).(type) {
	case nil, undefinedType:
		return false, typeErrorf("Cannot delete property '%s' of %s", name, ToString(x))
	case *Object:
		x.Delete(name)
		return true, nil
	case *Array:
		if i, ok := arrayIndex(name); ok && i < len(x.Elems) {
			x.Elems[i] = Undefined
		}
		return true, nil
	}
	return false, nil
}

// HasMember implements the in operator.
func HasMember(obj Value, key Value) (bool, error) {
	name := propertyKey(key)
	switch x := Normalize(obj).(type) {
	case *Object:
		return x.Has(name), nil
	case *Array:
		i, ok := arrayIndex(name)
		return name == "length" || (ok && i < len(x.Elems)), nil
	case nil, undefinedType, bool, float64, string:
		return false, typeErrorf("Cannot use 'in' operator to search for '%s' in %s", name, ToString(x))
	default:
		_, ok := hostGet(x, name)
		return ok, nil
	}
}

func callArg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}

func intArg(args []Value, i int, def int) int {
	v := callArg(args, i)
	if IsUndefined(v) {
		return def
	}
	n := ToNumber(v)
	if math.IsNaN(n) {
		return 0
	}
	if math.IsInf(n, 1) || n > math.MaxInt32 {
		return math.MaxInt32
	}
	if math.IsInf(n, -1) || n < math.MinInt32 {
		return math.MinInt32
	}
	return int(n)
}

// relIndex resolves a possibly negative index against length n.
func relIndex(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
	}
	if i > n {
		return n
	}
	return i
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}

func callbackArg(args []Value) (Callable, error) {
	fn, ok := callArg(args, 0).(Callable)
	if !ok {
		return nil, typeErrorf("%s is not a function", ToString(callArg(args, 0)))
	}
	return fn, nil
}

func arrayMethod(a *Array, name string) Value {
	var fn NativeFunc
	switch name {
	case "push":
		fn = func(args []Value) (Value, error) {
			a.Elems = append(a.Elems, args...)
			return float64(len(a.Elems)), nil
		}
	case "pop":
		fn = func(args []Value) (Value, error) {
			if len(a.Elems) == 0 {
				return Undefined, nil
			}
			last := a.Elems[len(a.Elems)-1]
			a.Elems = a.Elems[:len(a.Elems)-1]
			return last, nil
		}
	case "shift":
		fn = func(args []Value) (Value, error) {
			if len(a.Elems) == 0 {
				return Undefined, nil
			}
			first := a.Elems[0]
			a.Elems = a.Elems[1:]
			return first, nil
		}
	case "unshift":
		fn = func(args []Value) (Value, error) {
			a.Elems = append(append([]Value(nil), args...), a.Elems...)
			return float64(len(a.Elems)), nil
		}
	case "join":
		fn = func(args []Value) (Value, error) {
			sep := ","
			if v := callArg(args, 0); !IsUndefined(v) {
				sep = ToString(v)
			}
			return joinValues(a.Elems, sep), nil
		}
	case "indexOf":
		fn = func(args []Value) (Value, error) {
			for i := clamp(relIndex(intArg(args, 1, 0), len(a.Elems)), len(a.Elems)); i < len(a.Elems); i++ {
				if StrictEquals(a.Elems[i], callArg(args, 0)) {
					return float64(i), nil
				}
			}
			return float64(-1), nil
		}
	case "slice":
		fn = func(args []Value) (Value, error) {
			n := len(a.Elems)
			start := relIndex(intArg(args, 0, 0), n)
			end := relIndex(intArg(args, 1, n), n)
			if end < start {
				end = start
			}
			return NewArray(append([]Value(nil), a.Elems[start:end]...)...), nil
		}
	case "concat":
		fn = func(args []Value) (Value, error) {
			out := append([]Value(nil), a.Elems...)
			for _, arg := range args {
				switch x := Normalize(arg).(type) {
				case *Array:
					out = append(out, x.Elems...)
				default:
					if isHostList(x) {
						out = append(out, hostListValues(x)...)
					} else {
						out = append(out, x)
					}
				}
			}
			return NewArray(out...), nil
		}
	case "reverse":
		fn = func(args []Value) (Value, error) {
			for i, j := 0, len(a.Elems)-1; i < j; i, j = i+1, j-1 {
				a.Elems[i], a.Elems[j] = a.Elems[j], a.Elems[i]
			}
			return a, nil
		}
	case "sort":
		fn = func(args []Value) (Value, error) {
			var cmp Callable
			if c, ok := callArg(args, 0).(Callable); ok {
				cmp = c
			}
			var sortErr error
			sort.SliceStable(a.Elems, func(i, j int) bool {
				if sortErr != nil {
					return false
				}
				if cmp == nil {
					return ToString(a.Elems[i]) < ToString(a.Elems[j])
				}
				r, err := cmp.Call([]Value{a.Elems[i], a.Elems[j]})
				if err != nil {
					sortErr = err
					return false
				}
				return ToNumber(r) < 0
			})
			return a, sortErr
		}
	case "forEach", "map", "filter", "some", "every":
		fn = func(args []Value) (Value, error) {
			cb, err := callbackArg(args)
			if err != nil {
				return nil, err
			}
			return iterateArray(a, name, cb)
		}
	default:
		return Undefined
	}
	return fn
}

func iterateArray(a *Array, method string, cb Callable) (Value, error) {
	var mapped []Value
	var kept []Value
	for i := 0; i < len(a.Elems); i++ {
		elem := a.Elems[i]
		r, err := cb.Call([]Value{elem, float64(i), a})
		if err != nil {
			return nil, err
		}
		switch method {
		case "map":
			mapped = append(mapped, r)
		case "filter":
			if ToBoolean(r) {
				kept = append(kept, elem)
			}
		case "some":
			if ToBoolean(r) {
				return true, nil
			}
		case "every":
			if !ToBoolean(r) {
				return false, nil
			}
		}
	}
	switch method {
	case "map":
		return NewArray(mapped...), nil
	case "filter":
		return NewArray(kept...), nil
	case "some":
		return false, nil
	case "every":
		return true, nil
	}
	return Undefined, nil
}

func stringMember(s string, name string) Value {
	runes := []rune(s)
	if name == "length" {
		return float64(len(runes))
	}
	if i, ok := arrayIndex(name); ok {
		if i < len(runes) {
			return string(runes[i])
		}
		return Undefined
	}

	var fn NativeFunc
	switch name {
	case "charAt":
		fn = func(args []Value) (Value, error) {
			i := intArg(args, 0, 0)
			if i < 0 || i >= len(runes) {
				return "", nil
			}
			return string(runes[i]), nil
		}
	case "charCodeAt":
		fn = func(args []Value) (Value, error) {
			i := intArg(args, 0, 0)
			if i < 0 || i >= len(runes) {
				return math.NaN(), nil
			}
			return float64(runes[i]), nil
		}
	case "indexOf":
		fn = func(args []Value) (Value, error) {
			return float64(runeIndex(runes, []rune(ToString(callArg(args, 0))), clamp(intArg(args, 1, 0), len(runes)))), nil
		}
	case "lastIndexOf":
		fn = func(args []Value) (Value, error) {
			needle := []rune(ToString(callArg(args, 0)))
			for i := len(runes) - len(needle); i >= 0; i-- {
				if string(runes[i:i+len(needle)]) == string(needle) {
					return float64(i), nil
				}
			}
			return float64(-1), nil
		}
	case "substring":
		fn = func(args []Value) (Value, error) {
			start := clamp(intArg(args, 0, 0), len(runes))
			end := clamp(intArg(args, 1, len(runes)), len(runes))
			if start > end {
				start, end = end, start
			}
			return string(runes[start:end]), nil
		}
	case "substr":
		fn = func(args []Value) (Value, error) {
			start := relIndex(intArg(args, 0, 0), len(runes))
			end := clamp(start+intArg(args, 1, len(runes)-start), len(runes))
			if end < start {
				return "", nil
			}
			return string(runes[start:end]), nil
		}
	case "slice":
		fn = func(args []Value) (Value, error) {
			start := relIndex(intArg(args, 0, 0), len(runes))
			end := relIndex(intArg(args, 1, len(runes)), len(runes))
			if end < start {
				return "", nil
			}
			return string(runes[start:end]), nil
		}
	case "toUpperCase":
		fn = func(args []Value) (Value, error) { return strings.ToUpper(s), nil }
	case "toLowerCase":
		fn = func(args []Value) (Value, error) { return strings.ToLower(s), nil }
	case "trim":
		fn = func(args []Value) (Value, error) { return strings.TrimSpace(s), nil }
	case "concat":
		fn = func(args []Value) (Value, error) {
			var b strings.Builder
			b.WriteString(s)
			for _, a := range args {
				b.WriteString(ToString(a))
			}
			return b.String(), nil
		}
	case "split":
		fn = func(args []Value) (Value, error) {
			sepArg := callArg(args, 0)
			if IsUndefined(sepArg) {
				return NewArray(s), nil
			}
			parts := strings.Split(s, ToString(sepArg))
			if ToString(sepArg) == "" {
				parts = parts[:0]
				for _, r := range runes {
					parts = append(parts, string(r))
				}
			}
			elems := make([]Value, len(parts))
			for i, p := range parts {
				elems[i] = p
			}
			return NewArray(elems...), nil
		}
	case "replace":
		fn = func(args []Value) (Value, error) {
			old := ToString(callArg(args, 0))
			repl := callArg(args, 1)
			idx := strings.Index(s, old)
			if idx < 0 {
				return s, nil
			}
			with := ToString(repl)
			if cb, ok := repl.(Callable); ok {
				r, err := cb.Call([]Value{old, float64(len([]rune(s[:idx]))), s})
				if err != nil {
					return nil, err
				}
				with = ToString(r)
			}
			return s[:idx] + with + s[idx+len(old):], nil
		}
	default:
		return Undefined
	}
	return fn
}

func runeIndex(haystack, needle []rune, from int) int {
	for i := from; i+len(needle) <= len(haystack); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

// Each calls fn for every element of an array-like value, passing the numeric
// index, or for every property of any other value, passing the key. Iteration
// stops at the first error.
func Each(v Value, fn func(key, elem Value) error) error {
	v = Normalize(v)
	var elems []Value
	switch x := v.(type) {
	case *Array:
		elems = append([]Value(nil), x.Elems...)
	default:
		if isHostList(x) {
			elems = hostListValues(x)
		}
	}
	if elems != nil {
		for i, elem := range elems {
			if err := fn(float64(i), elem); err != nil {
				return err
			}
		}
		return nil
	}
	for _, key := range Keys(v) {
		elem, err := GetMember(v, key)
		if err != nil {
			return err
		}
		if err := fn(key, elem); err != nil {
			return err
		}
	}
	return nil
}
