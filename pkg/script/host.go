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
	"reflect"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Host values (Go maps, slices and structs handed in as template data) are
// read through reflection. Writes are only supported on maps.

func indirect(rv reflect.Value) reflect.Value {
	for rv.IsValid() && (rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func isHostList(v Value) bool {
	switch v.(type) {
	case string, []byte:
		return false
	}
	rv := indirect(reflect.ValueOf(v))
	return rv.IsValid() && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array)
}

func isHostMap(v Value) bool {
	rv := indirect(reflect.ValueOf(v))
	return rv.IsValid() && (rv.Kind() == reflect.Map || rv.Kind() == reflect.Struct)
}

func hostListValues(v Value) []Value {
	rv := indirect(reflect.ValueOf(v))
	out := make([]Value, rv.Len())
	for i := range out {
		out[i] = Normalize(rv.Index(i).Interface())
	}
	return out
}

// fieldName is the name a struct field is visible under: its json tag when
// present, otherwise the Go field name.
func fieldName(f reflect.StructField) string {
	if tag := f.Tag.Get("json"); tag != "" {
		if name := strings.Split(tag, ",")[0]; name != "" && name != "-" {
			return name
		}
	}
	return f.Name
}

func hostGet(v Value, key string) (Value, bool) {
	if g, ok := v.(PropertyGetter); ok {
		return g.GetProperty(key)
	}
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() {
		return Undefined, false
	}

	if method := reflect.ValueOf(v).MethodByName(exportedName(key)); method.IsValid() && rv.Kind() != reflect.Map {
		return NativeFunc(func(args []Value) (Value, error) {
			return reflectCall(method, args)
		}), true
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return Undefined, false
		}
		mv := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return Undefined, false
		}
		return Normalize(mv.Interface()), true
	case reflect.Slice, reflect.Array:
		if key == "length" {
			return float64(rv.Len()), true
		}
		if i, ok := arrayIndex(key); ok && i < rv.Len() {
			return Normalize(rv.Index(i).Interface()), true
		}
	case reflect.Struct:
		t := rv.Type()
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.IsExported() && (fieldName(f) == key || f.Name == exportedName(key)) {
				return Normalize(rv.Field(i).Interface()), true
			}
		}
	}
	return Undefined, false
}

func hostSet(v Value, key string, value Value) error {
	rv := indirect(reflect.ValueOf(v))
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		// writes to other host values are silently dropped
		return nil
	}
	elem := rv.Type().Elem()
	ev, err := convertArg(value, elem)
	if err != nil {
		return typeErrorf("cannot set property '%s': %v", key, err)
	}
	rv.SetMapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()), ev)
	return nil
}

func exportedName(key string) string {
	r, size := utf8.DecodeRuneInString(key)
	if r == utf8.RuneError {
		return key
	}
	return string(unicode.ToUpper(r)) + key[size:]
}

func arrayIndex(key string) (int, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	i, err := strconv.Atoi(key)
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}
