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
	"errors"
	"sort"
	"sync"

	"arttemplate/pkg/script"
)

const (
	// ForEachMethod iterates a list or object: $forEach(list, fn(value, index)).
	ForEachMethod = "$forEach"

	// GetValueMethod coerces output values; undefined becomes "".
	GetValueMethod = "$getValue"

	// RenderMethod renders another template by id. It is registered by the
	// owner of the template cache.
	RenderMethod = "$render"
)

// Registry maps method names to values shared by every template. Functions
// are made callable from templates when registered. Methods are never
// removed.
type Registry struct {
	mu      sync.RWMutex
	methods map[string]any
	values  map[string]script.Value
}

// NewRegistry returns a registry seeded with the builtin helpers.
func NewRegistry() *Registry {
	r := &Registry{
		methods: map[string]any{},
		values:  map[string]script.Value{},
	}
	r.Set(ForEachMethod, script.NativeFunc(forEach))
	r.Set(GetValueMethod, script.NativeFunc(getValue))
	return r
}

// Set registers or replaces a method. Go functions are adapted with
// script.ToCallable; any other value is exposed as is.
func (r *Registry) Set(name string, method any) {
	var value script.Value
	if fn, ok := script.ToCallable(method); ok {
		value = fn
	} else {
		value = script.Normalize(method)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods[name] = method
	r.values[name] = value
}

// Get returns the method as it was registered.
func (r *Registry) Get(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.methods[name]
	return m, ok
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.methods[name]
	return ok
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.methods))
	for name := range r.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetProperty exposes the registry to generated code as $methods.
func (r *Registry) GetProperty(name string) (script.Value, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[name]
	if !ok {
		return script.Undefined, false
	}
	return v, true
}

func getValue(args []script.Value) (script.Value, error) {
	if len(args) == 0 || script.IsUndefined(args[0]) {
		return "", nil
	}
	return args[0], nil
}

func forEach(args []script.Value) (script.Value, error) {
	if len(args) < 2 {
		return nil, errors.New("$forEach requires a list and a callback")
	}
	fn, ok := args[1].(script.Callable)
	if !ok {
		return nil, errors.New("$forEach callback is not a function")
	}
	list := args[0]
	err := script.Each(list, func(key, elem script.Value) error {
		_, err := fn.Call([]script.Value{elem, key, list})
		return err
	})
	return script.Undefined, err
}
