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

package templating

import (
	"sort"
	"sync"

	"arttemplate/pkg/compiler"
)

// Template is a defined template: its id, source and compiled unit.
type Template struct {
	// ID is empty for anonymous templates.
	ID     string
	Source string

	unit *compiler.Unit
}

// Debug reports whether the template was compiled in debug mode.
func (t *Template) Debug() bool {
	return t.unit.Debug()
}

// Code returns the generated function of the template.
func (t *Template) Code() string {
	return t.unit.Program().Function()
}

// Cache maps template ids to defined templates. Storing an id again replaces
// the previous definition.
type Cache struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{templates: map[string]*Template{}}
}

// Get looks up a template by id.
func (c *Cache) Get(id string) (*Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[id]
	return t, ok
}

// Set stores t under its id.
func (c *Cache) Set(t *Template) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[t.ID] = t
}

// Delete removes a template.
func (c *Cache) Delete(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.templates, id)
}

// IDs returns the cached ids in sorted order.
func (c *Cache) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.templates))
	for id := range c.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of cached templates.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}
