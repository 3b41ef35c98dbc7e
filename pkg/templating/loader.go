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
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
)

// Loader resolves template sources that are not cached yet. Load returns a
// *TemplateNotFoundError when the id is unknown.
type Loader interface {
	Load(id string) (string, error)
}

// Lister is a Loader that can enumerate its templates.
type Lister interface {
	Loader
	IDs() ([]string, error)
}

// MapLoader serves templates from memory.
type MapLoader map[string]string

// Load implements Loader.
func (l MapLoader) Load(id string) (string, error) {
	source, ok := l[id]
	if !ok {
		return "", NewTemplateNotFoundError(id, sortedKeys(l))
	}
	return source, nil
}

// IDs implements Lister.
func (l MapLoader) IDs() ([]string, error) {
	return sortedKeys(l), nil
}

// DirLoader serves templates from files named <id><ext> below a directory.
// Ids may contain slashes to reach subdirectories but cannot leave the
// directory.
type DirLoader struct {
	dir string
	ext string
}

// NewDirLoader creates a loader for dir. ext is appended to ids, for example
// ".html"; it may be empty.
func NewDirLoader(dir, ext string) *DirLoader {
	return &DirLoader{dir: dir, ext: ext}
}

// Dir returns the template directory.
func (l *DirLoader) Dir() string {
	return l.dir
}

// Ext returns the file extension of templates.
func (l *DirLoader) Ext() string {
	return l.ext
}

// Load implements Loader.
func (l *DirLoader) Load(id string) (string, error) {
	name := filepath.FromSlash(id + l.ext)
	if id == "" || !filepath.IsLocal(name) {
		return "", NewTemplateNotFoundError(id, nil)
	}

	content, err := os.ReadFile(filepath.Join(l.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", NewTemplateNotFoundError(id, nil)
		}
		return "", fmt.Errorf("failed to read template '%s': %w", id, err)
	}
	return string(content), nil
}

// IDs implements Lister. It walks the directory and returns the ids of all
// files carrying the extension.
func (l *DirLoader) IDs() ([]string, error) {
	var ids []string
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, l.ext) {
			return nil
		}
		rel, err := filepath.Rel(l.dir, path)
		if err != nil {
			return err
		}
		ids = append(ids, filepath.ToSlash(strings.TrimSuffix(rel, l.ext)))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates in %s: %w", l.dir, err)
	}
	sort.Strings(ids)
	return ids, nil
}

// ElementLoader serves templates embedded in an HTML page, the way a browser
// page keeps them in <script type="text/html" id="..."> or <textarea id="...">
// elements. The source of an element is its value attribute when set,
// otherwise its content.
type ElementLoader struct {
	templates map[string]string
}

// NewElementLoader parses an HTML document and indexes every element carrying
// an id attribute. The first element wins when ids repeat.
func NewElementLoader(r io.Reader) (*ElementLoader, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}

	l := &ElementLoader{templates: map[string]string{}}
	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			if id := attr(n, "id"); id != "" {
				if _, seen := l.templates[id]; !seen {
					source, err := elementSource(n)
					if err != nil {
						return err
					}
					l.templates[id] = source
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(doc); err != nil {
		return nil, err
	}

	return l, nil
}

// Load implements Loader.
func (l *ElementLoader) Load(id string) (string, error) {
	source, ok := l.templates[id]
	if !ok {
		return "", NewTemplateNotFoundError(id, nil)
	}
	return source, nil
}

// IDs implements Lister.
func (l *ElementLoader) IDs() ([]string, error) {
	return sortedKeys(l.templates), nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// rawTextElements keep their text content unescaped.
var rawTextElements = map[string]bool{
	"script":   true,
	"style":    true,
	"textarea": true,
	"title":    true,
}

func elementSource(n *html.Node) (string, error) {
	if value := attr(n, "value"); value != "" {
		return value, nil
	}

	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			if rawTextElements[n.Data] {
				b.WriteString(c.Data)
			} else {
				b.WriteString(html.EscapeString(c.Data))
			}
			continue
		}
		if err := html.Render(&b, c); err != nil {
			return "", fmt.Errorf("failed to render element content: %w", err)
		}
	}
	return b.String(), nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ChainLoader asks each loader in turn and returns the first source found.
// Errors other than not-found stop the search.
type ChainLoader []Loader

// Load implements Loader.
func (c ChainLoader) Load(id string) (string, error) {
	for _, l := range c {
		source, err := l.Load(id)
		if err == nil {
			return source, nil
		}
		var notFound *TemplateNotFoundError
		if !errors.As(err, &notFound) {
			return "", err
		}
	}
	ids, _ := c.IDs()
	return "", NewTemplateNotFoundError(id, ids)
}

// IDs implements Lister. Loaders that cannot list are skipped; an id served
// by several loaders is listed once.
func (c ChainLoader) IDs() ([]string, error) {
	seen := map[string]string{}
	for _, l := range c {
		lister, ok := l.(Lister)
		if !ok {
			continue
		}
		ids, err := lister.IDs()
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = id
		}
	}
	return sortedKeys(seen), nil
}
