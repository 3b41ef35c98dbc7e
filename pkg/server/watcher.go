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

package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"arttemplate/pkg/templating"
)

// Watcher keeps an engine in sync with a template directory. Changed files
// are recompiled under their id and removed files are forgotten.
type Watcher struct {
	engine *templating.Engine
	loader *templating.DirLoader
	ext    string
	logger *slog.Logger
}

// NewWatcher creates a watcher for the directory of loader.
func NewWatcher(engine *templating.Engine, loader *templating.DirLoader, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		engine: engine,
		loader: loader,
		ext:    loader.Ext(),
		logger: logger.With("component", "watcher"),
	}
}

// Run watches the directory tree until ctx is cancelled. Directories created
// later are watched too.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.loader.Dir()); err != nil {
		return err
	}
	w.logger.Info("watching templates", "dir", w.loader.Dir())

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, event.Name); err != nil {
						w.logger.Warn("failed to watch directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			w.handle(event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// handle applies one file system event to the engine.
func (w *Watcher) handle(event fsnotify.Event) {
	id, ok := w.templateID(event.Name)
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		w.engine.Forget(id)
		w.logger.Info("template removed", "template", id)

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		source, err := w.loader.Load(id)
		if err != nil {
			var notFound *templating.TemplateNotFoundError
			if errors.As(err, &notFound) {
				w.engine.Forget(id)
				return
			}
			w.logger.Warn("failed to reload template", "template", id, "error", err)
			return
		}
		// a broken edit must not keep serving the previous version
		w.engine.Forget(id)
		w.engine.Define(id, source, false)
		w.logger.Info("template reloaded", "template", id)
	}
}

// templateID maps a file path below the directory to its template id.
func (w *Watcher) templateID(path string) (string, bool) {
	if !strings.HasSuffix(path, w.ext) {
		return "", false
	}
	rel, err := filepath.Rel(w.loader.Dir(), path)
	if err != nil || !filepath.IsLocal(rel) {
		return "", false
	}
	return filepath.ToSlash(strings.TrimSuffix(rel, w.ext)), true
}
