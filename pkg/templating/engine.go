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
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"arttemplate/pkg/compiler"
	"arttemplate/pkg/script"
)

// MaxIncludeDepth bounds how deeply templates may include each other.
const MaxIncludeDepth = 32

// Engine defines, caches and renders templates. It is safe for concurrent
// use, but methods should be registered before the templates using them are
// defined: method names are resolved at compile time.
type Engine struct {
	options    compiler.Options
	methods    *compiler.Registry
	compiler   *compiler.Compiler
	cache      *Cache
	loader     Loader
	reporter   Reporter
	observer   Observer
	processors []PostProcessor
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithOptions sets the compiler options. Empty tags fall back to the
// defaults.
func WithOptions(opts compiler.Options) Option {
	return func(e *Engine) {
		e.options = opts
	}
}

// WithLogger sets the logger used by the engine and its default reporter.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithReporter replaces the default LogReporter.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		e.reporter = r
	}
}

// WithLoader sets the collaborator consulted when Render misses the cache.
func WithLoader(l Loader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithObserver sets the receiver of compile and render events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// WithPostProcessors sets the processors applied to successful output.
func WithPostProcessors(processors ...PostProcessor) Option {
	return func(e *Engine) {
		e.processors = processors
	}
}

// WithMethods registers methods on the engine's registry.
func WithMethods(methods map[string]MethodFunc) Option {
	return func(e *Engine) {
		for name, fn := range methods {
			e.methods.Set(name, (func(...interface{}) (interface{}, error))(fn))
		}
	}
}

// WithStandardMethods registers StandardMethods.
func WithStandardMethods() Option {
	return WithMethods(StandardMethods())
}

// New creates an engine with its own method registry and cache.
func New(opts ...Option) *Engine {
	e := &Engine{
		options:  compiler.DefaultOptions(),
		methods:  compiler.NewRegistry(),
		cache:    NewCache(),
		observer: nopObserver{},
		logger:   slog.Default().With("component", "templating"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.reporter == nil {
		e.reporter = NewLogReporter(e.logger)
	}

	e.methods.Set(compiler.RenderMethod, e.includeFunc(1))
	e.compiler = compiler.New(e.options, e.methods)

	return e
}

// Options returns the compiler options in effect.
func (e *Engine) Options() compiler.Options {
	return e.compiler.Options()
}

// Methods returns the shared method registry.
func (e *Engine) Methods() *compiler.Registry {
	return e.methods
}

// Method returns a registered method.
func (e *Engine) Method(name string) (any, bool) {
	return e.methods.Get(name)
}

// SetMethod registers or replaces a method. Templates defined before the
// registration keep resolving name from their data.
func (e *Engine) SetMethod(name string, fn any) {
	if m, ok := fn.(MethodFunc); ok {
		fn = (func(...interface{}) (interface{}, error))(m)
	}
	e.methods.Set(name, fn)
}

// Compile compiles source without defining it.
func (e *Engine) Compile(source string, debug bool) (*compiler.Unit, error) {
	return e.compiler.Compile(source, debug)
}

// Define compiles source and, when id is not empty, caches it under id,
// replacing any previous definition. If compilation fails the failure is
// reported and the returned Renderer always yields the reporter's sentinel.
func (e *Engine) Define(id, source string, debug bool) Renderer {
	t, sentinel := e.define(id, source, debug)
	if t == nil {
		return func(any) string { return sentinel }
	}
	return func(data any) string {
		return e.execute(t, data, 0)
	}
}

// DefineAnonymous compiles source without caching it.
func (e *Engine) DefineAnonymous(source string, debug bool) Renderer {
	return e.Define("", source, debug)
}

// Render renders the template cached under id. On a cache miss the loader is
// asked for the source, which is then defined under id. Unknown ids are
// reported and yield the sentinel.
func (e *Engine) Render(id string, data any) string {
	return e.render(id, data, 0)
}

// Lookup returns the renderer of a cached template.
func (e *Engine) Lookup(id string) (Renderer, bool) {
	t, ok := e.cache.Get(id)
	if !ok {
		return nil, false
	}
	return func(data any) string {
		return e.execute(t, data, 0)
	}, true
}

// Template returns the cached template for id.
func (e *Engine) Template(id string) (*Template, bool) {
	return e.cache.Get(id)
}

// Forget removes id from the cache.
func (e *Engine) Forget(id string) {
	e.cache.Delete(id)
	e.observer.SetCachedTemplates(e.cache.Len())
}

// IDs returns the cached template ids in sorted order.
func (e *Engine) IDs() []string {
	return e.cache.IDs()
}

// Preload compiles every template of lister in parallel and caches them. It
// stops at the first failure and caches nothing in that case.
func (e *Engine) Preload(ctx context.Context, lister Lister) error {
	ids, err := lister.IDs()
	if err != nil {
		return err
	}

	templates := make([]*Template, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			source, err := lister.Load(id)
			if err != nil {
				return err
			}

			start := time.Now()
			unit, err := e.compiler.Compile(source, false)
			e.observer.ObserveCompile(time.Since(start), err)
			if err != nil {
				return NewCompilationError(id, source, err)
			}

			templates[i] = &Template{ID: id, Source: source, unit: unit}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to preload templates: %w", err)
	}

	for _, t := range templates {
		e.store(t)
	}
	e.logger.Info("templates preloaded", "count", len(templates))

	return nil
}

// define compiles and caches a template. On failure it returns the report
// result instead.
func (e *Engine) define(id, source string, debug bool) (*Template, string) {
	start := time.Now()
	unit, err := e.compiler.Compile(source, debug)
	e.observer.ObserveCompile(time.Since(start), err)
	if err != nil {
		return nil, e.report(NewSyntaxDiagnostic(id, source, err))
	}

	t := &Template{ID: id, Source: source, unit: unit}
	if id != "" {
		e.store(t)
	}
	return t, ""
}

func (e *Engine) store(t *Template) {
	e.cache.Set(t)
	e.observer.SetCachedTemplates(e.cache.Len())
}

func (e *Engine) render(id string, data any, depth int) string {
	t, err := e.lookup(id)
	if err != nil {
		return e.report(NewNotFoundDiagnostic(id, err))
	}
	return e.execute(t, data, depth)
}

func (e *Engine) lookup(id string) (*Template, error) {
	if t, ok := e.cache.Get(id); ok {
		return t, nil
	}
	if e.loader == nil {
		return nil, NewTemplateNotFoundError(id, e.cache.IDs())
	}

	source, err := e.loader.Load(id)
	if err != nil {
		return nil, err
	}
	t, _ := e.define(id, source, false)
	if t == nil {
		return nil, NewTemplateNotFoundError(id, nil)
	}
	e.logger.Debug("template loaded", "template", id)
	return t, nil
}

// execute runs t. A fault in a non-debug template recompiles it in debug mode
// and retries once; a fault in a debug template is reported. Post-processor
// failures are reported without a retry.
func (e *Engine) execute(t *Template, data any, depth int) string {
	start := time.Now()
	out, err := t.unit.Call(data, callMethods{engine: e, depth: depth})
	if err == nil {
		out, err = e.postProcess(out)
		e.observer.ObserveRender(time.Since(start), err)
		if err != nil {
			return e.report(NewRenderDiagnostic(t.ID, t.Source, err))
		}
		return out
	}
	e.observer.ObserveRender(time.Since(start), err)

	if !t.Debug() {
		e.logger.Debug("render failed, retrying in debug mode",
			"template", snippet(t.ID, 60),
			"error", err)
		e.observer.ObserveRetry()

		retry, sentinel := e.define(t.ID, t.Source, true)
		if retry == nil {
			return sentinel
		}
		return e.execute(retry, data, depth)
	}

	return e.report(NewRenderDiagnostic(t.ID, t.Source, err))
}

func (e *Engine) postProcess(out string) (string, error) {
	for _, p := range e.processors {
		var err error
		if out, err = p.Process(out); err != nil {
			return "", fmt.Errorf("postprocessor failed: %w", err)
		}
	}
	return out, nil
}

func (e *Engine) report(d *Diagnostic) string {
	e.observer.ObserveDiagnostic(d)
	return e.reporter.Report(d)
}

// includeFunc renders another template from inside a template at the given
// nesting depth.
func (e *Engine) includeFunc(depth int) script.NativeFunc {
	return func(args []script.Value) (script.Value, error) {
		var id string
		if len(args) > 0 {
			id = script.ToString(args[0])
		}
		var data any
		if len(args) > 1 {
			data = args[1]
		}
		if depth > MaxIncludeDepth {
			return nil, &IncludeDepthError{TemplateName: id}
		}
		return e.render(id, data, depth), nil
	}
}

// callMethods is the $methods view of one render: the shared registry with
// $render bound to the current include depth.
type callMethods struct {
	engine *Engine
	depth  int
}

// GetProperty implements script.PropertyGetter.
func (m callMethods) GetProperty(name string) (script.Value, bool) {
	if name == compiler.RenderMethod {
		return m.engine.includeFunc(m.depth + 1), true
	}
	return m.engine.methods.GetProperty(name)
}
