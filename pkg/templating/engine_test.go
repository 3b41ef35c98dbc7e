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
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arttemplate/pkg/compiler"
)

// recorder collects reported diagnostics.
type recorder struct {
	mu          sync.Mutex
	diagnostics []*Diagnostic
}

func (r *recorder) Report(d *Diagnostic) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diagnostics = append(r.diagnostics, d)
	return Sentinel
}

func (r *recorder) all() []*Diagnostic {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Diagnostic(nil), r.diagnostics...)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(append([]Option{WithReporter(rec)}, opts...)...), rec
}

func TestEngine_Scenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		data   any
		want   string
	}{
		{
			name:   "output marker",
			source: "Hi, <%=name%>!",
			data:   map[string]any{"name": "Ann"},
			want:   "Hi, Ann!",
		},
		{
			name:   "loop across fragments",
			source: "<% for(var i=0;i<3;i++){ %>x<% } %>",
			data:   map[string]any{},
			want:   "xxx",
		},
		{
			name:   "unterminated open tag renders as text",
			source: "<% if(true)",
			data:   nil,
			want:   " if(true)",
		},
		{
			name:   "undefined renders empty",
			source: "[<%=missing%>]",
			data:   map[string]any{},
			want:   "[]",
		},
		{
			name:   "quotes and backslashes survive",
			source: `it's "quoted" \n <%=1+1%>`,
			data:   nil,
			want:   `it's "quoted" \n 2`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, rec := newTestEngine(t)
			render := engine.Define(tt.name, tt.source, false)

			assert.Equal(t, tt.want, render(tt.data))
			assert.Empty(t, rec.all())
		})
	}
}

func TestEngine_SandboxViolation(t *testing.T) {
	engine, rec := newTestEngine(t)

	render := engine.Define("self", "a\n<%=this%>", false)

	assert.Equal(t, Sentinel, render(nil))
	assert.Zero(t, engine.cache.Len())

	diags := rec.all()
	require.Len(t, diags, 1)
	assert.Equal(t, PhaseSyntax, diags[0].Phase)
	assert.Equal(t, "SandboxError", diags[0].Name)
	assert.Equal(t, 2, diags[0].Line)
	assert.Equal(t, "<%=this%>", diags[0].SourceLine)

	var sandboxErr *compiler.SandboxError
	assert.ErrorAs(t, diags[0], &sandboxErr)
}

func TestEngine_SyntaxError(t *testing.T) {
	engine, rec := newTestEngine(t)

	render := engine.Define("broken", "<% if (a) { %>open", false)

	assert.Equal(t, Sentinel, render(nil))
	_, ok := engine.Lookup("broken")
	assert.False(t, ok)

	diags := rec.all()
	require.Len(t, diags, 1)
	assert.Equal(t, "SyntaxError", diags[0].Name)
	assert.Contains(t, diags[0].Code, "function anonymous($data,$methods)")
}

func TestEngine_MethodPriority(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.SetMethod("upper", strings.ToUpper)

	render := engine.Define("", "<%=upper(name)%>", false)

	out := render(map[string]any{"name": "al", "upper": "not a function"})
	assert.Equal(t, "AL", out)

	m, ok := engine.Method("upper")
	require.True(t, ok)
	assert.NotNil(t, m)
}

func TestEngine_RedefineReplaces(t *testing.T) {
	engine, _ := newTestEngine(t)

	engine.Define("page", "one", false)
	engine.Define("page", "two", false)

	assert.Equal(t, "two", engine.Render("page", nil))
	assert.Equal(t, []string{"page"}, engine.IDs())
}

func TestEngine_AnonymousNotCached(t *testing.T) {
	engine, _ := newTestEngine(t)

	render := engine.DefineAnonymous("<%=n*2%>", false)

	assert.Equal(t, "4", render(map[string]any{"n": 2}))
	assert.Empty(t, engine.IDs())
}

func TestEngine_RetryRecoversTransientFault(t *testing.T) {
	obs := &countingObserver{}
	engine, rec := newTestEngine(t, WithObserver(obs))

	var calls int32
	engine.SetMethod("flaky", func() (string, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	engine.Define("flaky", "<%=flaky()%>", false)

	assert.Equal(t, "ok", engine.Render("flaky", nil))
	assert.Empty(t, rec.all())
	assert.EqualValues(t, 1, obs.retries.Load())

	tmpl, ok := engine.Template("flaky")
	require.True(t, ok)
	assert.True(t, tmpl.Debug(), "retry replaces the cache entry with the debug build")
}

func TestEngine_PersistentFaultReportedOnce(t *testing.T) {
	obs := &countingObserver{}
	engine, rec := newTestEngine(t, WithObserver(obs))

	engine.Define("bad", "line one\n<%= user.name %>", false)

	assert.Equal(t, Sentinel, engine.Render("bad", map[string]any{}))
	assert.EqualValues(t, 1, obs.retries.Load())

	diags := rec.all()
	require.Len(t, diags, 1)
	d := diags[0]
	assert.Equal(t, PhaseRender, d.Phase)
	assert.Equal(t, "bad", d.ID)
	assert.Equal(t, "TypeError", d.Name)
	assert.Equal(t, "Cannot read property 'name' of undefined", d.Message)
	assert.Equal(t, 2, d.Line)
	assert.Equal(t, "<%= user.name %>", d.SourceLine)
}

func TestEngine_DebugFaultNotRetried(t *testing.T) {
	obs := &countingObserver{}
	engine, rec := newTestEngine(t, WithObserver(obs))

	render := engine.DefineAnonymous("<% nothing() %>", true)

	assert.Equal(t, Sentinel, render(map[string]any{}))
	assert.Zero(t, obs.retries.Load())

	diags := rec.all()
	require.Len(t, diags, 1)
	assert.Equal(t, "<% nothing() %>", diags[0].ID, "anonymous templates are identified by their source")
	assert.Equal(t, "TypeError", diags[0].Name)
}

func TestEngine_RenderNotCached(t *testing.T) {
	engine, rec := newTestEngine(t)

	assert.Equal(t, Sentinel, engine.Render("missing", nil))

	diags := rec.all()
	require.Len(t, diags, 1)
	assert.Equal(t, NotCachedMessage, diags[0].Message)
	assert.Equal(t, "NotFound", diags[0].Name)

	var notFound *TemplateNotFoundError
	assert.ErrorAs(t, diags[0], &notFound)
}

func TestEngine_LoaderFallback(t *testing.T) {
	engine, rec := newTestEngine(t, WithLoader(MapLoader{
		"greeting": "Hello <%=name%>",
	}))

	assert.Equal(t, "Hello Ann", engine.Render("greeting", map[string]any{"name": "Ann"}))
	assert.Equal(t, []string{"greeting"}, engine.IDs())

	assert.Equal(t, Sentinel, engine.Render("other", nil))
	require.Len(t, rec.all(), 1)
}

func TestEngine_Include(t *testing.T) {
	engine, rec := newTestEngine(t)

	engine.Define("header", "<h1><%=title%></h1>", false)
	engine.Define("item", "<li><%=label%></li>", false)
	engine.Define("page",
		"<%=include('header')%><ul><% $forEach(items, function(it){ %><%=include('item', {label: it})%><% }) %></ul>",
		false)

	out := engine.Render("page", map[string]any{
		"title": "Items",
		"items": []string{"a", "b"},
	})

	assert.Equal(t, "<h1>Items</h1><ul><li>a</li><li>b</li></ul>", out)
	assert.Empty(t, rec.all())
}

func TestEngine_IncludeDepthLimit(t *testing.T) {
	engine, rec := newTestEngine(t)

	engine.Define("loop", "x<%=include('loop')%>", false)

	out := engine.Render("loop", nil)

	assert.True(t, strings.HasSuffix(out, Sentinel))
	assert.Equal(t, MaxIncludeDepth, strings.Count(out, "x"))

	diags := rec.all()
	require.Len(t, diags, 1)
	var depthErr *IncludeDepthError
	assert.ErrorAs(t, diags[0], &depthErr)
}

func TestEngine_PostProcessors(t *testing.T) {
	engine, _ := newTestEngine(t, WithPostProcessors(TrimLinesProcessor{}))

	render := engine.DefineAnonymous("a  \n\n\n<% if (true) { %>b\t<% } %>", false)

	assert.Equal(t, "a\n\nb", render(nil))
}

type failingProcessor struct{}

func (failingProcessor) Process(string) (string, error) {
	return "", errors.New("processor failed")
}

func TestEngine_PostProcessorFailureReported(t *testing.T) {
	obs := &countingObserver{}
	engine, rec := newTestEngine(t, WithPostProcessors(failingProcessor{}), WithObserver(obs))

	assert.Equal(t, Sentinel, engine.DefineAnonymous("text", false)(nil))

	engine.Define("page", "cached text", false)
	assert.Equal(t, Sentinel, engine.Render("page", nil))

	assert.Zero(t, obs.retries.Load(), "a post-processor failure is not retried")
	assert.EqualValues(t, 2, obs.compiles.Load())

	cached, ok := engine.Template("page")
	require.True(t, ok)
	assert.False(t, cached.Debug(), "the cached template keeps its non-debug build")

	diags := rec.all()
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, PhaseRender, d.Phase)
		assert.Contains(t, d.Message, "processor failed")
	}
}

func TestEngine_MethodPanicReported(t *testing.T) {
	obs := &countingObserver{}
	engine, rec := newTestEngine(t, WithObserver(obs), WithMethods(map[string]MethodFunc{
		"boom": func(...interface{}) (interface{}, error) {
			var m map[string]int
			m["x"] = 1
			return nil, nil
		},
	}))

	var out string
	require.NotPanics(t, func() {
		out = engine.Define("p", "<%=boom()%>", false)(nil)
	})
	assert.Equal(t, Sentinel, out)
	assert.EqualValues(t, 1, obs.retries.Load())

	diags := rec.all()
	require.Len(t, diags, 1)
	assert.Equal(t, PhaseRender, diags[0].Phase)
	assert.Equal(t, "p", diags[0].ID)
	assert.Equal(t, "Error", diags[0].Name)
	assert.Contains(t, diags[0].Message, "native function panicked")
	assert.Equal(t, 1, diags[0].Line)
}

func TestEngine_PanickingMethodCaughtByTemplate(t *testing.T) {
	engine, rec := newTestEngine(t)
	engine.SetMethod("boom", func(...interface{}) (interface{}, error) { panic("bad state") })

	out := engine.DefineAnonymous("<% try { boom(); } catch (e) { %>recovered<% } %>", false)(nil)

	assert.Equal(t, "recovered", out)
	assert.Empty(t, rec.all())
}

func TestEngine_LoaderFailureKeepsCause(t *testing.T) {
	engine, rec := newTestEngine(t, WithLoader(failingLoader{}))

	assert.Equal(t, Sentinel, engine.Render("page", nil))

	diags := rec.all()
	require.Len(t, diags, 1)
	assert.Equal(t, "LoadError", diags[0].Name)
	assert.Equal(t, "disk on fire", diags[0].Message)
}

func TestEngine_StandardMethods(t *testing.T) {
	engine, _ := newTestEngine(t, WithStandardMethods())

	render := engine.DefineAnonymous("<%=escapeHTML(s)%>|<%=json(list)%>|<%=b64encode('hi')%>", false)

	assert.Equal(t, "&lt;b&gt;|[1,2]|aGk=", render(map[string]any{
		"s":    "<b>",
		"list": []int{1, 2},
	}))
}

func TestEngine_CustomTags(t *testing.T) {
	engine, _ := newTestEngine(t, WithOptions(compiler.Options{OpenTag: "{{", CloseTag: "}}"}))

	render := engine.DefineAnonymous("Hi {{=name}} <%=name%>", false)

	assert.Equal(t, "Hi Ann <%=name%>", render(map[string]any{"name": "Ann"}))
	assert.Equal(t, "{{", engine.Options().OpenTag)
}

func TestEngine_ForgetAndLookup(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.Define("a", "A", false)

	render, ok := engine.Lookup("a")
	require.True(t, ok)
	assert.Equal(t, "A", render(nil))

	engine.Forget("a")
	_, ok = engine.Lookup("a")
	assert.False(t, ok)
}

func TestEngine_Preload(t *testing.T) {
	t.Run("caches every template", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		err := engine.Preload(context.Background(), MapLoader{
			"a": "A<%=1%>",
			"b": "B",
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"a", "b"}, engine.IDs())
		assert.Equal(t, "A1", engine.Render("a", nil))
	})

	t.Run("caches nothing on failure", func(t *testing.T) {
		engine, _ := newTestEngine(t)

		err := engine.Preload(context.Background(), MapLoader{
			"good": "fine",
			"bad":  "<%=this%>",
		})
		require.Error(t, err)

		var compErr *CompilationError
		require.ErrorAs(t, err, &compErr)
		assert.Equal(t, "bad", compErr.TemplateName)
		assert.Empty(t, engine.IDs())
	})

	t.Run("honours cancellation", func(t *testing.T) {
		engine, _ := newTestEngine(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := engine.Preload(ctx, MapLoader{"a": "A"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEngine_ConcurrentRenders(t *testing.T) {
	engine, rec := newTestEngine(t)
	engine.Define("n", "<%=n%>", false)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%10 == 0 {
				engine.Define("n", "<%=n%>", false)
			}
			assert.Equal(t, "7", engine.Render("n", map[string]any{"n": 7}))
		}(i)
	}
	wg.Wait()

	assert.Empty(t, rec.all())
}

type countingObserver struct {
	compiles    atomic.Int32
	renders     atomic.Int32
	retries     atomic.Int32
	diagnostics atomic.Int32
	cached      atomic.Int32
}

func (o *countingObserver) ObserveCompile(time.Duration, error) { o.compiles.Add(1) }
func (o *countingObserver) ObserveRender(time.Duration, error)  { o.renders.Add(1) }
func (o *countingObserver) ObserveRetry()                       { o.retries.Add(1) }
func (o *countingObserver) ObserveDiagnostic(*Diagnostic)       { o.diagnostics.Add(1) }
func (o *countingObserver) SetCachedTemplates(n int)            { o.cached.Store(int32(n)) }

func TestEngine_Observer(t *testing.T) {
	obs := &countingObserver{}
	engine, _ := newTestEngine(t, WithObserver(obs))

	engine.Define("a", "A", false)
	engine.Define("b", "<%=this%>", false)
	engine.Render("a", nil)
	engine.Render("missing", nil)

	assert.EqualValues(t, 2, obs.compiles.Load())
	assert.EqualValues(t, 1, obs.renders.Load())
	assert.EqualValues(t, 2, obs.diagnostics.Load())
	assert.EqualValues(t, 1, obs.cached.Load())
}
