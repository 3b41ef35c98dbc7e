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

package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arttemplate/pkg/core/config"
	"arttemplate/pkg/core/logging"
	"arttemplate/pkg/templating"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRender_FileWithData(t *testing.T) {
	dir := t.TempDir()
	tmpl := writeFile(t, dir, "page.html", "<h1><%= title %></h1><% for (var i = 0; i < items.length; i++) { %><%= items[i] %>;<% } %>")

	tests := []struct {
		name string
		file string
		body string
	}{
		{"yaml", "data.yaml", "title: Hello\nitems: [a, b]\n"},
		{"json", "data.json", `{"title": "Hello", "items": ["a", "b"]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := writeFile(t, dir, tt.file, tt.body)

			stdout, _, err := execute(t, "", "render", tmpl, "--data", data)
			require.NoError(t, err)
			assert.Equal(t, "<h1>Hello</h1>a;b;", stdout)
		})
	}
}

func TestRender_DataFromStdin(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "hello.html", "Hello <%= name %>!")

	stdout, _, err := execute(t, `{"name": "world"}`, "render", tmpl, "--data", "-")
	require.NoError(t, err)
	assert.Equal(t, "Hello world!", stdout)
}

func TestRender_CustomTags(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "t.txt", "{{= n + 1 }}")

	stdout, _, err := execute(t, "{n: 1}", "render", tmpl, "--data", "-", "--open-tag", "{{", "--close-tag", "}}")
	require.NoError(t, err)
	assert.Equal(t, "2", stdout)
}

func TestRender_IDFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "templates/partials/footer.html", "footer <%= year %>")
	cfgPath := writeFile(t, dir, "arttemplate.yaml", `
sources:
  dir: `+filepath.Join(dir, "templates")+`
templates:
  inline: "inline <%= year %>"
`)

	stdout, _, err := execute(t, "year: 2025", "--config", cfgPath, "render", "partials/footer", "--data", "-")
	require.NoError(t, err)
	assert.Equal(t, "footer 2025", stdout)

	stdout, _, err = execute(t, "year: 2025", "--config", cfgPath, "render", "inline", "--data", "-")
	require.NoError(t, err)
	assert.Equal(t, "inline 2025", stdout)
}

func TestRender_IDFromURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tpl/card.html" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, "card <%= title %>")
	}))
	defer srv.Close()

	cfgPath := writeFile(t, t.TempDir(), "arttemplate.yaml", "sources:\n  url: "+srv.URL+"/tpl\n")

	stdout, _, err := execute(t, "title: X", "--config", cfgPath, "render", "card", "--data", "-")
	require.NoError(t, err)
	assert.Equal(t, "card X", stdout)

	_, _, err = execute(t, "", "--config", cfgPath, "render", "other")
	require.ErrorIs(t, err, errTemplateFailed)
}

func TestRender_FaultWritesReport(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "broken.html", "line one\n<%= user.name %>")

	stdout, stderr, err := execute(t, "", "render", tmpl)
	require.ErrorIs(t, err, errTemplateFailed)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "[template]:\n"+tmpl)
	assert.Contains(t, stderr, "[line]:\n2")
}

func TestRender_UnknownID(t *testing.T) {
	_, stderr, err := execute(t, "", "render", "does/not/exist")
	require.ErrorIs(t, err, errTemplateFailed)
	assert.Contains(t, stderr, "does/not/exist")
}

func TestRender_InvalidConfig(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "bad.yaml", "logging:\n  level: LOUD\n")

	_, _, err := execute(t, "", "--config", cfgPath, "render", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestCompile_PrintsFunction(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "t.html", "Hi <%= name %>")

	stdout, _, err := execute(t, "", "compile", tmpl)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "function anonymous($data,$methods) {"), stdout)
	assert.Contains(t, stdout, "name=$data.name")
}

func TestCompile_Variables(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "t.html", "<%= b %><%= a %>")

	stdout, _, err := execute(t, "", "compile", tmpl, "--variables")
	require.NoError(t, err)
	assert.Equal(t, "b = $data.b\na = $data.a\n", stdout)
}

func TestCompile_SyntaxError(t *testing.T) {
	tmpl := writeFile(t, t.TempDir(), "t.html", "<% if (x) { %>open")

	stdout, stderr, err := execute(t, "", "compile", tmpl)
	require.ErrorIs(t, err, errTemplateFailed)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Template Syntax Error")
}

func TestBuildEngine_LoaderOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.html", "from dir")
	writeFile(t, dir, "b.html", "b from dir")
	page := writeFile(t, t.TempDir(), "page.html",
		`<html><body><script type="text/html" id="a">from page</script><script type="text/html" id="c">c</script></body></html>`)

	cfg := config.Default()
	cfg.Sources.Dir = dir
	cfg.Sources.Page = page
	cfg.Templates = map[string]string{"b": "b inline"}

	setup, err := buildEngine(cfg, logging.New(&bytes.Buffer{}, "ERROR", "text"))
	require.NoError(t, err)
	require.NotNil(t, setup.dir)

	assert.Equal(t, "from page", setup.engine.Render("a", nil))
	assert.Equal(t, "b inline", setup.engine.Render("b", nil))
	assert.Equal(t, "c", setup.engine.Render("c", nil))

	ids, err := setup.chain.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestBuildEngine_InvalidPostProcessor(t *testing.T) {
	cfg := config.Default()
	cfg.Template.PostProcessors = []templating.PostProcessorConfig{{Type: "nope"}}

	_, err := buildEngine(cfg, logging.New(&bytes.Buffer{}, "ERROR", "text"))
	require.Error(t, err)
}

func TestServe_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "index.html", "<%= 1 + 1 %>")

	cfg := config.Default()
	cfg.Sources.Dir = dir
	cfg.Sources.Preload = true
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Server.MetricsAddr = "127.0.0.1:0"
	cfg.Server.Watch = true

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := serve(ctx, cfg, logging.New(&bytes.Buffer{}, "ERROR", "text"))
	assert.NoError(t, err)
}

func TestServe_PreloadFailure(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.html", "<% if (x) { %>")

	cfg := config.Default()
	cfg.Sources.Dir = dir
	cfg.Sources.Preload = true
	cfg.Server.Addr = "127.0.0.1:0"

	err := serve(context.Background(), cfg, logging.New(&bytes.Buffer{}, "ERROR", "text"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to preload templates")
}
