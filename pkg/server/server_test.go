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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arttemplate/pkg/templating"
	tmetrics "arttemplate/pkg/templating/metrics"
)

func newTestServer(t *testing.T, opts ...Option) (*Server, *templating.Engine) {
	t.Helper()
	engine := templating.New(templating.WithReporter(templating.ReporterFunc(func(*templating.Diagnostic) string {
		return templating.Sentinel
	})))
	engine.Define("greeting", "Hi, <%= name %>!", false)
	engine.Define("list", "<% $forEach(items, function(it){ %>[<%= it %>]<% }) %>", false)
	engine.Define("broken", "<%= a.b %>", false)
	return New("127.0.0.1:0", engine, opts...), engine
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHandleRender(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name       string
		req        *http.Request
		wantStatus int
		wantBody   string
	}{
		{
			name:       "query data",
			req:        httptest.NewRequest(http.MethodGet, "/render/greeting?name=Ann", nil),
			wantStatus: http.StatusOK,
			wantBody:   "Hi, Ann!",
		},
		{
			name:       "repeated query parameters become a list",
			req:        httptest.NewRequest(http.MethodGet, "/render/list?items=a&items=b", nil),
			wantStatus: http.StatusOK,
			wantBody:   "[a][b]",
		},
		{
			name:       "json body",
			req:        httptest.NewRequest(http.MethodPost, "/render/list", strings.NewReader(`{"items": [1, 2]}`)),
			wantStatus: http.StatusOK,
			wantBody:   "[1][2]",
		},
		{
			name:       "empty body",
			req:        httptest.NewRequest(http.MethodPost, "/render/greeting", nil),
			wantStatus: http.StatusOK,
			wantBody:   "Hi, !",
		},
		{
			name:       "render fault",
			req:        httptest.NewRequest(http.MethodGet, "/render/broken", nil),
			wantStatus: http.StatusInternalServerError,
			wantBody:   templating.Sentinel,
		},
		{
			name:       "unknown template",
			req:        httptest.NewRequest(http.MethodGet, "/render/missing", nil),
			wantStatus: http.StatusInternalServerError,
			wantBody:   templating.Sentinel,
		},
		{
			name:       "invalid json",
			req:        httptest.NewRequest(http.MethodPost, "/render/greeting", strings.NewReader(`{`)),
			wantStatus: http.StatusBadRequest,
			wantBody:   "failed to decode json data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
		})
	}
}

func TestHandleRender_YAMLBody(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/render/greeting", strings.NewReader("name: Bob\n"))
	req.Header.Set("Content-Type", "application/yaml")
	rec := do(t, s, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hi, Bob!", rec.Body.String())
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestHandleRender_NestedID(t *testing.T) {
	s, engine := newTestServer(t)
	engine.Define("partials/footer", "footer", false)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/render/partials/footer", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "footer", rec.Body.String())
}

func TestHandleCompile(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("success", func(t *testing.T) {
		rec := do(t, s, httptest.NewRequest(http.MethodPost, "/compile?debug=true", strings.NewReader("Hi, <%= name %>")))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp compileResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Debug)
		assert.True(t, strings.HasPrefix(resp.Code, "function anonymous($data,$methods) {"))
		assert.Equal(t, "$data.name", resp.Variables["name"])
	})

	t.Run("sandbox violation", func(t *testing.T) {
		rec := do(t, s, httptest.NewRequest(http.MethodPost, "/compile", strings.NewReader("x\n<%= this %>")))
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		var resp diagnosticResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "SandboxError", resp.Name)
		assert.Equal(t, 2, resp.Line)
		assert.Contains(t, resp.Report, "Template Syntax Error")
	})
}

func TestHandleTemplates(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/templates", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Templates []string `json:"templates"`
		Count     int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"broken", "greeting", "list"}, resp.Templates)
	assert.Equal(t, 3, resp.Count)
}

func TestHealthAndNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{"/health", "/healthz"} {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	}

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "metrics are only served with a registry")
}

func TestRequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/health", nil))
	generated := rec.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = do(t, s, req)
	assert.Equal(t, "abc", rec.Header().Get(RequestIDHeader))

	var seen string
	h := withRequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
	}), s.logger)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
}

func TestMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := tmetrics.New(registry)

	engine := templating.New(templating.WithObserver(m))
	engine.Define("a", "A", false)
	s := New("127.0.0.1:0", engine, WithMetrics(registry))

	do(t, s, httptest.NewRequest(http.MethodGet, "/render/a", nil))
	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arttemplate_render_total 1")
	assert.Contains(t, rec.Body.String(), "arttemplate_cached_templates 1")
}

func TestServer_StartServesAndShutsDown(t *testing.T) {
	s, _ := newTestServer(t, WithShutdownTimeout(time.Second))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.Start(ctx)
	}()

	select {
	case <-s.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not start in time")
	}

	resp, err := http.Get("http://" + s.Addr() + "/render/greeting?name=Ann")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "Hi, Ann!", string(body))

	cancel()

	select {
	case err := <-errChan:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestHandleDiagnostics(t *testing.T) {
	history := templating.NewHistory(10, nil)
	engine := templating.New(templating.WithReporter(history))
	engine.Define("broken", "ok\n<%= a.b %>", false)
	s := New("127.0.0.1:0", engine, WithHistory(history))

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/render/broken", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/render/missing", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Diagnostics []diagnosticEntry `json:"diagnostics"`
		Count       int               `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)

	first := body.Diagnostics[0]
	assert.Equal(t, "broken", first.Template)
	assert.Equal(t, "Render Error", first.Phase)
	assert.Equal(t, "TypeError", first.Name)
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "<%= a.b %>", first.SourceLine)
	assert.Equal(t, "NotFound", body.Diagnostics[1].Name)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/diagnostics?limit=1", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "missing", body.Diagnostics[0].Template)

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/diagnostics?limit=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDiagnostics_DisabledWithoutHistory(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/diagnostics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
