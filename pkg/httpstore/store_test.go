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

package httpstore

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arttemplate/pkg/templating"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// origin is a test template server supporting ETag revalidation.
type origin struct {
	mu       sync.Mutex
	files    map[string]string
	requests atomic.Int32
	notMod   atomic.Int32
}

func newOrigin(t *testing.T, files map[string]string) (*origin, *httptest.Server) {
	t.Helper()
	o := &origin{files: files}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.requests.Add(1)
		o.mu.Lock()
		content, ok := o.files[r.URL.Path]
		o.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		etag := `"` + Checksum(content)[:8] + `"`
		if r.Header.Get("If-None-Match") == etag {
			o.notMod.Add(1)
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", etag)
		_, _ = io.WriteString(w, content)
	}))
	t.Cleanup(srv.Close)
	return o, srv
}

func (o *origin) set(path, content string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[path] = content
}

func (o *origin) remove(path string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.files, path)
}

func newTestStore(t *testing.T, baseURL string, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{
		WithLogger(quietLogger()),
		WithFetchOptions(FetchOptions{Retries: 1, RetryDelay: time.Millisecond}),
	}, opts...)
	s, err := New(baseURL, ".html", opts...)
	require.NoError(t, err)
	return s
}

func TestStore_FetchCaches(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{"/tpl/partials/footer.html": "footer <%= year %>"})
	s := newTestStore(t, srv.URL+"/tpl")

	source, err := s.Load("partials/footer")
	require.NoError(t, err)
	assert.Equal(t, "footer <%= year %>", source)

	source, err = s.Load("partials/footer")
	require.NoError(t, err)
	assert.Equal(t, "footer <%= year %>", source)
	assert.EqualValues(t, 1, o.requests.Load())

	assert.Equal(t, []string{"partials/footer"}, s.IDs())
	state, ok := s.State("partials/footer")
	require.True(t, ok)
	assert.Equal(t, StateAccepted, state)
}

func TestStore_NotFound(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{})
	s := newTestStore(t, srv.URL)

	_, err := s.Load("missing")
	var notFound *templating.TemplateNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.EqualValues(t, 1, o.requests.Load(), "404 is not retried")
}

func TestStore_RejectsEscapingIDs(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{})
	s := newTestStore(t, srv.URL+"/tpl")

	for _, id := range []string{"", "../secret", "/abs", "a/../../b", "."} {
		_, err := s.Load(id)
		var notFound *templating.TemplateNotFoundError
		assert.ErrorAs(t, err, &notFound, id)
	}
	assert.Zero(t, o.requests.Load())
}

func TestStore_Retries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL, WithFetchOptions(FetchOptions{Retries: 3, RetryDelay: time.Millisecond}))

	source, err := s.Load("x")
	require.NoError(t, err)
	assert.Equal(t, "ok", source)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestStore_AllRetriesFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL)

	_, err := s.Load("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 attempts failed")
	assert.Empty(t, s.IDs())
}

func TestStore_ClientErrorNotRetried(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newTestStore(t, srv.URL, WithFetchOptions(FetchOptions{Retries: 3, RetryDelay: time.Millisecond}))

	_, err := s.Load("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.EqualValues(t, 1, attempts.Load())
}

func TestStore_RefreshPromote(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{"/page.html": "v1"})
	s := newTestStore(t, srv.URL)
	ctx := context.Background()

	_, err := s.Load("page")
	require.NoError(t, err)

	changed, err := s.Refresh(ctx, "page")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.EqualValues(t, 1, o.notMod.Load(), "unchanged source answers 304")

	o.set("/page.html", "v2")
	changed, err = s.Refresh(ctx, "page")
	require.NoError(t, err)
	assert.True(t, changed)

	pending, ok := s.Pending("page")
	require.True(t, ok)
	assert.Equal(t, "v2", pending)

	source, _ := s.Load("page")
	assert.Equal(t, "v1", source, "accepted source is served until promoted")

	require.True(t, s.Promote("page"))
	source, _ = s.Load("page")
	assert.Equal(t, "v2", source)

	_, ok = s.Pending("page")
	assert.False(t, ok)
	assert.False(t, s.Promote("page"))
}

func TestStore_RefreshReject(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{"/page.html": "good"})
	s := newTestStore(t, srv.URL)
	ctx := context.Background()

	_, err := s.Load("page")
	require.NoError(t, err)

	o.set("/page.html", "broken")
	changed, err := s.Refresh(ctx, "page")
	require.NoError(t, err)
	require.True(t, changed)
	require.True(t, s.Reject("page"))

	state, _ := s.State("page")
	assert.Equal(t, StateRejected, state)
	source, _ := s.Load("page")
	assert.Equal(t, "good", source)

	changed, err = s.Refresh(ctx, "page")
	require.NoError(t, err)
	assert.False(t, changed, "rejected source is not reported again")

	o.set("/page.html", "fixed")
	changed, err = s.Refresh(ctx, "page")
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestStore_RefreshRemoved(t *testing.T) {
	o, srv := newOrigin(t, map[string]string{"/page.html": "v1"})
	s := newTestStore(t, srv.URL)

	_, err := s.Load("page")
	require.NoError(t, err)

	o.remove("/page.html")
	_, err = s.Refresh(context.Background(), "page")
	var notFound *templating.TemplateNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Empty(t, s.IDs())

	_, err = s.Refresh(context.Background(), "page")
	assert.Error(t, err)
}

func TestStore_Auth(t *testing.T) {
	tests := []struct {
		name   string
		auth   *AuthConfig
		header string
		want   string
	}{
		{"basic", &AuthConfig{Type: "basic", Username: "u", Password: "p"}, "Authorization", "Basic dTpw"},
		{"bearer", &AuthConfig{Type: "bearer", Token: "tok"}, "Authorization", "Bearer tok"},
		{"header", &AuthConfig{Type: "header", Headers: map[string]string{"X-Api-Key": "k"}}, "X-Api-Key", "k"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(chan string, 1)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got <- r.Header.Get(tt.header)
				_, _ = io.WriteString(w, "ok")
			}))
			defer srv.Close()

			s := newTestStore(t, srv.URL, WithAuth(tt.auth))
			_, err := s.Load("x")
			require.NoError(t, err)
			assert.Equal(t, tt.want, <-got)
		})
	}
}

func TestStore_ThroughEngine(t *testing.T) {
	_, srv := newOrigin(t, map[string]string{"/hello.html": "Hello <%= name %>"})
	s := newTestStore(t, srv.URL)

	engine := templating.New(templating.WithLoader(s))
	assert.Equal(t, "Hello Ann", engine.Render("hello", map[string]any{"name": "Ann"}))
}

func TestNew_InvalidBaseURL(t *testing.T) {
	_, err := New("ftp://example.com", ".html")
	assert.Error(t, err)

	_, err = New("://bad", ".html")
	assert.Error(t, err)
}

func TestLoadFixture(t *testing.T) {
	s, err := New("http://example.invalid", ".html")
	require.NoError(t, err)

	s.LoadFixture("a", "fixture")
	source, err := s.Load("a")
	require.NoError(t, err)
	assert.Equal(t, "fixture", source)
}
