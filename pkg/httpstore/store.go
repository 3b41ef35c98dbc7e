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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"arttemplate/pkg/templating"
)

// Store fetches template sources from a base URL and caches them by id. It
// implements templating.Loader and is safe for concurrent use.
type Store struct {
	base   *url.URL
	ext    string
	opts   FetchOptions
	auth   *AuthConfig
	client *http.Client
	logger *slog.Logger

	mu    sync.RWMutex
	cache map[string]*entry // template id -> entry
}

var _ templating.Loader = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithFetchOptions sets timeouts and retries.
func WithFetchOptions(opts FetchOptions) Option {
	return func(s *Store) {
		s.opts = opts
	}
}

// WithAuth authenticates every request.
func WithAuth(auth *AuthConfig) Option {
	return func(s *Store) {
		s.auth = auth
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Store) {
		s.client = client
	}
}

// New creates a store for templates below baseURL. ext is appended to ids,
// for example ".html"; it may be empty.
func New(baseURL, ext string, opts ...Option) (*Store, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https, got %q", baseURL)
	}

	s := &Store{
		base:   base,
		ext:    ext,
		logger: slog.Default(),
		cache:  make(map[string]*entry),
		client: &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.opts = s.opts.WithDefaults()
	s.logger = s.logger.With("component", "httpstore")

	return s, nil
}

// URL returns the address of template id. Ids use slash separated segments
// and cannot leave the base path.
func (s *Store) URL(id string) (string, bool) {
	if !fs.ValidPath(id) || id == "." {
		return "", false
	}
	return s.base.JoinPath(id + s.ext).String(), true
}

// Load implements templating.Loader.
func (s *Store) Load(id string) (string, error) {
	return s.Fetch(context.Background(), id)
}

// Fetch returns the accepted source of id. The first call for an id fetches
// it synchronously; later calls return the cached source.
func (s *Store) Fetch(ctx context.Context, id string) (string, error) {
	s.mu.RLock()
	e, ok := s.cache[id]
	if ok {
		content := e.accepted
		s.mu.RUnlock()
		return content, nil
	}
	s.mu.RUnlock()

	u, ok := s.URL(id)
	if !ok {
		return "", templating.NewTemplateNotFoundError(id, s.IDs())
	}

	s.logger.Info("fetching template", "template", id, "url", u)

	res, err := s.fetchWithRetry(ctx, u, "", "")
	if err != nil {
		if errors.Is(err, errNotFound) {
			return "", templating.NewTemplateNotFoundError(id, s.IDs())
		}
		return "", fmt.Errorf("failed to fetch template %s: %w", id, err)
	}

	checksum := Checksum(res.content)
	s.mu.Lock()
	s.cache[id] = &entry{
		url:              u,
		accepted:         res.content,
		acceptedChecksum: checksum,
		acceptedTime:     time.Now(),
		state:            StateAccepted,
		etag:             res.etag,
		lastModified:     res.lastModified,
	}
	s.mu.Unlock()

	s.logger.Debug("cached template",
		"template", id,
		"size", len(res.content),
		"checksum", short(checksum))

	return res.content, nil
}

// Refresh revalidates the cached source of id. A changed source is kept as
// pending and changed is true; call Promote or Reject to settle it. A 404
// removes the entry and returns a *templating.TemplateNotFoundError.
func (s *Store) Refresh(ctx context.Context, id string) (changed bool, err error) {
	s.mu.RLock()
	e, ok := s.cache[id]
	if !ok {
		s.mu.RUnlock()
		return false, fmt.Errorf("template not in cache: %s", id)
	}
	u, etag, lastModified := e.url, e.etag, e.lastModified
	s.mu.RUnlock()

	res, err := s.fetchWithRetry(ctx, u, etag, lastModified)
	if err != nil {
		if errors.Is(err, errNotFound) {
			s.Forget(id)
			return false, templating.NewTemplateNotFoundError(id, s.IDs())
		}
		return false, fmt.Errorf("failed to refresh template %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok = s.cache[id]
	if !ok {
		return false, nil
	}
	e.etag = res.etag
	e.lastModified = res.lastModified

	if res.notModified {
		return false, nil
	}

	checksum := Checksum(res.content)
	if checksum == e.acceptedChecksum || checksum == e.rejectedChecksum {
		return false, nil
	}

	e.pending = res.content
	e.pendingChecksum = checksum
	e.state = StatePending

	s.logger.Info("template changed",
		"template", id,
		"old_checksum", short(e.acceptedChecksum),
		"new_checksum", short(checksum))

	return true, nil
}

// Pending returns the pending source of id.
func (s *Store) Pending(id string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.cache[id]
	if !ok || e.state != StatePending {
		return "", false
	}
	return e.pending, true
}

// Promote makes the pending source of id the accepted one.
func (s *Store) Promote(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache[id]
	if !ok || e.state != StatePending {
		return false
	}

	e.accepted = e.pending
	e.acceptedChecksum = e.pendingChecksum
	e.acceptedTime = time.Now()
	e.pending = ""
	e.pendingChecksum = ""
	e.rejectedChecksum = ""
	e.state = StateAccepted

	return true
}

// Reject drops the pending source of id and keeps the accepted one. Refresh
// does not report the rejected source as changed again.
func (s *Store) Reject(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cache[id]
	if !ok || e.state != StatePending {
		return false
	}

	s.logger.Warn("rejecting changed template, keeping accepted version",
		"template", id,
		"rejected_checksum", short(e.pendingChecksum),
		"keeping_checksum", short(e.acceptedChecksum))

	e.rejectedChecksum = e.pendingChecksum
	e.pending = ""
	e.pendingChecksum = ""
	e.state = StateRejected

	return true
}

// State returns the validation state of id.
func (s *Store) State(id string) (State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.cache[id]
	if !ok {
		return 0, false
	}
	return e.state, true
}

// Forget drops id from the cache.
func (s *Store) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cache, id)
}

// IDs returns the ids fetched so far, sorted.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.cache))
	for id := range s.cache {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadFixture stores content for id without fetching it.
func (s *Store) LoadFixture(id, content string) {
	u, _ := s.URL(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[id] = &entry{
		url:              u,
		accepted:         content,
		acceptedChecksum: Checksum(content),
		acceptedTime:     time.Now(),
		state:            StateAccepted,
	}
}
