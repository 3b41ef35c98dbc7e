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
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// errNotFound marks a 404 answer.
var errNotFound = errors.New("resource not found (404 Not Found)")

// clientError marks 4xx answers, which are not retried.
type clientError struct {
	status string
}

func (e *clientError) Error() string {
	return "client error: " + e.status
}

// fetchResult is the outcome of one successful request.
type fetchResult struct {
	content      string
	notModified  bool
	etag         string
	lastModified string
}

// fetchWithRetry performs an HTTP GET with retries and exponential backoff.
// etag and lastModified, when set, make the request conditional.
func (s *Store) fetchWithRetry(ctx context.Context, url, etag, lastModified string) (fetchResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			exp := min(attempt-1, 5)
			delay := s.opts.RetryDelay * time.Duration(1<<exp)
			s.logger.Debug("retrying template fetch",
				"url", url,
				"attempt", attempt+1,
				"delay", delay.String())

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fetchResult{}, ctx.Err()
			}
		}

		res, err := s.doFetch(ctx, url, etag, lastModified)
		if err == nil {
			return res, nil
		}

		var ce *clientError
		if errors.Is(err, errNotFound) || errors.As(err, &ce) {
			return fetchResult{}, err
		}

		lastErr = err
		s.logger.Debug("template fetch attempt failed",
			"url", url,
			"attempt", attempt+1,
			"error", err)
	}

	return fetchResult{}, fmt.Errorf("all %d attempts failed: %w", s.opts.Retries+1, lastErr)
}

// doFetch performs a single HTTP GET.
func (s *Store) doFetch(ctx context.Context, url, etag, lastModified string) (fetchResult, error) {
	reqCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fetchResult{}, fmt.Errorf("failed to create request: %w", err)
	}

	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastModified != "" {
		req.Header.Set("If-Modified-Since", lastModified)
	}
	if s.auth != nil {
		addAuthHeaders(req, s.auth)
	}
	req.Header.Set("User-Agent", "arttemplate/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return fetchResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	res := fetchResult{
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, MaxContentSize+1))
		if err != nil {
			return fetchResult{}, fmt.Errorf("failed to read response body: %w", err)
		}
		if len(body) > MaxContentSize {
			return fetchResult{}, fmt.Errorf("response body exceeds maximum size of %d bytes", MaxContentSize)
		}
		res.content = string(body)
		return res, nil

	case resp.StatusCode == http.StatusNotModified:
		res.notModified = true
		if res.etag == "" {
			res.etag = etag
		}
		return res, nil

	case resp.StatusCode == http.StatusNotFound:
		return fetchResult{}, errNotFound

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fetchResult{}, &clientError{status: resp.Status}

	case resp.StatusCode >= 500:
		return fetchResult{}, fmt.Errorf("server error: %s", resp.Status)

	default:
		return fetchResult{}, fmt.Errorf("unexpected status: %s", resp.Status)
	}
}

// addAuthHeaders adds authentication headers to the request.
func addAuthHeaders(req *http.Request, auth *AuthConfig) {
	switch auth.Type {
	case "basic":
		if auth.Username != "" || auth.Password != "" {
			credentials := base64.StdEncoding.EncodeToString(
				[]byte(auth.Username + ":" + auth.Password))
			req.Header.Set("Authorization", "Basic "+credentials)
		}

	case "bearer":
		if auth.Token != "" {
			req.Header.Set("Authorization", "Bearer "+auth.Token)
		}
	}

	for key, value := range auth.Headers {
		req.Header.Set(key, value)
	}
}
