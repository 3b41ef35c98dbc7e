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

// Package httpstore serves template sources fetched from an HTTP(S) base URL.
//
// A Store resolves a template id to <base>/<id><ext>, fetches it once and
// keeps the accepted source. Refresh revalidates a cached source with a
// conditional request and keeps a changed source as pending until the caller
// promotes it, typically after it compiled, or rejects it.
package httpstore

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 10 * time.Second

// DefaultRetries is the default number of retry attempts.
const DefaultRetries = 2

// DefaultRetryDelay is the default delay between retry attempts.
const DefaultRetryDelay = 500 * time.Millisecond

// MaxContentSize is the maximum allowed template size (1MB).
const MaxContentSize = 1 << 20

// FetchOptions configures HTTP fetching behavior.
type FetchOptions struct {
	// Timeout is the HTTP request timeout.
	// Default: 10s
	Timeout time.Duration

	// Retries is the number of retry attempts on failure. Client errors
	// (4xx) are not retried.
	// Default: 2
	Retries int

	// RetryDelay is the wait before the first retry; it doubles per attempt.
	// Default: 500ms
	RetryDelay time.Duration
}

// WithDefaults returns a copy of the options with default values applied.
func (o FetchOptions) WithDefaults() FetchOptions {
	if o.Timeout == 0 {
		o.Timeout = DefaultTimeout
	}
	if o.Retries == 0 {
		o.Retries = DefaultRetries
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	return o
}

// AuthConfig configures HTTP authentication.
type AuthConfig struct {
	// Type is the authentication type: "basic", "bearer", or "header".
	Type string `yaml:"type"`

	// Username for basic auth.
	Username string `yaml:"username"`

	// Password for basic auth.
	Password string `yaml:"password"`

	// Token for bearer auth.
	Token string `yaml:"token"`

	// Headers are added to every request, for example API keys.
	Headers map[string]string `yaml:"headers"`
}

// State is the validation state of a cached source.
type State int

const (
	// StateAccepted means the accepted source is in use and nothing is pending.
	StateAccepted State = iota

	// StatePending means a changed source awaits promotion or rejection.
	StatePending

	// StateRejected means the last pending source was rejected.
	StateRejected
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateAccepted:
		return "accepted"
	case StatePending:
		return "pending"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// entry is the cached state of one template.
type entry struct {
	url string

	accepted         string
	acceptedChecksum string
	acceptedTime     time.Time

	pending          string
	pendingChecksum  string
	rejectedChecksum string
	state            State

	// conditional request headers
	etag         string
	lastModified string
}

// Checksum computes the SHA256 checksum of content.
func Checksum(content string) string {
	hash := sha256.Sum256([]byte(content))
	return hex.EncodeToString(hash[:])
}

func short(checksum string) string {
	return checksum[:min(12, len(checksum))]
}
