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

import "time"

// Observer receives engine events, typically to export metrics.
type Observer interface {
	// ObserveCompile is called after every compilation.
	ObserveCompile(duration time.Duration, err error)

	// ObserveRender is called after every render attempt. Retried renders
	// are observed once per attempt.
	ObserveRender(duration time.Duration, err error)

	// ObserveRetry is called when a fault triggers a debug recompile.
	ObserveRetry()

	// ObserveDiagnostic is called for every reported diagnostic.
	ObserveDiagnostic(d *Diagnostic)

	// SetCachedTemplates is called with the cache size whenever it changes.
	SetCachedTemplates(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveCompile(time.Duration, error) {}
func (nopObserver) ObserveRender(time.Duration, error)  {}
func (nopObserver) ObserveRetry()                       {}
func (nopObserver) ObserveDiagnostic(*Diagnostic)       {}
func (nopObserver) SetCachedTemplates(int)              {}
