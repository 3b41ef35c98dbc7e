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

// Package templating defines, caches and renders <% %> templates.
//
// An Engine owns a compiler, the shared method registry and the template
// cache. Define compiles a template into a Renderer and caches it under its
// id; Render looks a template up by id, falling back to a Loader, and runs it.
//
// Neither operation returns an error. Every failure becomes a Diagnostic that
// is handed to the Reporter, and the caller receives the Sentinel string in
// place of output, so one broken template never breaks a page assembled from
// many. A template that faults at run time is transparently recompiled in
// debug mode and retried once, which both recovers from faults that only occur
// without line tracking and attaches the template line to the diagnostic.
package templating

// Renderer renders a defined template against a data context.
type Renderer func(data any) string

// Phase tells when a failure happened.
type Phase int

const (
	// PhaseSyntax failures happen while compiling.
	PhaseSyntax Phase = iota

	// PhaseRender failures happen while rendering.
	PhaseRender
)

// String returns the phase name used in reports.
func (p Phase) String() string {
	switch p {
	case PhaseSyntax:
		return "Syntax Error"
	case PhaseRender:
		return "Render Error"
	default:
		return "unknown"
	}
}
