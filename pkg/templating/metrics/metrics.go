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

// Package metrics exports template engine activity as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pkgmetrics "arttemplate/pkg/metrics"
	"arttemplate/pkg/templating"
)

// Metrics holds the engine's Prometheus collectors and implements
// templating.Observer.
//
// Create one instance per engine and registry:
//
//	registry := prometheus.NewRegistry()
//	m := metrics.New(registry)
//	engine := templating.New(templating.WithObserver(m))
type Metrics struct {
	CompileDuration prometheus.Histogram
	CompileTotal    prometheus.Counter
	CompileErrors   prometheus.Counter

	RenderDuration prometheus.Histogram
	RenderTotal    prometheus.Counter
	RenderErrors   prometheus.Counter
	RenderRetries  prometheus.Counter

	Diagnostics     *prometheus.CounterVec
	CachedTemplates prometheus.Gauge
}

var _ templating.Observer = (*Metrics)(nil)

// New creates the engine metrics on registry.
func New(registry prometheus.Registerer) *Metrics {
	return &Metrics{
		CompileDuration: pkgmetrics.NewHistogramWithBuckets(
			registry,
			pkgmetrics.Name("compile_duration_seconds"),
			"Time spent compiling templates",
			pkgmetrics.TemplateBuckets(),
		),
		CompileTotal: pkgmetrics.NewCounter(
			registry,
			pkgmetrics.Name("compile_total"),
			"Total number of template compilations",
		),
		CompileErrors: pkgmetrics.NewCounter(
			registry,
			pkgmetrics.Name("compile_errors_total"),
			"Total number of failed template compilations",
		),

		RenderDuration: pkgmetrics.NewHistogramWithBuckets(
			registry,
			pkgmetrics.Name("render_duration_seconds"),
			"Time spent rendering templates",
			pkgmetrics.TemplateBuckets(),
		),
		RenderTotal: pkgmetrics.NewCounter(
			registry,
			pkgmetrics.Name("render_total"),
			"Total number of render attempts",
		),
		RenderErrors: pkgmetrics.NewCounter(
			registry,
			pkgmetrics.Name("render_errors_total"),
			"Total number of render attempts that faulted",
		),
		RenderRetries: pkgmetrics.NewCounter(
			registry,
			pkgmetrics.Name("render_retries_total"),
			"Total number of debug recompilations after a fault",
		),

		Diagnostics: pkgmetrics.NewCounterVec(
			registry,
			pkgmetrics.Name("diagnostics_total"),
			"Total number of reported diagnostics by phase and name",
			[]string{"phase", "name"},
		),
		CachedTemplates: pkgmetrics.NewGauge(
			registry,
			pkgmetrics.Name("cached_templates"),
			"Number of templates in the cache",
		),
	}
}

// ObserveCompile records a compilation.
func (m *Metrics) ObserveCompile(duration time.Duration, err error) {
	m.CompileTotal.Inc()
	m.CompileDuration.Observe(duration.Seconds())
	if err != nil {
		m.CompileErrors.Inc()
	}
}

// ObserveRender records a render attempt.
func (m *Metrics) ObserveRender(duration time.Duration, err error) {
	m.RenderTotal.Inc()
	m.RenderDuration.Observe(duration.Seconds())
	if err != nil {
		m.RenderErrors.Inc()
	}
}

// ObserveRetry records a debug recompilation.
func (m *Metrics) ObserveRetry() {
	m.RenderRetries.Inc()
}

// ObserveDiagnostic counts a reported diagnostic.
func (m *Metrics) ObserveDiagnostic(d *templating.Diagnostic) {
	m.Diagnostics.WithLabelValues(d.Phase.String(), d.Name).Inc()
}

// SetCachedTemplates sets the cache size.
func (m *Metrics) SetCachedTemplates(n int) {
	m.CachedTemplates.Set(float64(n))
}
