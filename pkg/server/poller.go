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
	"errors"
	"log/slog"
	"time"

	"arttemplate/pkg/httpstore"
	"arttemplate/pkg/templating"
)

// Poller keeps an engine in sync with templates fetched over HTTP. Every
// interval it revalidates the fetched templates; a changed template replaces
// the cached one only if it compiles, otherwise the previous version stays.
type Poller struct {
	engine   *templating.Engine
	store    *httpstore.Store
	interval time.Duration
	logger   *slog.Logger
}

// NewPoller creates a poller refreshing store every interval.
func NewPoller(engine *templating.Engine, store *httpstore.Store, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		engine:   engine,
		store:    store,
		interval: interval,
		logger:   logger.With("component", "poller"),
	}
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("polling remote templates", "interval", p.interval.String())

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

// poll refreshes every fetched template once.
func (p *Poller) poll(ctx context.Context) {
	for _, id := range p.store.IDs() {
		if ctx.Err() != nil {
			return
		}
		p.refresh(ctx, id)
	}
}

func (p *Poller) refresh(ctx context.Context, id string) {
	changed, err := p.store.Refresh(ctx, id)
	if err != nil {
		var notFound *templating.TemplateNotFoundError
		if errors.As(err, &notFound) {
			p.engine.Forget(id)
			p.logger.Info("template removed", "template", id)
			return
		}
		p.logger.Warn("failed to refresh template", "template", id, "error", err)
		return
	}
	if !changed {
		return
	}

	source, ok := p.store.Pending(id)
	if !ok {
		return
	}

	debug := p.engine.Options().Debug
	if _, err := p.engine.Compile(source, debug); err != nil {
		p.store.Reject(id)
		d := templating.NewSyntaxDiagnostic(id, source, err)
		p.logger.Warn("changed template does not compile",
			"template", id,
			"error", templating.FormatDiagnosticShort(d))
		return
	}

	p.store.Promote(id)
	p.engine.Define(id, source, debug)
	p.logger.Info("template reloaded", "template", id)
}
