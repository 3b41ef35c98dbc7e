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
	"fmt"
	"log/slog"
	"os"

	"arttemplate/pkg/core/config"
	"arttemplate/pkg/httpstore"
	"arttemplate/pkg/templating"
)

// engineSetup is an engine together with the loaders it resolves ids from.
type engineSetup struct {
	engine *templating.Engine
	chain  templating.ChainLoader

	// dir is nil unless sources.dir is configured.
	dir *templating.DirLoader

	// remote is nil unless sources.url is configured.
	remote *httpstore.Store
}

// buildEngine creates the engine described by cfg. Ids resolve against the
// inline templates first, then the page elements, then the directory, then
// the remote store.
func buildEngine(cfg *config.Config, logger *slog.Logger, opts ...templating.Option) (*engineSetup, error) {
	processors, err := templating.NewPostProcessors(cfg.Template.PostProcessors)
	if err != nil {
		return nil, fmt.Errorf("failed to create postprocessors: %w", err)
	}

	setup := &engineSetup{}
	if len(cfg.Templates) > 0 {
		setup.chain = append(setup.chain, templating.MapLoader(cfg.Templates))
	}
	if cfg.Sources.Page != "" {
		page, err := loadPage(cfg.Sources.Page)
		if err != nil {
			return nil, err
		}
		setup.chain = append(setup.chain, page)
	}
	if cfg.Sources.Dir != "" {
		setup.dir = templating.NewDirLoader(cfg.Sources.Dir, cfg.Sources.Extension)
		setup.chain = append(setup.chain, setup.dir)
	}
	if cfg.Sources.URL != "" {
		setup.remote, err = httpstore.New(cfg.Sources.URL, cfg.Sources.Extension,
			httpstore.WithLogger(logger),
			httpstore.WithAuth(cfg.Sources.Auth),
			httpstore.WithFetchOptions(httpstore.FetchOptions{Timeout: cfg.Sources.GetTimeout()}))
		if err != nil {
			return nil, err
		}
		setup.chain = append(setup.chain, setup.remote)
	}

	base := []templating.Option{
		templating.WithOptions(cfg.Template.CompilerOptions()),
		templating.WithLogger(logger),
		templating.WithLoader(setup.chain),
		templating.WithPostProcessors(processors...),
	}
	if cfg.Template.StandardMethods {
		base = append(base, templating.WithStandardMethods())
	}

	setup.engine = templating.New(append(base, opts...)...)
	return setup, nil
}

func loadPage(path string) (*templating.ElementLoader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer f.Close()

	page, err := templating.NewElementLoader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to load page %s: %w", path, err)
	}
	return page, nil
}
