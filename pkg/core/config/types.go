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

// Package config provides the data model of the arttemplate configuration
// file.
//
// A configuration is loaded with LoadConfig or LoadConfigFile, which parse the
// YAML and apply defaults, and then checked with ValidateStructure.
package config

import (
	"arttemplate/pkg/httpstore"
	"arttemplate/pkg/templating"
)

// Config is the root configuration structure.
type Config struct {
	// Template configures the compiler and engine.
	Template TemplateConfig `yaml:"template"`

	// Logging configures logging behavior.
	Logging LoggingConfig `yaml:"logging"`

	// Sources tells the engine where templates that are not defined inline
	// come from.
	Sources SourcesConfig `yaml:"sources"`

	// Server configures the HTTP render server.
	Server ServerConfig `yaml:"server"`

	// Templates maps template ids to inline template sources. They are
	// defined at startup, before any source is consulted.
	//
	// Example:
	//   templates:
	//     greeting: "Hi, <%= name %>!"
	Templates map[string]string `yaml:"templates"`
}

// TemplateConfig configures template compilation.
type TemplateConfig struct {
	// OpenTag starts a logic fragment. Default: "<%".
	OpenTag string `yaml:"open_tag"`

	// CloseTag ends a logic fragment. Default: "%>".
	CloseTag string `yaml:"close_tag"`

	// Debug compiles every template with line tracking.
	Debug bool `yaml:"debug"`

	// StandardMethods registers escapeHTML, globMatch, b64encode,
	// b64decode and json.
	StandardMethods bool `yaml:"standard_methods"`

	// PostProcessors run on every successful render, in order.
	PostProcessors []templating.PostProcessorConfig `yaml:"postprocessors"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level is one of ERROR, WARNING, INFO or DEBUG. Default: INFO.
	Level string `yaml:"level"`

	// Format is "text" (logfmt) or "json". Default: text.
	Format string `yaml:"format"`
}

// SourcesConfig locates templates. Ids resolve against the inline templates,
// then Page, then Dir, then URL.
type SourcesConfig struct {
	// Dir is a directory of template files. Template ids are file paths
	// relative to Dir without Extension.
	Dir string `yaml:"dir"`

	// Extension is appended to template ids to find their file.
	// Default: ".html".
	Extension string `yaml:"extension"`

	// Page is an HTML file whose elements carrying an id attribute are
	// templates.
	Page string `yaml:"page"`

	// Preload compiles every template of Dir at startup.
	Preload bool `yaml:"preload"`

	// URL is an http(s) base URL; template id is fetched from
	// <URL>/<id><Extension>.
	URL string `yaml:"url"`

	// Auth authenticates requests to URL.
	Auth *httpstore.AuthConfig `yaml:"auth"`

	// Timeout bounds each request to URL. Default: "10s".
	Timeout string `yaml:"timeout"`

	// Refresh is the interval at which fetched templates are revalidated by
	// the render server. Empty disables revalidation.
	Refresh string `yaml:"refresh"`
}

// ServerConfig configures the HTTP render server.
type ServerConfig struct {
	// Addr is the render server listen address. Default: ":8080".
	Addr string `yaml:"addr"`

	// MetricsAddr is the Prometheus metrics listen address. Empty disables
	// the separate metrics server; /metrics is then served on Addr.
	MetricsAddr string `yaml:"metrics_addr"`

	// Watch reloads templates when files below Sources.Dir change.
	Watch bool `yaml:"watch"`

	// ShutdownTimeout bounds graceful shutdown. Default: "10s".
	ShutdownTimeout string `yaml:"shutdown_timeout"`

	// History is the number of recent diagnostics served on /diagnostics.
	// Zero uses the default of 100; a negative value disables the endpoint.
	History int `yaml:"history"`
}
