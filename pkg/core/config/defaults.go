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

package config

import (
	"time"

	"arttemplate/pkg/compiler"
)

const (
	// DefaultLogLevel is the default log level.
	DefaultLogLevel = "INFO"

	// DefaultLogFormat is the default log output format.
	DefaultLogFormat = "text"

	// DefaultExtension is the default template file extension.
	DefaultExtension = ".html"

	// DefaultAddr is the default render server address.
	DefaultAddr = ":8080"

	// DefaultShutdownTimeout is the default graceful shutdown timeout.
	DefaultShutdownTimeout = 10 * time.Second
)

// setDefaults applies default values to unset configuration fields.
func setDefaults(cfg *Config) {
	if cfg.Template.OpenTag == "" {
		cfg.Template.OpenTag = compiler.DefaultOpenTag
	}
	if cfg.Template.CloseTag == "" {
		cfg.Template.CloseTag = compiler.DefaultCloseTag
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLogLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLogFormat
	}

	if cfg.Sources.Extension == "" {
		cfg.Sources.Extension = DefaultExtension
	}

	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultAddr
	}
	// MetricsAddr stays empty: metrics are then served on Addr
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// CompilerOptions returns the compiler options of the template section.
func (t *TemplateConfig) CompilerOptions() compiler.Options {
	return compiler.Options{
		OpenTag:  t.OpenTag,
		CloseTag: t.CloseTag,
		Debug:    t.Debug,
	}
}

// GetShutdownTimeout returns the configured shutdown timeout or the default
// if not specified or invalid.
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	if s.ShutdownTimeout != "" {
		if d, err := time.ParseDuration(s.ShutdownTimeout); err == nil && d > 0 {
			return d
		}
	}
	return DefaultShutdownTimeout
}

// GetTimeout returns the request timeout for Sources.URL, or zero for the
// store default.
func (s *SourcesConfig) GetTimeout() time.Duration {
	if d, err := time.ParseDuration(s.Timeout); err == nil && d > 0 {
		return d
	}
	return 0
}

// GetRefresh returns the revalidation interval, or zero when disabled.
func (s *SourcesConfig) GetRefresh() time.Duration {
	if d, err := time.ParseDuration(s.Refresh); err == nil && d > 0 {
		return d
	}
	return 0
}
