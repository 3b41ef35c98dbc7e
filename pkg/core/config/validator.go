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
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"arttemplate/pkg/templating"
)

// ValidateStructure checks a loaded configuration for values that would make
// the engine or the server misbehave.
func ValidateStructure(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if err := validateTemplateConfig(&cfg.Template); err != nil {
		return fmt.Errorf("template: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging: %w", err)
	}

	if err := validateSourcesConfig(&cfg.Sources); err != nil {
		return fmt.Errorf("sources: %w", err)
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if cfg.Server.Watch && cfg.Sources.Dir == "" {
		return fmt.Errorf("server: watch requires sources.dir")
	}

	for id := range cfg.Templates {
		if id == "" {
			return fmt.Errorf("templates: template id cannot be empty")
		}
	}

	return nil
}

// validateTemplateConfig validates the tags and post-processors.
func validateTemplateConfig(tc *TemplateConfig) error {
	if tc.OpenTag == "" {
		return fmt.Errorf("open_tag cannot be empty")
	}
	if tc.CloseTag == "" {
		return fmt.Errorf("close_tag cannot be empty")
	}
	if tc.OpenTag == tc.CloseTag {
		return fmt.Errorf("open_tag and close_tag cannot be the same (%q)", tc.OpenTag)
	}
	if strings.TrimSpace(tc.OpenTag) != tc.OpenTag || strings.TrimSpace(tc.CloseTag) != tc.CloseTag {
		return fmt.Errorf("tags cannot start or end with whitespace")
	}

	if _, err := templating.NewPostProcessors(tc.PostProcessors); err != nil {
		return err
	}

	return nil
}

// validateLoggingConfig validates the logging configuration.
func validateLoggingConfig(lc *LoggingConfig) error {
	switch strings.ToUpper(lc.Level) {
	case "ERROR", "WARNING", "WARN", "INFO", "DEBUG":
	default:
		return fmt.Errorf("level must be ERROR, WARNING, INFO or DEBUG, got %q", lc.Level)
	}

	switch lc.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", lc.Format)
	}

	return nil
}

// validateSourcesConfig validates the template sources.
func validateSourcesConfig(sc *SourcesConfig) error {
	if sc.Extension != "" && !strings.HasPrefix(sc.Extension, ".") {
		return fmt.Errorf("extension must start with '.', got %q", sc.Extension)
	}
	if sc.Extension != "" && filepath.Base(sc.Extension) != sc.Extension {
		return fmt.Errorf("extension cannot contain a path separator, got %q", sc.Extension)
	}
	if sc.Preload && sc.Dir == "" {
		return fmt.Errorf("preload requires dir")
	}

	if sc.URL != "" {
		u, err := url.Parse(sc.URL)
		if err != nil {
			return fmt.Errorf("url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("url must use http or https, got %q", sc.URL)
		}
	}
	if sc.URL == "" && (sc.Auth != nil || sc.Timeout != "" || sc.Refresh != "") {
		return fmt.Errorf("auth, timeout and refresh require url")
	}
	if sc.Auth != nil {
		switch sc.Auth.Type {
		case "basic", "bearer", "header":
		default:
			return fmt.Errorf("auth type must be basic, bearer or header, got %q", sc.Auth.Type)
		}
	}
	if err := validateDuration("timeout", sc.Timeout); err != nil {
		return err
	}
	if err := validateDuration("refresh", sc.Refresh); err != nil {
		return err
	}

	return nil
}

// validateServerConfig validates the server configuration.
func validateServerConfig(sc *ServerConfig) error {
	if sc.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if sc.MetricsAddr != "" && sc.MetricsAddr == sc.Addr {
		return fmt.Errorf("addr and metrics_addr cannot be the same (%s)", sc.Addr)
	}
	return validateDuration("shutdown_timeout", sc.ShutdownTimeout)
}

// validateDuration checks that value is empty or a positive duration.
func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return nil
}
