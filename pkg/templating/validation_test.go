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

import (
	"errors"
	"strings"
	"testing"

	"arttemplate/pkg/compiler"
)

func TestValidateTemplate_Success(t *testing.T) {
	tests := []struct {
		name     string
		template string
	}{
		{
			name:     "simple template",
			template: "Hello <%= name %>!",
		},
		{
			name:     "template with loop",
			template: "<% for (var i = 0; i < items.length; i++) { %><%= items[i] %><% } %>",
		},
		{
			name:     "template with conditional",
			template: "<% if (enabled) { %>Active<% } else { %>Inactive<% } %>",
		},
		{
			name:     "template with include",
			template: "<%= include('header') %>body",
		},
		{
			name:     "empty template",
			template: "",
		},
		{
			name:     "plain text",
			template: "This is plain text with no template syntax",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemplate(tt.name, tt.template, compiler.DefaultOptions(), nil)
			if err != nil {
				t.Errorf("ValidateTemplate() error = %v, want nil", err)
			}
		})
	}
}

func TestValidateTemplate_InvalidSyntax(t *testing.T) {
	tests := []struct {
		name     string
		template string
		wantErr  string
	}{
		{
			name:     "unclosed block",
			template: "<% if (enabled) { %>Active",
			wantErr:  "failed to compile template",
		},
		{
			name:     "sandboxed name",
			template: "<%= this %>",
			wantErr:  `Prohibit the use of the "this"`,
		},
		{
			name:     "methods parameter",
			template: "<% $methods.x = 1 %>",
			wantErr:  `Prohibit the use of the "$methods"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTemplate(tt.name, tt.template, compiler.DefaultOptions(), nil)
			if err == nil {
				t.Fatal("ValidateTemplate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("ValidateTemplate() error = %v, want containing %q", err, tt.wantErr)
			}

			var compErr *CompilationError
			if !errors.As(err, &compErr) {
				t.Fatalf("ValidateTemplate() error type = %T, want *CompilationError", err)
			}
			if compErr.TemplateName != tt.name {
				t.Errorf("TemplateName = %q, want %q", compErr.TemplateName, tt.name)
			}
		})
	}
}

func TestValidateTemplate_CustomTags(t *testing.T) {
	opts := compiler.Options{OpenTag: "{%", CloseTag: "%}"}

	if err := ValidateTemplate("custom", "{% if (a) { %}x{% } %}", opts, nil); err != nil {
		t.Errorf("ValidateTemplate() error = %v, want nil", err)
	}
	if err := ValidateTemplate("custom", "{% if (a) { %}x", opts, nil); err == nil {
		t.Error("ValidateTemplate() error = nil, want error for unclosed block")
	}
}
