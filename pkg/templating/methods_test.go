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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		name string
		args []interface{}
		want interface{}
	}{
		{"markup", []interface{}{`<a href="x">&</a>`}, "&lt;a href=&#34;x&#34;&gt;&amp;&lt;/a&gt;"},
		{"number", []interface{}{float64(3)}, "3"},
		{"nil", []interface{}{nil}, ""},
		{"no args", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EscapeHTML(tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGlobMatch(t *testing.T) {
	tests := []struct {
		name    string
		args    []interface{}
		want    interface{}
		wantErr string
	}{
		{
			name: "interface list",
			args: []interface{}{[]interface{}{"sidebar-a", "header", "sidebar-b", 3}, "sidebar-*"},
			want: []interface{}{"sidebar-a", "sidebar-b"},
		},
		{
			name: "string list",
			args: []interface{}{[]string{"a.html", "b.txt"}, "*.html"},
			want: []interface{}{"a.html"},
		},
		{
			name: "no match",
			args: []interface{}{[]string{"a"}, "b?"},
			want: []interface{}{},
		},
		{
			name:    "missing pattern",
			args:    []interface{}{[]string{"a"}},
			wantErr: "list and pattern arguments required",
		},
		{
			name:    "not a list",
			args:    []interface{}{"a", "*"},
			wantErr: "input must be a list",
		},
		{
			name:    "invalid pattern",
			args:    []interface{}{[]string{"a"}, "["},
			wantErr: "invalid pattern",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GlobMatch(tt.args...)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBase64(t *testing.T) {
	encoded, err := B64Encode("hello")
	require.NoError(t, err)
	assert.Equal(t, "aGVsbG8=", encoded)

	decoded, err := B64Decode(encoded)
	require.NoError(t, err)
	assert.Equal(t, "hello", decoded)

	_, err = B64Decode("not base64!")
	assert.Error(t, err)

	_, err = B64Decode(42)
	assert.Error(t, err)

	_, err = B64Encode()
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	got, err := JSON(map[string]interface{}{"b": 1, "a": []interface{}{"x", true}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["x",true],"b":1}`, got)

	got, err = JSON()
	require.NoError(t, err)
	assert.Equal(t, "undefined", got)

	_, err = JSON(make(chan int))
	assert.Error(t, err)
}

func TestEngine_MethodsFromTemplates(t *testing.T) {
	engine := New(WithStandardMethods())

	render := engine.DefineAnonymous(
		`<% $forEach(globMatch(ids, 'side*'), function(id){ %>[<%= id %>]<% }) %><%= b64decode('aGk=') %>`, false)

	assert.Equal(t, "[sidea][sideb]hi", render(map[string]any{
		"ids": []string{"sidea", "top", "sideb"},
	}))
}
