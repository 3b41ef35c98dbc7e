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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is the encoding of a data document.
type Format string

const (
	// FormatJSON decodes JSON.
	FormatJSON Format = "json"

	// FormatYAML decodes YAML. JSON documents are valid YAML too.
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension. Unknown extensions
// are read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// FormatForContentType picks the format from a Content-Type header. Empty
// and unknown types are read as JSON.
func FormatForContentType(contentType string) Format {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON
	}
	switch mediaType {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeData decodes one document from r into plain Go values: maps with
// string keys, slices, strings, numbers, bools and nil. An empty document
// yields nil.
func DecodeData(r io.Reader, format Format) (any, error) {
	var data any
	var err error

	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&data)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&data)
	default:
		return nil, fmt.Errorf("unknown data format %q", format)
	}

	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s data: %w", format, err)
	}
	return data, nil
}
