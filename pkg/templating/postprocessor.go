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
	"fmt"
)

// PostProcessor transforms rendered output before it is returned. Processors
// run in sequence, each receiving the output of the previous one. They do not
// run on Sentinel output.
type PostProcessor interface {
	// Process applies transformation to the input string.
	Process(input string) (string, error)
}

// PostProcessorType identifies the type of post-processor.
type PostProcessorType string

const (
	// PostProcessorTypeRegexReplace applies regex-based find/replace per line.
	PostProcessorTypeRegexReplace PostProcessorType = "regex_replace"

	// PostProcessorTypeTrimLines strips trailing whitespace from every line
	// and collapses runs of blank lines left behind by logic fragments.
	PostProcessorTypeTrimLines PostProcessorType = "trim_lines"
)

// PostProcessorConfig describes a post-processor in configuration files.
type PostProcessorConfig struct {
	// Type specifies which post-processor to use.
	Type PostProcessorType `yaml:"type" json:"type"`

	// Params contains type-specific configuration as key-value pairs.
	// For regex_replace:
	//   - pattern: Regular expression pattern to match (required)
	//   - replace: Replacement string (required)
	Params map[string]string `yaml:"params" json:"params"`
}

// NewPostProcessor creates a post-processor from its configuration.
func NewPostProcessor(config PostProcessorConfig) (PostProcessor, error) {
	switch config.Type {
	case PostProcessorTypeRegexReplace:
		pattern, ok := config.Params["pattern"]
		if !ok {
			return nil, fmt.Errorf("regex_replace processor requires 'pattern' parameter")
		}

		replace, ok := config.Params["replace"]
		if !ok {
			return nil, fmt.Errorf("regex_replace processor requires 'replace' parameter")
		}

		return NewRegexReplaceProcessor(pattern, replace)

	case PostProcessorTypeTrimLines:
		return TrimLinesProcessor{}, nil

	default:
		return nil, fmt.Errorf("unknown post-processor type: %s", config.Type)
	}
}

// NewPostProcessors creates the post-processors of a configuration list in
// order.
func NewPostProcessors(configs []PostProcessorConfig) ([]PostProcessor, error) {
	processors := make([]PostProcessor, 0, len(configs))
	for i, cfg := range configs {
		p, err := NewPostProcessor(cfg)
		if err != nil {
			return nil, fmt.Errorf("postprocessor %d: %w", i, err)
		}
		processors = append(processors, p)
	}
	return processors, nil
}
