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
	"arttemplate/pkg/compiler"
)

// ValidateTemplate compiles source in debug mode without running it and
// reports sandbox violations and syntax errors as a *CompilationError. methods
// may be nil; names registered there resolve to methods instead of data.
func ValidateTemplate(name, source string, opts compiler.Options, methods *compiler.Registry) error {
	if _, err := compiler.New(opts, methods).Compile(source, true); err != nil {
		return NewCompilationError(name, source, err)
	}
	return nil
}
