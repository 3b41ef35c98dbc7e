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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"arttemplate/pkg/templating"
)

func newCompileCmd(global *globalFlags) *cobra.Command {
	var (
		tmpl      templateFlags
		variables bool
	)

	cmd := &cobra.Command{
		Use:   "compile <file|id>",
		Short: "Print the render function generated for a template",
		Long: `Compile a template file, or a template id resolved through the configured
sources, and print the generated render function.

Example usage:
  arttemplate compile page.html
  arttemplate compile page.html --debug --variables`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if err := tmpl.apply(cfg); err != nil {
				return err
			}

			setup, err := buildEngine(cfg, newLogger(cmd, cfg))
			if err != nil {
				return err
			}

			source, err := loadSource(setup.chain, args[0])
			if err != nil {
				return err
			}

			unit, err := setup.engine.Compile(source, cfg.Template.Debug)
			if err != nil {
				d := templating.NewSyntaxDiagnostic(args[0], source, err)
				_, _ = io.WriteString(cmd.ErrOrStderr(), templating.FormatDiagnostic(d))
				return errTemplateFailed
			}

			out := cmd.OutOrStdout()
			program := unit.Program()
			if variables {
				for _, b := range program.Bindings {
					_, _ = fmt.Fprintf(out, "%s = %s\n", b.Name, b.Expr)
				}
				return nil
			}
			_, err = fmt.Fprintln(out, program.Function())
			return err
		},
	}

	tmpl.register(cmd)
	cmd.Flags().BoolVar(&variables, "variables", false,
		"Print the bound template variables instead of the function")

	return cmd
}

// loadSource reads target as a file when one exists at that path and resolves
// it through loader otherwise.
func loadSource(loader templating.Loader, target string) (string, error) {
	source, err := os.ReadFile(target)
	if err == nil {
		return string(source), nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to read template: %w", err)
	}
	return loader.Load(target)
}
