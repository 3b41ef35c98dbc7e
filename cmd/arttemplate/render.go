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

	"arttemplate/pkg/core/config"
	"arttemplate/pkg/server"
	"arttemplate/pkg/templating"
)

// errTemplateFailed is returned after the diagnostic was written to stderr.
var errTemplateFailed = errors.New("template failed")

// templateFlags override the template section of the configuration.
type templateFlags struct {
	debug    bool
	openTag  string
	closeTag string
}

func (f *templateFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.debug, "debug", false,
		"Compile with line tracking so faults report their template line")
	cmd.Flags().StringVar(&f.openTag, "open-tag", "",
		"Opening delimiter of logic fragments (default \"<%\")")
	cmd.Flags().StringVar(&f.closeTag, "close-tag", "",
		"Closing delimiter of logic fragments (default \"%>\")")
}

func (f *templateFlags) apply(cfg *config.Config) error {
	if f.debug {
		cfg.Template.Debug = true
	}
	if f.openTag != "" {
		cfg.Template.OpenTag = f.openTag
	}
	if f.closeTag != "" {
		cfg.Template.CloseTag = f.closeTag
	}
	if err := config.ValidateStructure(cfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}
	return nil
}

func newRenderCmd(global *globalFlags) *cobra.Command {
	var (
		tmpl     templateFlags
		dataFile string
	)

	cmd := &cobra.Command{
		Use:   "render <file|id>",
		Short: "Render a template",
		Long: `Render a template file, or a template id resolved through the configured
sources, and print the output.

Data is read from --data; files ending in .json are decoded as JSON and
everything else as YAML. Use "-" to read YAML or JSON from stdin.

Example usage:
  arttemplate render page.html --data data.yaml
  arttemplate render partials/footer --config arttemplate.yaml
  echo '{"name": "world"}' | arttemplate render hello.html --data -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.load()
			if err != nil {
				return err
			}
			if err := tmpl.apply(cfg); err != nil {
				return err
			}

			data, err := readData(cmd, dataFile)
			if err != nil {
				return err
			}

			setup, err := buildEngine(cfg, newLogger(cmd, cfg),
				templating.WithReporter(templating.NewWriterReporter(cmd.ErrOrStderr())))
			if err != nil {
				return err
			}

			out, err := renderTarget(setup.engine, args[0], data, cfg.Template.Debug)
			if err != nil {
				return err
			}
			if out == templating.Sentinel {
				return errTemplateFailed
			}

			_, err = io.WriteString(cmd.OutOrStdout(), out)
			return err
		},
	}

	tmpl.register(cmd)
	cmd.Flags().StringVarP(&dataFile, "data", "d", "",
		"JSON or YAML file with the template data (\"-\" for stdin)")

	return cmd
}

// renderTarget renders target as a file when one exists at that path and as
// a template id otherwise.
func renderTarget(engine *templating.Engine, target string, data any, debug bool) (string, error) {
	source, err := os.ReadFile(target)
	switch {
	case err == nil:
		return engine.Define(target, string(source), debug)(data), nil
	case errors.Is(err, os.ErrNotExist):
		return engine.Render(target, data), nil
	default:
		return "", fmt.Errorf("failed to read template: %w", err)
	}
}

func readData(cmd *cobra.Command, path string) (any, error) {
	switch path {
	case "":
		return nil, nil
	case "-":
		return server.DecodeData(cmd.InOrStdin(), server.FormatYAML)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	return server.DecodeData(f, server.FormatForPath(path))
}
