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

// Package main provides the arttemplate command line tool.
//
// Subcommands:
//
//   - render: renders a template file or a configured template id with data
//     read from a JSON or YAML file
//   - compile: prints the render function generated for a template
//   - serve: runs the HTTP render server with metrics and optional directory
//     watching
//
// Configuration is read from the YAML file given with --config. Without it the
// defaults apply. --log-level overrides the configured level.
package main

import (
	"fmt"
	"log/slog"
	"os"

	_ "github.com/KimMachineGun/automemlimit"
	"github.com/spf13/cobra"

	"arttemplate/pkg/core/config"
	"arttemplate/pkg/core/logging"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "arttemplate",
		Short: "Compile and render <% %> templates",
		Long: `arttemplate compiles templates that mix literal text with <% %> logic
fragments into render functions and runs them against data.

Example usage:
  # Render a template file with YAML data
  arttemplate render page.html --data data.yaml

  # Show the generated function
  arttemplate compile page.html --debug

  # Serve templates from a directory
  arttemplate serve --config arttemplate.yaml`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "",
		"Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "",
		"Log level (DEBUG, INFO, WARN, ERROR); overrides the configuration")

	root.AddCommand(
		newRenderCmd(flags),
		newCompileCmd(flags),
		newServeCmd(flags),
	)

	return root
}

// load returns the configuration selected by the global flags.
func (f *globalFlags) load() (*config.Config, error) {
	cfg := config.Default()
	if f.configFile != "" {
		var err error
		cfg, err = config.LoadConfigFile(f.configFile)
		if err != nil {
			return nil, err
		}
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
	if err := config.ValidateStructure(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the logger of cfg writing to stderr.
func newLogger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
}
