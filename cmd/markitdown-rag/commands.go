// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	markitdown "github.com/nicholasgasior/markitdown-rag"
	"github.com/nicholasgasior/markitdown-rag/internal/ai"
	"github.com/nicholasgasior/markitdown-rag/internal/config"
	"github.com/nicholasgasior/markitdown-rag/internal/formats"
	"github.com/nicholasgasior/markitdown-rag/internal/pipeline"
	"github.com/nicholasgasior/markitdown-rag/internal/textnorm"
)

func newScanCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan <folder>",
		Short: "List the documents a folder conversion would process",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := a.collect(cmd.Context(), args, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, f := range files {
				marker := " "
				if _, err := os.Stat(pipeline.OutputPath(f, a.cfg.OutputDir)); err == nil {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %s\n", marker, f)
			}
			dimColor.Fprintf(out, "%d files (* already converted)\n", len(files))
			return nil
		},
	}
	addSelectionFlags(cmd)
	cmd.Flags().StringP("output-dir", "o", "", "output folder used to mark converted files")
	return cmd
}

func newFormatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List the supported format categories and their extensions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, c := range formats.Categories() {
				fmt.Fprintf(tw, "%s\t%s\n", c, strings.Join(formats.Extensions(c), " "))
			}
			return tw.Flush()
		},
	}
}

func newModelsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models the configured provider offers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := ai.ParseProvider(a.cfg.Provider); err != nil {
				return err
			}
			if a.cfg.APIKey() == "" {
				return fmt.Errorf("%w for %s", ai.ErrNoAPIKey, a.cfg.Provider)
			}

			s := newSpinner(cmd.ErrOrStderr(), "fetching models from "+a.cfg.Provider)
			s.Start()
			cfg := a.cfg.AIConfig()
			cfg.Logger = a.logger
			models := ai.ListAvailableModels(cmd.Context(), cfg)
			s.Stop()

			if len(models) == 0 {
				warnColor.Fprintln(cmd.OutOrStdout(), "no models available")
				return nil
			}
			for _, m := range models {
				fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		},
	}
	cmd.Flags().String("provider", "", "AI provider: openai or gemini")
	cmd.Flags().String("openai-key", "", "OpenAI API key")
	cmd.Flags().String("gemini-key", "", "Gemini API key")
	return cmd
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or create the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration with keys masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.cfg.Redacted().YAML()
			if err != nil {
				return err
			}
			if used := a.v.ConfigFileUsed(); used != "" {
				dimColor.Fprintf(cmd.OutOrStdout(), "# %s\n", used)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a configuration file holding the defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Name + ".yaml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			okColor.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

// newCatCmd prints the plain conversion of one document, without enrichment or frontmatter.
func newCatCmd(_ *app) *cobra.Command {
	var (
		output    string
		extension string
		charset   string
		keepURIs  bool
	)
	cmd := &cobra.Command{
		Use:   "cat [file]",
		Short: "Print the Markdown of one document, reading stdin when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []markitdown.Option
			if keepURIs {
				opts = append(opts, markitdown.WithKeepDataURIs(true))
			}
			m := markitdown.New(opts...)

			var (
				result *markitdown.DocumentConverterResult
				err    error
			)
			if len(args) == 0 {
				data, readErr := io.ReadAll(cmd.InOrStdin())
				if readErr != nil {
					return fmt.Errorf("read stdin: %w", readErr)
				}
				result, err = m.ConvertStream(bytes.NewReader(data), markitdown.StreamInfo{
					Extension: extension,
					Charset:   charset,
				})
			} else {
				result, err = m.ConvertFile(args[0])
			}
			if err != nil {
				return err
			}

			text := textnorm.Normalize(result.Markdown) + "\n"
			if output == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), text)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			return os.WriteFile(output, []byte(text), 0o644)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&output, "output", "o", "", "output file (default stdout)")
	f.StringVarP(&extension, "extension", "x", "", "file extension hint for stdin input")
	f.StringVarP(&charset, "charset", "c", "", "charset hint for text input")
	f.BoolVar(&keepURIs, "keep-data-uris", false, "keep base64 data URIs in the output")
	return cmd
}
