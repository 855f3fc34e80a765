// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-scout/internal/pipeline"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Expand a query, search arXiv and print the most relevant papers",
	Long: `Search expands the query into related keywords with the language model,
fetches candidate papers from arXiv for every keyword (plus the query itself
unless --no-original-query is set), removes duplicates, and asks the model
to score each candidate from 0 to 10. The top N papers are printed with
their score and a one-sentence justification.

A keyword whose arXiv search fails contributes no papers; the run fails
only when every keyword fails. Progress goes to stderr.`,
	Example: `  paper-scout search "transformer attention mechanisms" --top-n 3
  paper-scout search "graph neural networks" --format json > results.json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	format, _ := cmd.Flags().GetString("format")
	if err := checkFormat(format); err != nil {
		return err
	}

	cfg := appConfig
	applyPipelineFlags(cmd, &cfg.Pipeline)

	p, err := newPipeline(cfg, progressWriter(cmd), logger)
	if err != nil {
		return err
	}

	res, err := p.Run(cmd.Context(), query, p.DefaultOptions())
	if err != nil {
		return err
	}
	return pipeline.Format(os.Stdout, res, format, terminalWidth(os.Stdout))
}

func init() {
	addPipelineFlags(searchCmd)
	searchCmd.Flags().String("format", pipeline.FormatText, "output format: text, json or yaml")
	searchCmd.Flags().BoolP("quiet", "q", false, "suppress progress output")

	rootCmd.AddCommand(searchCmd)
}
