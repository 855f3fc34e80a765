// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pdiddy/paper-scout/internal/expand"
	"github.com/pdiddy/paper-scout/internal/llm"
	"github.com/pdiddy/paper-scout/internal/pipeline"
	"github.com/pdiddy/paper-scout/internal/rerank"
	"github.com/pdiddy/paper-scout/internal/search"
	"github.com/pdiddy/paper-scout/internal/secrets"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// addPipelineFlags registers the flags shared by the commands that run the
// pipeline. Unset flags leave the configured value alone.
func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int("max-results-per-term", 0, "papers fetched from arXiv for each search term (default from config: 5)")
	f.Int("top-n", 0, "number of ranked papers to show (default from config: 5)")
	f.Int("concurrency", 0, "search terms queried in parallel (default from config: 1)")
	f.Bool("no-original-query", false, "search only the expanded terms, not the query itself")
	f.Bool("strict-expansion", false, "fail when query expansion fails instead of searching with the query alone")
}

// applyPipelineFlags copies the flags the user set onto cfg.
func applyPipelineFlags(cmd *cobra.Command, cfg *types.PipelineConfig) {
	f := cmd.Flags()
	if f.Changed("max-results-per-term") {
		cfg.MaxResultsPerTerm, _ = f.GetInt("max-results-per-term")
	}
	if f.Changed("top-n") {
		cfg.TopN, _ = f.GetInt("top-n")
	}
	if f.Changed("concurrency") {
		cfg.Concurrency, _ = f.GetInt("concurrency")
	}
	if noQuery, _ := f.GetBool("no-original-query"); noQuery {
		cfg.IncludeQuery = false
	}
	if strict, _ := f.GetBool("strict-expansion"); strict {
		cfg.StrictExpansion = true
	}
}

// newPipeline validates cfg, resolves the API key and wires the stages.
// Every failure here is an ErrConfiguration raised before any network call.
func newPipeline(cfg types.Config, progress io.Writer, log *slog.Logger) (*pipeline.Pipeline, error) {
	key, err := secrets.APIKey(cfg.LLM.Provider, cfg.LLM.APIKey, loadedSecrets, os.Getenv)
	if err != nil {
		return nil, err
	}
	cfg.LLM.APIKey = key

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	model, err := llm.New(cfg.LLM, log)
	if err != nil {
		return nil, err
	}
	log.Debug("pipeline configured",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"max_results_per_term", cfg.Pipeline.MaxResultsPerTerm,
		"top_n", cfg.Pipeline.TopN,
		"concurrency", cfg.Pipeline.Concurrency,
	)

	return pipeline.New(
		expand.New(model, log),
		search.NewClient(cfg.Search, log),
		rerank.New(model, cfg.Pipeline.SummaryChars, log),
		cfg.Pipeline,
		progress,
		log,
	), nil
}

// checkFormat rejects an unknown --format before any work is done.
func checkFormat(format string) error {
	if !slices.Contains(pipeline.Formats, format) {
		return fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(pipeline.Formats, ", "))
	}
	return nil
}

// terminalWidth returns the width of f when it is a terminal, else 0.
func terminalWidth(f *os.File) int {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	w, _, err := term.GetSize(fd)
	if err != nil {
		return 0
	}
	return w
}

// progressWriter returns where progress lines go: stderr, or nowhere when
// --quiet is set.
func progressWriter(cmd *cobra.Command) io.Writer {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return io.Discard
	}
	return os.Stderr
}
