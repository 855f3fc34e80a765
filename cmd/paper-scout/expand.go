// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-scout/internal/pipeline"
)

var expandCmd = &cobra.Command{
	Use:   "expand <query>",
	Short: "Print the search terms the language model suggests for a query",
	Long: `Expand runs only the first pipeline step: the query is sent to the
language model, which suggests related technical keywords. The terms are
printed one per line, the query itself first unless --no-original-query is
set. Nothing is searched.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExpand,
}

func runExpand(cmd *cobra.Command, args []string) error {
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

	exp, err := p.Expand(cmd.Context(), query)
	if err != nil {
		return err
	}

	switch format {
	case pipeline.FormatJSON:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(exp)
	case pipeline.FormatYAML:
		return yaml.NewEncoder(os.Stdout).Encode(exp)
	default:
		for _, t := range exp.Terms {
			fmt.Println(t)
		}
		return nil
	}
}

func init() {
	expandCmd.Flags().Bool("no-original-query", false, "omit the query itself from the printed terms")
	expandCmd.Flags().Bool("strict-expansion", false, "fail when query expansion fails instead of printing the query alone")
	expandCmd.Flags().String("format", pipeline.FormatText, "output format: text, json or yaml")
	expandCmd.Flags().BoolP("quiet", "q", false, "suppress progress output")

	rootCmd.AddCommand(expandCmd)
}
