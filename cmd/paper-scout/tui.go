// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Pick search terms interactively in the terminal",
	Long: `Tui opens an interactive form. Type a query and press enter to expand it
into search terms. All terms start selected; toggle them with space, adjust
the number of results with + and -, then press ctrl+s to search with the
selected terms. Results appear below the form.

Controls:
  enter      - Expand query (query box) / search (term list)
  tab        - Switch between query box and term list
  ↑/k, ↓/j   - Move in the term list
  space      - Toggle term
  + / -      - Top N (1-20)
  ctrl+s     - Search with selected terms
  pgup/pgdn  - Scroll results
  esc        - Quit

Logs would corrupt the screen, so they are dropped unless --log-file is set.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg := appConfig
	applyPipelineFlags(cmd, &cfg.Pipeline)

	log := logging.Discard()
	if path, _ := cmd.Flags().GetString("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		log = logging.New(f, cfg.Log)
	}

	p, err := newPipeline(cfg, io.Discard, log)
	if err != nil {
		return err
	}
	return tui.Run(cmd.Context(), p, p.DefaultOptions())
}

func init() {
	addPipelineFlags(tuiCmd)
	tuiCmd.Flags().String("log-file", "", "append structured logs to this file")

	rootCmd.AddCommand(tuiCmd)
}
