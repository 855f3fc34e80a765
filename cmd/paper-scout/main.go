// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paper-scout CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/internal/secrets"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from .secrets/ at startup.
	loadedSecrets map[string]string

	// appConfig is loaded once in PersistentPreRunE and copied into each
	// command; commands apply their own flags to the copy.
	appConfig types.Config

	logger = logging.Discard()
)

// rootCmd is the base command for the paper-scout CLI.
var rootCmd = &cobra.Command{
	Use:   "paper-scout",
	Short: "Find relevant arXiv papers with language-model query expansion and re-ranking",
	Long: `paper-scout expands a research query into related keywords with a language
model, searches arXiv for each keyword, and asks the model to score every
candidate paper for relevance. The highest-scoring papers are printed with a
one-sentence justification.

Use "search" for a one-shot run, "expand" to see the keywords only, and
"tui" to pick keywords interactively before searching.

The API key is read from OPENAI_API_KEY / ANTHROPIC_API_KEY (or
PAPER_SCOUT_LLM_API_KEY), or from .secrets/openai-api-key and
.secrets/anthropic-api-key.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := types.DefaultConfig()
		if err := viper.Unmarshal(&cfg); err != nil {
			return fmt.Errorf("%w: decoding configuration: %w", types.ErrConfiguration, err)
		}
		appConfig = cfg
		logger = logging.New(os.Stderr, cfg.Log)

		s, err := secrets.Load(secrets.DefaultDir, logger)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			logger.Info("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: paper-scout.yaml in . or ~/.config/paper-scout)")
	pf.String("provider", "", "language-model provider: openai or anthropic")
	pf.String("model", "", "language-model identifier")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log encoding: text or json")

	bindFlag("llm.provider", "provider")
	bindFlag("llm.model", "model")
	bindFlag("log.level", "log-level")
	bindFlag("log.format", "log-format")
}

func bindFlag(key, flag string) {
	if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paper-scout")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paper-scout"))
		}
	}

	setDefaults(viper.GetViper(), types.DefaultConfig())

	viper.SetEnvPrefix("PAPER_SCOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so that environment variables
// reach viper.Unmarshal even when no config file sets the key.
func setDefaults(v *viper.Viper, cfg types.Config) {
	v.SetDefault("llm.provider", string(cfg.LLM.Provider))
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.timeout", cfg.LLM.Timeout)
	v.SetDefault("llm.user_agent", cfg.LLM.UserAgent)
	v.SetDefault("llm.max_tokens", cfg.LLM.MaxTokens)
	v.SetDefault("llm.temperature", cfg.LLM.Temperature)
	v.SetDefault("llm.max_retries", cfg.LLM.MaxRetries)

	v.SetDefault("search.base_url", cfg.Search.BaseURL)
	v.SetDefault("search.timeout", cfg.Search.Timeout)
	v.SetDefault("search.user_agent", cfg.Search.UserAgent)
	v.SetDefault("search.requests_per_second", cfg.Search.RequestsPerSecond)
	v.SetDefault("search.burst", cfg.Search.Burst)
	v.SetDefault("search.max_retries", cfg.Search.MaxRetries)
	v.SetDefault("search.breaker_failures", cfg.Search.BreakerFailures)
	v.SetDefault("search.breaker_cooldown", cfg.Search.BreakerCooldown)

	v.SetDefault("pipeline.max_results_per_term", cfg.Pipeline.MaxResultsPerTerm)
	v.SetDefault("pipeline.top_n", cfg.Pipeline.TopN)
	v.SetDefault("pipeline.concurrency", cfg.Pipeline.Concurrency)
	v.SetDefault("pipeline.include_query", cfg.Pipeline.IncludeQuery)
	v.SetDefault("pipeline.strict_expansion", cfg.Pipeline.StrictExpansion)
	v.SetDefault("pipeline.summary_chars", cfg.Pipeline.SummaryChars)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Debug("command failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
