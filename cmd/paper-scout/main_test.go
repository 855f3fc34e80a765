package main

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/pkg/types"
)

func TestSearchCmdRequiresQuery(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"search"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestSearchCmdFlags(t *testing.T) {
	for _, name := range []string{"max-results-per-term", "top-n", "concurrency", "no-original-query", "strict-expansion", "format", "quiet"} {
		assert.NotNil(t, searchCmd.Flags().Lookup(name), "flag %s", name)
	}
	assert.Equal(t, "text", searchCmd.Flags().Lookup("format").DefValue)
}

func TestSubcommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"search", "expand", "tui", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestApplyPipelineFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x"}
	addPipelineFlags(cmd)
	require.NoError(t, cmd.ParseFlags([]string{"--top-n", "3", "--no-original-query", "--concurrency=4"}))

	cfg := types.DefaultConfig().Pipeline
	applyPipelineFlags(cmd, &cfg)
	assert.Equal(t, 3, cfg.TopN)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 5, cfg.MaxResultsPerTerm, "unset flag keeps configured value")
	assert.False(t, cfg.IncludeQuery)
	assert.False(t, cfg.StrictExpansion)
}

func TestCheckFormat(t *testing.T) {
	assert.NoError(t, checkFormat("json"))
	err := checkFormat("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "xml"`)
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("PAPER_SCOUT_PIPELINE_TOP_N", "9")
	t.Setenv("PAPER_SCOUT_LLM_PROVIDER", "anthropic")
	t.Setenv("PAPER_SCOUT_SEARCH_BREAKER_COOLDOWN", "45s")
	t.Setenv("PAPER_SCOUT_LLM_API_KEY", "sk-env")

	v := viper.New()
	setDefaults(v, types.DefaultConfig())
	v.SetEnvPrefix("PAPER_SCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := types.DefaultConfig()
	require.NoError(t, v.Unmarshal(&cfg))
	assert.Equal(t, 9, cfg.Pipeline.TopN)
	assert.Equal(t, types.ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, 45*time.Second, cfg.Search.BreakerCooldown)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout, "squashed HTTP settings keep defaults")
	assert.NoError(t, cfg.Validate())
}

func TestNewPipelineMissingKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")
	old := loadedSecrets
	loadedSecrets = map[string]string{}
	defer func() { loadedSecrets = old }()

	_, err := newPipeline(types.DefaultConfig(), io.Discard, logging.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestNewPipelineInvalidConfig(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.LLM.APIKey = "sk-test"
	cfg.Pipeline.TopN = 0

	_, err := newPipeline(cfg, io.Discard, logging.Discard())
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrConfiguration))
	assert.Contains(t, err.Error(), "pipeline.topn must be >= 1")
}

func TestNewPipeline(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.LLM.APIKey = "sk-test"

	p, err := newPipeline(cfg, io.Discard, logging.Discard())
	require.NoError(t, err)
	opts := p.DefaultOptions()
	assert.Equal(t, 5, opts.TopN)
	assert.Equal(t, 5, opts.MaxResultsPerTerm)
}
