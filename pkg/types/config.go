// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// HTTPConfig holds shared HTTP settings used by clients that make network requests.
type HTTPConfig struct {
	// Timeout bounds each outbound request.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-scout/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent" validate:"required"`
}

// LLMProvider identifies the hosted language-model API.
type LLMProvider string

const (
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
)

// LLMConfig holds settings for the language-model client used by the
// expander and the re-ranker.
type LLMConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Provider selects the API: openai or anthropic.
	Provider LLMProvider `json:"provider" yaml:"provider" mapstructure:"provider" validate:"oneof=openai anthropic"`

	// Model is the model identifier (e.g. "gpt-3.5-turbo").
	Model string `json:"model" yaml:"model" mapstructure:"model" validate:"required"`

	// BaseURL overrides the provider endpoint, for OpenAI-compatible gateways.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`

	// APIKey authenticates against the provider. It is resolved at startup
	// from the environment or .secrets/ and never written back out.
	APIKey string `json:"-" yaml:"-" mapstructure:"api_key"`

	// MaxTokens caps the completion length. A re-ranking reply needs about
	// 50 tokens per candidate, so the default covers some 80 candidates; a
	// reply cut off at the cap fails the run rather than ranking a fragment.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens" validate:"gte=1"`

	// Temperature is the sampling temperature (0 for deterministic output).
	Temperature float64 `json:"temperature" yaml:"temperature" mapstructure:"temperature" validate:"gte=0,lte=2"`

	// MaxRetries is the number of retries on HTTP 429/503.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`
}

// SearchConfig holds settings for the arXiv search client.
type SearchConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// BaseURL overrides the arXiv API endpoint.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url" validate:"omitempty,url"`

	// RequestsPerSecond paces calls to the API. arXiv asks for at most one
	// request every three seconds.
	RequestsPerSecond float64 `json:"requests_per_second" yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gt=0"`

	// Burst is the number of requests allowed back to back before pacing applies.
	Burst int `json:"burst" yaml:"burst" mapstructure:"burst" validate:"gte=1"`

	// MaxRetries is the number of retries on HTTP 429/503.
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// BreakerFailures is the number of consecutive transport failures that
	// opens the circuit breaker.
	BreakerFailures uint32 `json:"breaker_failures" yaml:"breaker_failures" mapstructure:"breaker_failures" validate:"gte=1"`

	// BreakerCooldown is how long the breaker stays open before a probe request.
	BreakerCooldown time.Duration `json:"breaker_cooldown" yaml:"breaker_cooldown" mapstructure:"breaker_cooldown" validate:"gt=0"`
}

// PipelineConfig holds settings for one expand → fetch → re-rank run.
type PipelineConfig struct {
	// MaxResultsPerTerm is the number of candidates requested per term.
	MaxResultsPerTerm int `json:"max_results_per_term" yaml:"max_results_per_term" mapstructure:"max_results_per_term" validate:"gte=1,lte=2000"`

	// TopN is the number of ranked results returned.
	TopN int `json:"top_n" yaml:"top_n" mapstructure:"top_n" validate:"gte=1"`

	// Concurrency is the number of per-term searches in flight. 1 searches
	// the terms one at a time.
	Concurrency int `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency" validate:"gte=1,lte=16"`

	// IncludeQuery prepends the raw query to the expanded terms.
	IncludeQuery bool `json:"include_query" yaml:"include_query" mapstructure:"include_query"`

	// StrictExpansion aborts the run when expansion fails instead of
	// searching with the raw query alone.
	StrictExpansion bool `json:"strict_expansion" yaml:"strict_expansion" mapstructure:"strict_expansion"`

	// SummaryChars truncates each abstract embedded in the re-ranking prompt.
	// Zero keeps abstracts whole.
	SummaryChars int `json:"summary_chars" yaml:"summary_chars" mapstructure:"summary_chars" validate:"gte=0"`
}

// LogConfig selects the structured log level and encoding.
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" mapstructure:"format" validate:"oneof=text json"`
}

// Config groups all settings. It is loaded once at process start and passed
// by value into each component's constructor.
type Config struct {
	LLM      LLMConfig      `json:"llm" yaml:"llm" mapstructure:"llm"`
	Search   SearchConfig   `json:"search" yaml:"search" mapstructure:"search"`
	Pipeline PipelineConfig `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Log      LogConfig      `json:"log" yaml:"log" mapstructure:"log"`
}

const defaultUserAgent = "paper-scout/0.1"

// DefaultConfig returns the settings used when neither a config file, the
// environment, nor flags override them.
func DefaultConfig() Config {
	return Config{
		LLM: LLMConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   60 * time.Second,
				UserAgent: defaultUserAgent,
			},
			Provider:    ProviderOpenAI,
			Model:       "gpt-3.5-turbo",
			MaxTokens:   4096,
			Temperature: 0,
			MaxRetries:  3,
		},
		Search: SearchConfig{
			HTTPConfig: HTTPConfig{
				Timeout:   30 * time.Second,
				UserAgent: defaultUserAgent,
			},
			RequestsPerSecond: 1.0 / 3.0,
			Burst:             1,
			MaxRetries:        2,
			BreakerFailures:   3,
			BreakerCooldown:   30 * time.Second,
		},
		Pipeline: PipelineConfig{
			MaxResultsPerTerm: 5,
			TopN:              5,
			Concurrency:       1,
			IncludeQuery:      true,
			SummaryChars:      600,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

var validate = validator.New()

// Validate checks every setting against its constraints. The returned error
// wraps ErrConfiguration and lists each offending field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, formatFieldError(fe))
	}
	return fmt.Errorf("%w: %s", ErrConfiguration, strings.Join(msgs, "; "))
}

// formatFieldError renders one validation failure with its dotted field path
// (e.g. "pipeline.topn must be >= 1").
func formatFieldError(fe validator.FieldError) string {
	field := fieldPath(fe.StructNamespace())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be > %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be >= %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be <= %s", field, fe.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// fieldPath converts "Config.Pipeline.TopN" into "pipeline.topn". The embedded
// HTTPConfig level is dropped so paths match the config file keys' nesting.
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 0 && parts[0] == "Config" {
		parts = parts[1:]
	}
	out := parts[:0]
	for _, p := range parts {
		if p == "HTTPConfig" {
			continue
		}
		out = append(out, strings.ToLower(p))
	}
	return strings.Join(out, ".")
}
