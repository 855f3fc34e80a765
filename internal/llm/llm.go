// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm sends single-turn prompts to a hosted language model. The
// expander and the re-ranker depend only on the Model interface so tests can
// supply a canned responder.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// ErrTruncated is returned when the reply stopped at the max_tokens limit.
// A cut-off reply is never handed to a caller as if it were complete.
var ErrTruncated = errors.New("completion truncated at max_tokens")

// Model completes one prompt and returns the raw text of the reply.
type Model interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// New builds the backend selected by cfg.Provider. cfg.APIKey must already be
// resolved; an empty key is an ErrConfiguration.
func New(cfg types.LLMConfig, log *slog.Logger) (Model, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: language-model API key is empty", types.ErrConfiguration)
	}
	if log == nil {
		log = logging.Discard()
	}
	client := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case types.ProviderOpenAI:
		return &OpenAIBackend{cfg: cfg, client: client, log: log}, nil
	case types.ProviderAnthropic:
		return &ClaudeBackend{cfg: cfg, client: client, log: log}, nil
	default:
		return nil, fmt.Errorf("%w: unknown language-model provider %q", types.ErrConfiguration, cfg.Provider)
	}
}

// endpoint joins the configured base URL, or the provider default, with path.
func endpoint(base, def, path string) string {
	if base == "" {
		base = def
	}
	return strings.TrimRight(base, "/") + path
}

// statusError reads a bounded excerpt of a failed response body.
func statusError(provider string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s API returned %d: %s", provider, resp.StatusCode, strings.TrimSpace(string(body)))
}
