// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search retrieves candidate papers for a single term from the arXiv
// API. One call to Search issues at most one request (plus retries on 429/503);
// there is no pagination and no caching.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// Searcher returns up to maxResults candidates for term. An empty slice with
// a nil error means the term matched nothing. Errors wrap types.ErrSearch.
type Searcher interface {
	Search(ctx context.Context, term string, maxResults int) ([]types.Candidate, error)
}

// Client searches arXiv. It is safe for concurrent use: the rate limiter and
// the circuit breaker are shared by every call so parallel term searches
// still respect the API's pacing.
type Client struct {
	cfg     types.SearchConfig
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	log     *slog.Logger
}

var _ Searcher = (*Client)(nil)

// errTransport marks failures that say arXiv is unreachable or unhealthy.
// Only these count toward opening the circuit breaker; a rejected query
// does not.
var errTransport = errors.New("arXiv unreachable")

// NewClient builds an arXiv client from cfg.
func NewClient(cfg types.SearchConfig, log *slog.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	c := &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), max(cfg.Burst, 1)),
		log:     log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "arxiv",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= max(cfg.BreakerFailures, 1)
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !errors.Is(err, errTransport)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// Search queries arXiv for term and maps each entry to a Candidate tagged
// with term as its source.
func (c *Client) Search(ctx context.Context, term string, maxResults int) ([]types.Candidate, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, fmt.Errorf("%w: empty search term", types.ErrSearch)
	}
	if maxResults < 1 {
		return nil, fmt.Errorf("%w: max results must be at least 1, got %d", types.ErrSearch, maxResults)
	}

	// Fail fast without spending a rate-limit token.
	if c.breaker.State() == gobreaker.StateOpen {
		return nil, fmt.Errorf("%w: %q: %w", types.ErrSearch, term, gobreaker.ErrOpenState)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %q: waiting for rate limiter: %w", types.ErrSearch, term, err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, term, maxResults)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", types.ErrSearch, term, err)
	}

	results := out.([]types.Candidate)
	c.log.Debug("arxiv search", "term", term, "max_results", maxResults, "results", len(results))
	return results, nil
}

// BreakerOpen reports whether recent transport failures have opened the
// circuit breaker.
func (c *Client) BreakerOpen() bool {
	return c.breaker.State() == gobreaker.StateOpen
}
