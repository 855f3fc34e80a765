// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package expand turns a user's query into related search terms with one
// language-model call.
package expand

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/pdiddy/paper-scout/internal/llm"
	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// Number of keywords requested from the model.
const (
	MinTerms = 5
	MaxTerms = 7
)

// Expander asks a language model for keywords related to a query.
type Expander struct {
	model llm.Model
	log   *slog.Logger
}

// New returns an Expander backed by model.
func New(model llm.Model, log *slog.Logger) *Expander {
	if log == nil {
		log = logging.Discard()
	}
	return &Expander{model: model, log: log}
}

// Expand returns the trimmed, non-empty, de-duplicated keywords the model
// suggests for query. It never returns an empty list without an error; every
// failure wraps types.ErrExpansion.
func (e *Expander) Expand(ctx context.Context, query string) ([]string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", types.ErrExpansion)
	}

	prompt, err := renderPrompt(query, MinTerms, MaxTerms)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering prompt: %w", types.ErrExpansion, err)
	}

	raw, err := e.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrExpansion, err)
	}

	terms := ParseTerms(raw)
	if len(terms) == 0 {
		return nil, fmt.Errorf("%w: no keywords in model response %q", types.ErrExpansion, truncate(raw, 120))
	}

	e.log.Debug("query expanded", "query", query, "terms", terms)
	if len(terms) < MinTerms || len(terms) > MaxTerms {
		e.log.Info("model returned unexpected keyword count", "want_min", MinTerms, "want_max", MaxTerms, "got", len(terms))
	}
	return terms, nil
}

// ParseTerms splits a comma- or newline-delimited model response into
// keywords. Each segment is trimmed of whitespace, wrapping quotes, list
// bullets and numbering; empty segments are dropped and duplicates
// (compared case-insensitively) keep their first spelling.
func ParseTerms(raw string) []string {
	segments := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	seen := make(map[string]bool, len(segments))
	terms := make([]string, 0, len(segments))
	for _, seg := range segments {
		term := cleanTerm(seg)
		if term == "" {
			continue
		}
		key := strings.ToLower(term)
		if seen[key] {
			continue
		}
		seen[key] = true
		terms = append(terms, term)
	}
	return terms
}

// cleanTerm strips decoration the model sometimes adds around a keyword:
// "1. foo", "- foo", "* foo", "\"foo\"", "`foo`", "foo.".
func cleanTerm(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "-*•")
	s = stripNumbering(strings.TrimSpace(s))
	s = strings.Trim(s, "\"'`“”‘’")
	s = strings.TrimRight(s, ".;")
	return strings.Join(strings.Fields(s), " ")
}

// stripNumbering removes a leading list ordinal such as "3." or "3)".
func stripNumbering(s string) string {
	i := 0
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if i == 0 || i >= len(s) || (s[i] != '.' && s[i] != ')') {
		return s
	}
	if i+1 < len(s) && s[i+1] != ' ' {
		return s
	}
	return strings.TrimSpace(s[i+1:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
