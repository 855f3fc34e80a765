// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "errors"

// Error kinds reported by the pipeline stages. Stages wrap the underlying
// cause so callers can test the kind with errors.Is.
var (
	// ErrConfiguration reports a missing or invalid API key or setting.
	// It is raised at startup, before any pipeline run.
	ErrConfiguration = errors.New("configuration error")

	// ErrExpansion reports a language-model or parse failure while
	// expanding the query.
	ErrExpansion = errors.New("query expansion failed")

	// ErrSearch reports a transport failure contacting the search API.
	ErrSearch = errors.New("search failed")

	// ErrRerank reports a language-model or parse failure while re-ranking.
	ErrRerank = errors.New("re-ranking failed")
)
