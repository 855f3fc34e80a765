// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the paper-scout
// pipeline stages: candidates returned by the search client, ranked results
// produced by the re-ranker, configuration, and the error kinds each stage
// reports.
package types

import "time"

// Candidate is a paper record returned by the search API for one term.
type Candidate struct {
	// ID is the arXiv identifier without its version suffix (e.g. "1706.03762").
	ID string `json:"id" yaml:"id"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// Authors lists the paper authors in source order.
	Authors []string `json:"authors" yaml:"authors"`

	// Summary is the paper abstract.
	Summary string `json:"summary" yaml:"summary"`

	// PDFURL links to the paper PDF.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// AbsURL links to the abstract page.
	AbsURL string `json:"abs_url,omitempty" yaml:"abs_url,omitempty"`

	// Published is the first submission date.
	Published time.Time `json:"published,omitzero" yaml:"published,omitempty"`

	// Categories lists the arXiv subject categories, primary first.
	Categories []string `json:"categories,omitempty" yaml:"categories,omitempty"`

	// SourceTerm is the search term that produced this candidate.
	SourceTerm string `json:"source_term" yaml:"source_term"`
}

// Key returns the identity used for deduplication: the arXiv ID, or the PDF
// URL when the ID is missing. An empty key means the candidate has no identity.
func (c Candidate) Key() string {
	if c.ID != "" {
		return "id:" + c.ID
	}
	if c.PDFURL != "" {
		return "url:" + c.PDFURL
	}
	return ""
}

// RankedResult is a candidate annotated by the re-ranker.
type RankedResult struct {
	Candidate `yaml:",inline"`

	// RelevanceScore is the model's rating between MinScore and MaxScore.
	RelevanceScore float64 `json:"relevance_score" yaml:"relevance_score"`

	// Justification is the model's one-sentence reason for the score.
	Justification string `json:"justification" yaml:"justification"`
}

// Score bounds communicated to the language model.
const (
	MinScore = 0.0
	MaxScore = 10.0
)
