// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline sequences one paper search: expand the query into terms,
// search arXiv per term, deduplicate, re-rank once, and keep the top N.
// Both front ends drive it; it holds no state between calls.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/internal/search"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// Expander turns a query into search terms.
type Expander interface {
	Expand(ctx context.Context, query string) ([]string, error)
}

// Reranker scores candidates against a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []types.Candidate) ([]types.RankedResult, error)
}

// Pipeline wires the expander, the search client and the re-ranker.
type Pipeline struct {
	expander Expander
	searcher search.Searcher
	reranker Reranker
	cfg      types.PipelineConfig
	progress io.Writer
	log      *slog.Logger
}

// New returns a Pipeline. Progress lines go to progress (io.Discard when
// nil); structured logs go to log.
func New(exp Expander, s search.Searcher, rr Reranker, cfg types.PipelineConfig, progress io.Writer, log *slog.Logger) *Pipeline {
	if progress == nil {
		progress = io.Discard
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Pipeline{
		expander: exp,
		searcher: s,
		reranker: rr,
		cfg:      cfg,
		progress: progress,
		log:      log,
	}
}

// Options tunes one Rank or Run call.
type Options struct {
	// MaxResultsPerTerm is the number of candidates requested per term.
	MaxResultsPerTerm int
	// TopN is the number of results kept after re-ranking.
	TopN int
	// Progress overrides the pipeline's progress writer for this call.
	Progress io.Writer
}

// DefaultOptions returns the options taken from the pipeline's configuration.
func (p *Pipeline) DefaultOptions() Options {
	return Options{
		MaxResultsPerTerm: p.cfg.MaxResultsPerTerm,
		TopN:              p.cfg.TopN,
	}
}

// Expansion is the outcome of the expand step.
type Expansion struct {
	Query string   `json:"query" yaml:"query"`
	Terms []string `json:"terms" yaml:"terms"`

	// Degraded is set when expansion failed and the raw query stands in
	// for the expanded terms. Err holds the failure.
	Degraded bool  `json:"degraded" yaml:"degraded"`
	Err      error `json:"-" yaml:"-"`
}

// TermError records a term whose search failed.
type TermError struct {
	Term  string `json:"term" yaml:"term"`
	Error string `json:"error" yaml:"error"`
}

// Result is the outcome of a completed run.
type Result struct {
	RunID       string               `json:"run_id" yaml:"run_id"`
	Query       string               `json:"query" yaml:"query"`
	Terms       []string             `json:"terms" yaml:"terms"`
	Candidates  int                  `json:"candidates" yaml:"candidates"`
	DupsRemoved int                  `json:"duplicates_removed" yaml:"duplicates_removed"`
	Results     []types.RankedResult `json:"results" yaml:"results"`
	TermErrors  []TermError          `json:"term_errors,omitempty" yaml:"term_errors,omitempty"`
}

// Expand runs the expand step. When the expander fails and strict expansion
// is off, the query itself becomes the only term and the failure is kept on
// the returned Expansion. With IncludeQuery the query is prepended to the
// terms unless already present.
func (p *Pipeline) Expand(ctx context.Context, query string) (Expansion, error) {
	return p.expand(ctx, query, p.progress)
}

func (p *Pipeline) expand(ctx context.Context, query string, w io.Writer) (Expansion, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Expansion{}, fmt.Errorf("%w: query is empty", types.ErrExpansion)
	}

	fmt.Fprintf(w, "Expanding query %q...\n", query)
	terms, err := p.expander.Expand(ctx, query)
	if err != nil {
		if p.cfg.StrictExpansion || ctx.Err() != nil {
			return Expansion{}, err
		}
		fmt.Fprintf(w, "warning: expansion failed, searching with the query alone: %v\n", err)
		p.log.Warn("expansion failed, falling back to query", "error", err)
		return Expansion{Query: query, Terms: []string{query}, Degraded: true, Err: err}, nil
	}

	if p.cfg.IncludeQuery && !containsFold(terms, query) {
		terms = append([]string{query}, terms...)
	}
	fmt.Fprintf(w, "Expanded search terms: %s\n", strings.Join(terms, ", "))
	return Expansion{Query: query, Terms: terms}, nil
}

// Rank runs fetch, dedup, re-rank and top-N selection over the given terms.
func (p *Pipeline) Rank(ctx context.Context, query string, terms []string, opts Options) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, fmt.Errorf("%w: query is empty", types.ErrRerank)
	}
	terms = cleanTerms(terms)
	if len(terms) == 0 {
		return Result{}, fmt.Errorf("%w: no search terms selected", types.ErrSearch)
	}
	if opts.MaxResultsPerTerm < 1 {
		return Result{}, fmt.Errorf("%w: max results per term must be at least 1, got %d", types.ErrConfiguration, opts.MaxResultsPerTerm)
	}
	if opts.TopN < 1 {
		return Result{}, fmt.Errorf("%w: top n must be at least 1, got %d", types.ErrConfiguration, opts.TopN)
	}

	w := p.writer(opts)
	runID := uuid.NewString()
	log := p.log.With("run_id", runID)
	log.Info("pipeline run", "query", query, "terms", len(terms), "max_results_per_term", opts.MaxResultsPerTerm, "top_n", opts.TopN)

	fmt.Fprintf(w, "Gathering candidate papers from arXiv (up to %d per term)...\n", opts.MaxResultsPerTerm)
	batches := p.fetch(ctx, terms, opts.MaxResultsPerTerm, w)
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", types.ErrSearch, err)
	}

	var all []types.Candidate
	var termErrs []TermError
	for i, b := range batches {
		if b.err != nil {
			termErrs = append(termErrs, TermError{Term: terms[i], Error: b.err.Error()})
			log.Warn("term search failed", "term", terms[i], "error", b.err)
			continue
		}
		all = append(all, b.results...)
	}
	if len(termErrs) == len(terms) {
		return Result{}, fmt.Errorf("%w: all %d term searches failed: %w", types.ErrSearch, len(terms), errors.Join(batchErrors(batches)...))
	}

	candidates, removed := deduplicate(all)
	res := Result{
		RunID:       runID,
		Query:       query,
		Terms:       terms,
		Candidates:  len(candidates),
		DupsRemoved: removed,
		TermErrors:  termErrs,
	}
	if len(candidates) == 0 {
		fmt.Fprintln(w, "No papers found after searching with all terms.")
		res.Results = []types.RankedResult{}
		return res, nil
	}
	fmt.Fprintf(w, "Found %d unique candidate papers (%d duplicates removed).\n", len(candidates), removed)

	fmt.Fprintf(w, "Re-ranking %d papers for relevance...\n", len(candidates))
	ranked, err := p.reranker.Rerank(ctx, query, candidates)
	if err != nil {
		return Result{}, err
	}

	res.Results = selectTopN(ranked, opts.TopN)
	log.Info("pipeline done", "candidates", len(candidates), "results", len(res.Results), "term_errors", len(termErrs))
	return res, nil
}

// Run expands the query and ranks over every resulting term.
func (p *Pipeline) Run(ctx context.Context, query string, opts Options) (Result, error) {
	exp, err := p.expand(ctx, query, p.writer(opts))
	if err != nil {
		return Result{}, err
	}
	return p.Rank(ctx, exp.Query, exp.Terms, opts)
}

func (p *Pipeline) writer(opts Options) io.Writer {
	if opts.Progress != nil {
		return opts.Progress
	}
	return p.progress
}

type batch struct {
	results []types.Candidate
	err     error
}

// fetch searches every term and returns one batch per term, in term order.
// With Concurrency above 1 the searches overlap; the shared rate limiter in
// the search client still paces them.
func (p *Pipeline) fetch(ctx context.Context, terms []string, maxResults int, w io.Writer) []batch {
	out := make([]batch, len(terms))
	workers := min(max(p.cfg.Concurrency, 1), len(terms))

	if workers == 1 {
		for i, term := range terms {
			fmt.Fprintf(w, "  Searching for %q (%d/%d)...\n", term, i+1, len(terms))
			out[i] = p.searchTerm(ctx, term, maxResults, w)
		}
		return out
	}

	var mu sync.Mutex // serializes progress lines
	next := make(chan int)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				mu.Lock()
				fmt.Fprintf(w, "  Searching for %q (%d/%d)...\n", terms[i], i+1, len(terms))
				mu.Unlock()
				b := p.searchTerm(ctx, terms[i], maxResults, nil)
				if b.err != nil {
					mu.Lock()
					fmt.Fprintf(w, "warning: search for %q failed: %v\n", terms[i], b.err)
					mu.Unlock()
				}
				out[i] = b
			}
		}()
	}
	for i := range terms {
		next <- i
	}
	close(next)
	wg.Wait()
	return out
}

// searchTerm runs one search. A failure is returned in the batch rather than
// aborting the run; w, when set, receives the warning line.
func (p *Pipeline) searchTerm(ctx context.Context, term string, maxResults int, w io.Writer) batch {
	results, err := p.searcher.Search(ctx, term, maxResults)
	if err != nil {
		if w != nil {
			fmt.Fprintf(w, "warning: search for %q failed: %v\n", term, err)
		}
		return batch{err: err}
	}
	return batch{results: results}
}

func batchErrors(batches []batch) []error {
	errs := make([]error, 0, len(batches))
	for _, b := range batches {
		if b.err != nil {
			errs = append(errs, b.err)
		}
	}
	return errs
}

// deduplicate drops candidates whose identity key was already seen. The
// first occurrence wins and order is preserved. Candidates without any key
// are kept.
func deduplicate(candidates []types.Candidate) ([]types.Candidate, int) {
	seen := make(map[string]bool, len(candidates))
	out := make([]types.Candidate, 0, len(candidates))
	removed := 0
	for _, c := range candidates {
		key := c.Key()
		if key != "" {
			if seen[key] {
				removed++
				continue
			}
			seen[key] = true
		}
		out = append(out, c)
	}
	return out, removed
}

// selectTopN sorts by score descending, keeping the aggregate order on
// ties, and returns at most n results. The input slice is not modified.
func selectTopN(ranked []types.RankedResult, n int) []types.RankedResult {
	sorted := make([]types.RankedResult, len(ranked))
	copy(sorted, ranked)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].RelevanceScore > sorted[j].RelevanceScore
	})
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// cleanTerms trims terms and drops blanks and case-insensitive repeats.
func cleanTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" || containsFold(out, t) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
