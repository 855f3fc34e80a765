// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// --- mocks ---

type mockExpander struct {
	terms []string
	err   error
	calls int
}

func (m *mockExpander) Expand(_ context.Context, _ string) ([]string, error) {
	m.calls++
	return m.terms, m.err
}

type mockSearcher struct {
	mu      sync.Mutex
	results map[string][]types.Candidate
	errs    map[string]error
	calls   []string
	max     []int
}

func (m *mockSearcher) Search(_ context.Context, term string, maxResults int) ([]types.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, term)
	m.max = append(m.max, maxResults)
	if err := m.errs[term]; err != nil {
		return nil, err
	}
	res := m.results[term]
	if len(res) > maxResults {
		res = res[:maxResults]
	}
	return res, nil
}

// mockReranker scores each candidate from a table keyed by ID.
type mockReranker struct {
	scores map[string]float64
	err    error
	calls  int
	got    []types.Candidate
}

func (m *mockReranker) Rerank(_ context.Context, _ string, candidates []types.Candidate) ([]types.RankedResult, error) {
	m.calls++
	m.got = candidates
	if m.err != nil {
		return nil, m.err
	}
	out := make([]types.RankedResult, len(candidates))
	for i, c := range candidates {
		out[i] = types.RankedResult{Candidate: c, RelevanceScore: m.scores[c.ID], Justification: "score for " + c.ID}
	}
	return out, nil
}

func paper(id, term string) types.Candidate {
	return types.Candidate{
		ID:         id,
		Title:      "Paper " + id,
		Authors:    []string{"A. Author"},
		PDFURL:     "http://arxiv.org/pdf/" + id,
		SourceTerm: term,
	}
}

func testPipelineCfg() types.PipelineConfig {
	cfg := types.DefaultConfig().Pipeline
	cfg.IncludeQuery = false
	return cfg
}

func ids(results []types.RankedResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestRunTransformerScenario(t *testing.T) {
	terms := []string{"self-attention", "multi-head attention", "positional encoding", "transformer architecture", "sequence modeling"}
	s := &mockSearcher{results: map[string][]types.Candidate{}}
	scores := map[string]float64{}
	// Five papers per term, with every term sharing paper "shared".
	for ti, term := range terms {
		s.results[term] = []types.Candidate{paper("shared", term)}
		for j := 0; j < 4; j++ {
			id := fmt.Sprintf("%d.%d", ti, j)
			s.results[term] = append(s.results[term], paper(id, term))
			scores[id] = float64(ti + j)
		}
	}
	scores["shared"] = 9.5
	rr := &mockReranker{scores: scores}

	var progress bytes.Buffer
	p := New(&mockExpander{terms: terms}, s, rr, testPipelineCfg(), &progress, nil)

	res, err := p.Run(context.Background(), "transformer attention mechanisms", Options{MaxResultsPerTerm: 5, TopN: 3})
	require.NoError(t, err)

	assert.Equal(t, terms, s.calls)
	assert.Equal(t, []int{5, 5, 5, 5, 5}, s.max)
	assert.Equal(t, 21, res.Candidates)
	assert.Equal(t, 4, res.DupsRemoved)
	assert.Equal(t, 1, rr.calls)
	assert.Len(t, rr.got, 21)

	// 9.5, then 4+3=7 and 3+3=6 / 4+2=6 (stable: term 3 before term 4).
	assert.Equal(t, []string{"shared", "4.3", "3.3"}, ids(res.Results))
	assert.NotEmpty(t, res.RunID)
	assert.Contains(t, progress.String(), "Expanded search terms: self-attention")
	assert.Contains(t, progress.String(), `Searching for "sequence modeling" (5/5)`)
	assert.Contains(t, progress.String(), "Re-ranking 21 papers")
}

func TestRunIncludesQuery(t *testing.T) {
	s := &mockSearcher{results: map[string][]types.Candidate{"q": {paper("1", "q")}}}
	cfg := testPipelineCfg()
	cfg.IncludeQuery = true
	p := New(&mockExpander{terms: []string{"a", "Q", "b"}}, s, &mockReranker{scores: map[string]float64{"1": 1}}, cfg, nil, nil)

	exp, err := p.Expand(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "Q", "b"}, exp.Terms, "query already present")

	p.expander = &mockExpander{terms: []string{"a", "b"}}
	exp, err = p.Expand(context.Background(), " q ")
	require.NoError(t, err)
	assert.Equal(t, []string{"q", "a", "b"}, exp.Terms)
	assert.False(t, exp.Degraded)
}

func TestExpandFallback(t *testing.T) {
	cause := fmt.Errorf("%w: model down", types.ErrExpansion)

	p := New(&mockExpander{err: cause}, &mockSearcher{}, &mockReranker{}, testPipelineCfg(), nil, nil)
	exp, err := p.Expand(context.Background(), "graph neural networks")
	require.NoError(t, err)
	assert.True(t, exp.Degraded)
	assert.Equal(t, []string{"graph neural networks"}, exp.Terms)
	assert.ErrorIs(t, exp.Err, types.ErrExpansion)
}

func TestExpandStrict(t *testing.T) {
	cause := fmt.Errorf("%w: model down", types.ErrExpansion)
	cfg := testPipelineCfg()
	cfg.StrictExpansion = true
	s := &mockSearcher{}

	p := New(&mockExpander{err: cause}, s, &mockReranker{}, cfg, nil, nil)
	_, err := p.Run(context.Background(), "graph neural networks", p.DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExpansion)
	assert.Empty(t, s.calls, "no search after a strict expansion failure")
}

func TestExpandEmptyQuery(t *testing.T) {
	e := &mockExpander{terms: []string{"x"}}
	p := New(e, &mockSearcher{}, &mockReranker{}, testPipelineCfg(), nil, nil)

	_, err := p.Expand(context.Background(), "  ")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrExpansion)
	assert.Zero(t, e.calls)
}

func TestRankSelectedTerms(t *testing.T) {
	s := &mockSearcher{results: map[string][]types.Candidate{
		"a": {paper("1", "a"), paper("2", "a")},
		"b": {paper("2", "b"), paper("3", "b")},
	}}
	rr := &mockReranker{scores: map[string]float64{"1": 2, "2": 8, "3": 5}}
	p := New(&mockExpander{}, s, rr, testPipelineCfg(), nil, nil)

	res, err := p.Rank(context.Background(), "q", []string{" a ", "", "b", "A"}, Options{MaxResultsPerTerm: 5, TopN: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, s.calls)
	assert.Equal(t, []string{"2", "3", "1"}, ids(res.Results))
	// First occurrence wins: paper 2 keeps term "a".
	assert.Equal(t, "a", res.Results[0].SourceTerm)
}

func TestRankRejectsInput(t *testing.T) {
	p := New(&mockExpander{}, &mockSearcher{}, &mockReranker{}, testPipelineCfg(), nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		terms []string
		opts  Options
		want  error
	}{
		{"no terms", "q", []string{" ", ""}, Options{MaxResultsPerTerm: 5, TopN: 5}, types.ErrSearch},
		{"max results", "q", []string{"a"}, Options{MaxResultsPerTerm: 0, TopN: 5}, types.ErrConfiguration},
		{"top n", "q", []string{"a"}, Options{MaxResultsPerTerm: 5, TopN: 0}, types.ErrConfiguration},
		{"empty query", " ", []string{"a"}, Options{MaxResultsPerTerm: 5, TopN: 5}, types.ErrRerank},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Rank(ctx, tt.query, tt.terms, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRankTermFailuresDegrade(t *testing.T) {
	s := &mockSearcher{
		results: map[string][]types.Candidate{"b": {paper("1", "b")}},
		errs:    map[string]error{"a": fmt.Errorf("%w: timeout", types.ErrSearch)},
	}
	var progress bytes.Buffer
	p := New(&mockExpander{}, s, &mockReranker{scores: map[string]float64{"1": 7}}, testPipelineCfg(), &progress, nil)

	res, err := p.Rank(context.Background(), "q", []string{"a", "b"}, Options{MaxResultsPerTerm: 5, TopN: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(res.Results))
	require.Len(t, res.TermErrors, 1)
	assert.Equal(t, "a", res.TermErrors[0].Term)
	assert.Contains(t, res.TermErrors[0].Error, "timeout")
	assert.Contains(t, progress.String(), `warning: search for "a" failed`)
}

func TestRankAllTermsFail(t *testing.T) {
	down := fmt.Errorf("%w: connection refused", types.ErrSearch)
	s := &mockSearcher{errs: map[string]error{"a": down, "b": down}}
	rr := &mockReranker{}
	p := New(&mockExpander{}, s, rr, testPipelineCfg(), nil, nil)

	_, err := p.Rank(context.Background(), "q", []string{"a", "b"}, Options{MaxResultsPerTerm: 5, TopN: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSearch)
	assert.Contains(t, err.Error(), "all 2 term searches failed")
	assert.Zero(t, rr.calls)
}

func TestRankNoMatches(t *testing.T) {
	s := &mockSearcher{results: map[string][]types.Candidate{}}
	rr := &mockReranker{}
	var progress bytes.Buffer
	p := New(&mockExpander{}, s, rr, testPipelineCfg(), &progress, nil)

	res, err := p.Rank(context.Background(), "q", []string{"zzzzqqq"}, Options{MaxResultsPerTerm: 5, TopN: 5})
	require.NoError(t, err)
	assert.NotNil(t, res.Results)
	assert.Empty(t, res.Results)
	assert.Zero(t, rr.calls, "nothing to re-rank")
	assert.Contains(t, progress.String(), "No papers found")
}

func TestRankRerankFailureAborts(t *testing.T) {
	s := &mockSearcher{results: map[string][]types.Candidate{"a": {paper("1", "a")}}}
	rr := &mockReranker{err: fmt.Errorf("%w: bad JSON", types.ErrRerank)}
	p := New(&mockExpander{}, s, rr, testPipelineCfg(), nil, nil)

	_, err := p.Rank(context.Background(), "q", []string{"a"}, Options{MaxResultsPerTerm: 5, TopN: 5})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrRerank)
}

func TestRankConcurrentKeepsTermOrder(t *testing.T) {
	s := &mockSearcher{results: map[string][]types.Candidate{}}
	terms := make([]string, 8)
	for i := range terms {
		terms[i] = fmt.Sprintf("t%d", i)
		s.results[terms[i]] = []types.Candidate{paper("dup", terms[i]), paper(fmt.Sprintf("u%d", i), terms[i])}
	}
	rr := &mockReranker{scores: map[string]float64{}}
	cfg := testPipelineCfg()
	cfg.Concurrency = 4
	p := New(&mockExpander{}, s, rr, cfg, nil, nil)

	res, err := p.Rank(context.Background(), "q", terms, Options{MaxResultsPerTerm: 5, TopN: 20})
	require.NoError(t, err)
	assert.Len(t, s.calls, 8)
	require.Len(t, rr.got, 9)
	assert.Equal(t, "t0", rr.got[0].SourceTerm, "first-seen by term order wins")
	for i := 1; i < len(rr.got); i++ {
		assert.Equal(t, fmt.Sprintf("u%d", i-1), rr.got[i].ID)
	}
	assert.Equal(t, 9, res.Candidates)
}

func TestRankCancelled(t *testing.T) {
	s := &mockSearcher{results: map[string][]types.Candidate{"a": {paper("1", "a")}}}
	rr := &mockReranker{}
	p := New(&mockExpander{}, s, rr, testPipelineCfg(), nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Rank(ctx, "q", []string{"a"}, Options{MaxResultsPerTerm: 5, TopN: 5})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Zero(t, rr.calls)
}

func TestDeduplicate(t *testing.T) {
	in := []types.Candidate{
		paper("1", "a"),
		paper("2", "a"),
		paper("1", "b"),
		{PDFURL: "http://x/p.pdf", SourceTerm: "a"},
		{PDFURL: "http://x/p.pdf", SourceTerm: "b"},
		{Title: "no identity"},
		{Title: "no identity either"},
		paper("2", "c"),
	}

	out, removed := deduplicate(in)
	assert.Equal(t, 3, removed)
	require.Len(t, out, 5)
	assert.Equal(t, "1", out[0].ID)
	assert.Equal(t, "a", out[0].SourceTerm)
	assert.Equal(t, "2", out[1].ID)
	assert.Equal(t, "a", out[2].SourceTerm)
	assert.Equal(t, "no identity", out[3].Title)
	assert.Equal(t, "no identity either", out[4].Title)

	seen := map[string]bool{}
	for _, c := range out {
		if k := c.Key(); k != "" {
			assert.False(t, seen[k], "duplicate key %s", k)
			seen[k] = true
		}
	}
}

func TestSelectTopN(t *testing.T) {
	ranked := func(scores ...float64) []types.RankedResult {
		out := make([]types.RankedResult, len(scores))
		for i, s := range scores {
			out[i] = types.RankedResult{Candidate: types.Candidate{ID: fmt.Sprint(i)}, RelevanceScore: s}
		}
		return out
	}

	tests := []struct {
		name   string
		in     []types.RankedResult
		n      int
		wantID []string
	}{
		{"highest first", ranked(1, 9, 5), 2, []string{"1", "2"}},
		{"stable ties", ranked(5, 7, 5, 7), 3, []string{"1", "3", "0"}},
		{"fewer than n", ranked(3, 4), 5, []string{"1", "0"}},
		{"empty", ranked(), 3, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := slices.Clone(tt.in)
			got := selectTopN(tt.in, tt.n)
			assert.Equal(t, tt.wantID, ids(got))
			assert.Equal(t, in, tt.in, "input untouched")
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].RelevanceScore, got[i].RelevanceScore)
			}
		})
	}
}
