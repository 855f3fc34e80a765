// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rerank scores candidate papers against the user's query with one
// language-model call and attaches a relevance score and justification to
// each candidate.
package rerank

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/paper-scout/internal/llm"
	"github.com/pdiddy/paper-scout/internal/logging"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// Unassessed is the justification given to a candidate the model left out
// of its response.
const Unassessed = "not assessed by the model"

// Reranker scores candidates with a language model.
type Reranker struct {
	model        llm.Model
	summaryChars int
	log          *slog.Logger
}

// New returns a Reranker. summaryChars truncates each abstract embedded in
// the prompt; zero keeps abstracts whole.
func New(model llm.Model, summaryChars int, log *slog.Logger) *Reranker {
	if log == nil {
		log = logging.Discard()
	}
	return &Reranker{model: model, summaryChars: summaryChars, log: log}
}

// Rerank returns one RankedResult per candidate, in input order. An empty
// candidate list returns an empty result without calling the model. Every
// failure wraps types.ErrRerank.
//
// Assessments are matched to candidates by the id the model echoes back.
// When the response carries no ids at all and has exactly one entry per
// candidate, entries are matched by position. A candidate with no matching
// assessment is kept with score 0 and the Unassessed justification.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []types.Candidate) ([]types.RankedResult, error) {
	if len(candidates) == 0 {
		return []types.RankedResult{}, nil
	}

	prompt, err := renderPrompt(query, candidates, r.summaryChars)
	if err != nil {
		return nil, fmt.Errorf("%w: rendering prompt: %w", types.ErrRerank, err)
	}

	raw, err := r.model.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRerank, err)
	}

	assessments, err := ParseAssessments(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRerank, err)
	}

	results, missing, err := associate(candidates, assessments)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrRerank, err)
	}
	if missing > 0 {
		r.log.Warn("model skipped candidates", "missing", missing, "candidates", len(candidates), "assessments", len(assessments))
	}
	r.log.Debug("re-ranked candidates", "candidates", len(candidates), "assessments", len(assessments))
	return results, nil
}

// Assessment is one entry of the model's JSON response.
type Assessment struct {
	ID             string `json:"id"`
	RelevanceScore Score  `json:"relevance_score"`
	Justification  string `json:"justification"`
}

// Score is a relevance score that also accepts numeric strings ("8", "7.5")
// since models do not always honour the requested JSON types.
type Score struct {
	Value float64
	Valid bool
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
func (s *Score) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*s = Score{}
		return nil
	}
	if unq, err := strconv.Unquote(text); err == nil {
		text = strings.TrimSpace(unq)
		// "8/10" is a common model habit.
		text, _, _ = strings.Cut(text, "/")
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return fmt.Errorf("relevance_score %s is not a number", string(data))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		*s = Score{}
		return nil
	}
	*s = Score{Value: v, Valid: true}
	return nil
}

// wrapperKeys are the object fields a model sometimes nests the array under.
var wrapperKeys = []string{"rankings", "results", "papers", "assessments", "scores", "items"}

// ParseAssessments extracts the JSON array of assessments from a model
// response. Markdown code fences and prose around the JSON are ignored, an
// object wrapping the array under a well-known key is unwrapped, and a bare
// object is treated as a one-element array.
func ParseAssessments(raw string) ([]Assessment, error) {
	var firstErr error
	for offset := 0; offset < len(raw); {
		i := strings.IndexAny(raw[offset:], "[{")
		if i < 0 {
			break
		}
		start := offset + i
		offset = start + 1

		dec := json.NewDecoder(strings.NewReader(raw[start:]))
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			err = fmt.Errorf("parsing model response JSON: %w", err)
			// A broken array of objects is a truncated or malformed reply.
			// Its nested objects must not be read as a partial answer.
			if opensStructure(raw[start:]) {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		list, err := decodeAssessments(value)
		if err == nil {
			return list, nil
		}
		if firstErr == nil {
			firstErr = err
		}
		// Skip the whole value so its nested objects are not retried.
		offset = start + int(dec.InputOffset())
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return nil, fmt.Errorf("no JSON in model response %q", truncate(strings.TrimSpace(raw), 120))
}

// opensStructure reports whether s starts an array whose first element is an
// object or array, as opposed to prose in brackets such as "[as requested]".
func opensStructure(s string) bool {
	if !strings.HasPrefix(s, "[") {
		return false
	}
	rest := strings.TrimLeft(s[1:], " \t\r\n")
	return strings.HasPrefix(rest, "{") || strings.HasPrefix(rest, "[")
}

// decodeAssessments reads the assessments out of one JSON value.
func decodeAssessments(value json.RawMessage) ([]Assessment, error) {
	value = bytes.TrimSpace(value)
	if value[0] == '[' {
		var list []Assessment
		if err := json.Unmarshal(value, &list); err != nil {
			return nil, fmt.Errorf("parsing model response JSON: %w", err)
		}
		return list, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(value, &obj); err != nil {
		return nil, fmt.Errorf("parsing model response JSON: %w", err)
	}
	for _, key := range wrapperKeys {
		inner, ok := obj[key]
		if !ok {
			continue
		}
		var list []Assessment
		if err := json.Unmarshal(inner, &list); err != nil {
			return nil, fmt.Errorf("parsing %q array in model response: %w", key, err)
		}
		return list, nil
	}
	if _, ok := obj["relevance_score"]; ok {
		var one Assessment
		if err := json.Unmarshal(value, &one); err != nil {
			return nil, fmt.Errorf("parsing model response JSON: %w", err)
		}
		return []Assessment{one}, nil
	}
	return nil, fmt.Errorf("model response JSON has no assessments array")
}

// associate pairs each candidate with its assessment and returns the results
// in candidate order together with the number of candidates left unassessed.
func associate(candidates []types.Candidate, assessments []Assessment) ([]types.RankedResult, int, error) {
	matched := make([]*Assessment, len(candidates))

	if positional(assessments) {
		if len(assessments) != len(candidates) {
			return nil, 0, fmt.Errorf("model returned %d unlabelled assessments for %d candidates", len(assessments), len(candidates))
		}
		for i := range assessments {
			matched[i] = &assessments[i]
		}
	} else {
		index := candidateIndex(candidates)
		for i := range assessments {
			pos, ok := index[normalizeID(assessments[i].ID)]
			if !ok {
				continue
			}
			// The first scored entry for a candidate wins; an unscored one
			// only holds the place until a scored one arrives.
			if prev := matched[pos]; prev != nil && (prev.RelevanceScore.Valid || !assessments[i].RelevanceScore.Valid) {
				continue
			}
			matched[pos] = &assessments[i]
		}
	}

	results := make([]types.RankedResult, len(candidates))
	missing := 0
	for i, c := range candidates {
		results[i] = types.RankedResult{Candidate: c}
		a := matched[i]
		if a == nil || !a.RelevanceScore.Valid {
			results[i].Justification = Unassessed
			missing++
			continue
		}
		results[i].RelevanceScore = clamp(a.RelevanceScore.Value)
		results[i].Justification = strings.TrimSpace(a.Justification)
	}

	if missing == len(candidates) {
		return nil, 0, fmt.Errorf("model response matched none of the %d candidates", len(candidates))
	}
	return results, missing, nil
}

// positional reports whether no assessment carries an id.
func positional(assessments []Assessment) bool {
	for _, a := range assessments {
		if strings.TrimSpace(a.ID) != "" {
			return false
		}
	}
	return true
}

// candidateIndex maps every id form a model may echo back to the
// candidate's position: the prompt key ("p3"), its bare ordinal ("3"), and
// the arXiv identifier.
func candidateIndex(candidates []types.Candidate) map[string]int {
	index := make(map[string]int, 3*len(candidates))
	for i, c := range candidates {
		index[normalizeID(echoKey(i))] = i
		index[strconv.Itoa(i+1)] = i
		if c.ID != "" {
			if _, taken := index[normalizeID(c.ID)]; !taken {
				index[normalizeID(c.ID)] = i
			}
		}
	}
	return index
}

func normalizeID(id string) string {
	return strings.ToLower(strings.Trim(strings.TrimSpace(id), "[]"))
}

func clamp(v float64) float64 {
	return math.Max(types.MinScore, math.Min(types.MaxScore, v))
}
