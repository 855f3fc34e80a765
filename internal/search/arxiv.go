// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/paper-scout/internal/httputil"
	"github.com/pdiddy/paper-scout/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// fetch performs the HTTP round trip for one term. Network failures, 5xx
// responses and unreadable feeds are wrapped with errTransport.
func (c *Client) fetch(ctx context.Context, term string, maxResults int) ([]types.Candidate, error) {
	base := arxivAPIBase
	if c.cfg.BaseURL != "" {
		base = c.cfg.BaseURL
	}

	params := url.Values{}
	params.Set("search_query", buildArxivQuery(term))
	params.Set("start", "0")
	params.Set("max_results", strconv.Itoa(maxResults))
	params.Set("sortBy", "relevance")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.cfg.MaxRetries, c.log)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode >= 500 || httputil.Retryable(resp.StatusCode) {
			return nil, fmt.Errorf("%w: arXiv API returned HTTP %d", errTransport, resp.StatusCode)
		}
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("%w: parsing arXiv response: %w", errTransport, err)
	}

	results := make([]types.Candidate, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		if strings.Contains(entry.ID, "/api/errors") {
			return nil, fmt.Errorf("arXiv rejected query: %s", collapse(entry.Summary))
		}
		cand, ok := entry.candidate(term)
		if !ok {
			continue
		}
		results = append(results, cand)
	}
	return results, nil
}

// buildArxivQuery turns a free-text term into a search_query value that
// requires every word to appear in any field. Characters with meaning in
// arXiv's query syntax are dropped.
func buildArxivQuery(term string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '"', '(', ')', ':', '\\':
			return ' '
		}
		return r
	}, term)

	words := strings.Fields(clean)
	parts := make([]string, 0, len(words))
	for _, w := range words {
		switch strings.ToUpper(w) {
		case "AND", "OR", "ANDNOT":
			continue
		}
		parts = append(parts, "all:"+w)
	}
	return strings.Join(parts, " AND ")
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID         string          `xml:"id"`
	Title      string          `xml:"title"`
	Summary    string          `xml:"summary"`
	Published  string          `xml:"published"`
	Authors    []arxivAuthor   `xml:"author"`
	Links      []arxivLink     `xml:"link"`
	Primary    arxivCategory   `xml:"http://arxiv.org/schemas/atom primary_category"`
	Categories []arxivCategory `xml:"category"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type arxivCategory struct {
	Term string `xml:"term,attr"`
}

// candidate maps a feed entry to a Candidate. Entries without an arXiv
// identifier are rejected.
func (e arxivEntry) candidate(term string) (types.Candidate, bool) {
	id := extractArxivID(e.ID)
	if id == "" {
		return types.Candidate{}, false
	}

	c := types.Candidate{
		ID:         id,
		Title:      collapse(e.Title),
		Summary:    collapse(e.Summary),
		AbsURL:     strings.TrimSpace(e.ID),
		SourceTerm: term,
	}

	for _, a := range e.Authors {
		if name := strings.TrimSpace(a.Name); name != "" {
			c.Authors = append(c.Authors, name)
		}
	}

	for _, l := range e.Links {
		switch {
		case l.Title == "pdf" || l.Type == "application/pdf":
			c.PDFURL = l.Href
		case l.Rel == "alternate" && l.Href != "":
			c.AbsURL = l.Href
		}
	}
	if c.PDFURL == "" {
		c.PDFURL = strings.Replace(c.AbsURL, "/abs/", "/pdf/", 1)
	}

	if e.Primary.Term != "" {
		c.Categories = append(c.Categories, e.Primary.Term)
	}
	for _, cat := range e.Categories {
		if cat.Term != "" && cat.Term != e.Primary.Term {
			c.Categories = append(c.Categories, cat.Term)
		}
	}

	if t, err := time.Parse(time.RFC3339, strings.TrimSpace(e.Published)); err == nil {
		c.Published = t
	}
	return c, true
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// collapse folds the line breaks and indentation arXiv puts in titles and
// abstracts into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
