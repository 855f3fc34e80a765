// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Output formats accepted by Format.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatText, FormatJSON, FormatYAML}

// Format writes res to w in the named format. width wraps long text lines;
// zero or less disables wrapping.
func Format(w io.Writer, res Result, format string, width int) error {
	switch format {
	case FormatText, "":
		return WriteText(w, res, width)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(res); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

// WriteText writes the human-readable listing: one block per ranked paper
// with its title, authors, PDF link, score out of 10 and justification.
func WriteText(w io.Writer, res Result, width int) error {
	if len(res.Results) == 0 {
		_, err := fmt.Fprintf(w, "No papers found for %q. Try a different query.\n", res.Query)
		return err
	}

	rule := strings.Repeat("=", 50)
	if width > 0 && width < len(rule) {
		rule = rule[:width]
	}
	fmt.Fprintf(w, "Top %d most relevant papers for %q:\n%s\n", len(res.Results), res.Query, rule)
	for i, r := range res.Results {
		fmt.Fprintf(w, "--- RANK %d ---\n", i+1)
		fmt.Fprintln(w, wrap("Title: "+r.Title, width))
		fmt.Fprintln(w, wrap("Authors: "+strings.Join(r.Authors, ", "), width))
		fmt.Fprintf(w, "PDF Link: %s\n", r.PDFURL)
		fmt.Fprintf(w, "LLM Score: %s/10\n", FormatScore(r.RelevanceScore))
		fmt.Fprintln(w, wrap("Justification: "+r.Justification, width))
		if _, err := fmt.Fprintln(w, strings.Repeat("-", 20)); err != nil {
			return err
		}
	}
	for _, te := range res.TermErrors {
		fmt.Fprintf(w, "warning: no results for %q: %s\n", te.Term, te.Error)
	}
	return nil
}

// FormatScore renders a score without a trailing ".0" ("8", "7.5").
func FormatScore(score float64) string {
	return strconv.FormatFloat(score, 'f', -1, 64)
}

// wrap breaks s at spaces so no line exceeds width runes. Continuation
// lines are indented by two spaces. Words longer than width stay whole.
func wrap(s string, width int) string {
	if width <= 0 || len([]rune(s)) <= width {
		return s
	}
	var b strings.Builder
	lineLen := 0
	for i, word := range strings.Fields(s) {
		n := len([]rune(word))
		switch {
		case i == 0:
		case lineLen+1+n > width:
			b.WriteString("\n  ")
			lineLen = 2
		default:
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(word)
		lineLen += n
	}
	return b.String()
}
