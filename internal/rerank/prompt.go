// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rerank

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// rerankPromptTmpl embeds the query and every candidate, each under an id
// the model must echo back with its assessment.
var rerankPromptTmpl = template.Must(template.New("rerank").Parse(`You are an expert research assistant. A user is searching for papers related to: "{{.Query}}".

Evaluate each of the following academic papers based on its title and abstract and determine how relevant it is to the user's query.
{{range .Papers}}
[{{.Key}}]
Title: {{.Title}}
Abstract: {{.Summary}}
{{end}}
For every paper provide:
- id: the paper's id exactly as shown in brackets above (e.g. "p1")
- relevance_score: a number from {{.Min}} (not relevant at all) to {{.Max}} (highly relevant)
- justification: a brief, one-sentence justification for the score

Respond with a JSON array containing exactly one object per paper, {{len .Papers}} in total, and nothing else.

Example response:
[{"id": "p1", "relevance_score": 8, "justification": "Directly studies the attention mechanism the user asked about."}]
`))

// promptPaper is one candidate as rendered into the prompt.
type promptPaper struct {
	Key     string
	Title   string
	Summary string
}

// echoKey is the id the model is asked to repeat for the i-th candidate.
func echoKey(i int) string {
	return fmt.Sprintf("p%d", i+1)
}

// renderPrompt executes the re-ranking prompt template. Abstracts longer than
// summaryChars runes are cut; zero keeps them whole.
func renderPrompt(query string, candidates []types.Candidate, summaryChars int) (string, error) {
	papers := make([]promptPaper, len(candidates))
	for i, c := range candidates {
		papers[i] = promptPaper{
			Key:     echoKey(i),
			Title:   c.Title,
			Summary: truncate(c.Summary, summaryChars),
		}
	}

	var buf bytes.Buffer
	data := struct {
		Query    string
		Papers   []promptPaper
		Min, Max float64
	}{query, papers, types.MinScore, types.MaxScore}
	if err := rerankPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// truncate cuts s to at most n runes, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
