// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package expand

import (
	"bytes"
	"text/template"
)

// expansionPromptTmpl asks the model for related search keywords as a single
// comma-separated line.
var expansionPromptTmpl = template.Must(template.New("expansion").Parse(`You are an expert research assistant in computer science. A user has provided the following query: "{{.Query}}".
Your task is to generate a list of {{.Min}}-{{.Max}} related technical keywords, alternative phrasings, or underlying concepts that would be useful for searching academic databases like arXiv.

For example, if the query is "inference time timbre-transfer", you might suggest:
real-time voice conversion, audio style transfer, SDEdit for audio generation, GAN inversion audio, voice cloning

Your response should be a list of comma separated values, eg: ` + "`foo, bar, baz`" + `. Do not number the items and do not include any other text.
`))

// renderPrompt executes the expansion prompt template for query.
func renderPrompt(query string, minTerms, maxTerms int) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Query    string
		Min, Max int
	}{query, minTerms, maxTerms}
	if err := expansionPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
