package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/wippyai/postal"
)

// printer writes one result per input, as text or as JSON lines.
type printer struct {
	w    io.Writer
	json bool
	n    int
}

// emit writes one result. In JSON mode the line holds the input and value
// under key; in text mode results are separated by blank lines.
func (p *printer) emit(input, key string, value any, text string) error {
	defer func() { p.n++ }()
	if p.json {
		return json.NewEncoder(p.w).Encode(map[string]any{"input": input, key: value})
	}
	if p.n > 0 {
		if _, err := io.WriteString(p.w, "\n"); err != nil {
			return err
		}
	}
	if text != "" && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := io.WriteString(p.w, text)
	return err
}

func formatLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func formatComponents(components []postal.ParsedComponent) string {
	var b strings.Builder
	for _, c := range components {
		fmt.Fprintf(&b, "%s: %s\n", c.Label, c.Value)
	}
	return b.String()
}

func formatLanguages(scores []postal.LanguageScore) string {
	var b strings.Builder
	for _, s := range scores {
		fmt.Fprintf(&b, "%s\t%.4f\n", s.Language, s.Probability)
	}
	return b.String()
}

func formatNormalizedTokens(tokens []postal.NormalizedToken) string {
	var b strings.Builder
	for _, t := range tokens {
		fmt.Fprintf(&b, "%s\t%s\n", t.Text, t.Type)
	}
	return b.String()
}

func formatTokens(input string, tokens []postal.Token) string {
	var b strings.Builder
	for _, t := range tokens {
		fmt.Fprintf(&b, "%d\t%s\t%s\n", t.Offset, t.Type, t.Slice(input))
	}
	return b.String()
}

func formatFuzzy(r postal.FuzzyResult) string {
	return fmt.Sprintf("%s\t%.4f", r.Status, r.Similarity)
}
