package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/wippyai/postal"
)

// maxLineSize bounds one line of stdin input.
const maxLineSize = 1 << 20

// readInputs returns the positional arguments joined by sep into one input,
// or every non-blank line of r when there are none.
func readInputs(args []string, sep string, r io.Reader) ([]string, error) {
	if len(args) > 0 {
		return []string{strings.Join(args, sep)}, nil
	}
	var inputs []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			inputs = append(inputs, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read stdin: %w", err)
	}
	return inputs, nil
}

// parseRecord reads "label=value" pairs separated by semicolons, e.g.
// "house_number=781; road=franklin ave; city=brooklyn".
func parseRecord(s string) (postal.Components, error) {
	var rec postal.Components
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		label, value, ok := strings.Cut(pair, "=")
		if !ok {
			return postal.Components{}, fmt.Errorf("record field %q is not label=value", pair)
		}
		rec.Add(strings.TrimSpace(label), strings.TrimSpace(value))
	}
	return rec, nil
}

// parseFuzzyTokens reads whitespace-separated "token:score" items. A token
// without a score weighs 1.
func parseFuzzyTokens(s string) (postal.FuzzyTokens, error) {
	var ft postal.FuzzyTokens
	for _, item := range strings.Fields(s) {
		token, score := item, 1.0
		if i := strings.LastIndexByte(item, ':'); i > 0 {
			v, err := strconv.ParseFloat(item[i+1:], 64)
			if err != nil {
				return postal.FuzzyTokens{}, fmt.Errorf("token %q: bad score: %w", item, err)
			}
			token, score = item[:i], v
		}
		ft.Tokens = append(ft.Tokens, token)
		ft.Scores = append(ft.Scores, score)
	}
	return ft, nil
}
