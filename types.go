package postal

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MaxLanguageLen bounds language codes passed to libpostal. A code must be
// strictly shorter than this many bytes.
const MaxLanguageLen = 4

// DuplicateStatus is the outcome of a duplicate comparison.
type DuplicateStatus int

const (
	NullDuplicate                DuplicateStatus = -1
	NonDuplicate                 DuplicateStatus = 0
	PossibleDuplicateNeedsReview DuplicateStatus = 3
	LikelyDuplicate              DuplicateStatus = 6
	ExactDuplicate               DuplicateStatus = 9
)

var duplicateStatusNames = map[DuplicateStatus]string{
	NullDuplicate:                "null_duplicate",
	NonDuplicate:                 "non_duplicate",
	PossibleDuplicateNeedsReview: "needs_review",
	LikelyDuplicate:              "likely_duplicate",
	ExactDuplicate:               "exact_duplicate",
}

func (s DuplicateStatus) String() string {
	if name, ok := duplicateStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("duplicate_status(%d)", int(s))
}

// Valid reports whether s is one of the statuses libpostal defines.
func (s DuplicateStatus) Valid() bool {
	_, ok := duplicateStatusNames[s]
	return ok
}

// IsDuplicate reports whether s indicates at least a likely duplicate.
func (s DuplicateStatus) IsDuplicate() bool {
	return s == LikelyDuplicate || s == ExactDuplicate
}

// MarshalJSON encodes the status by name.
func (s DuplicateStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts either the status name or its integer code.
func (s *DuplicateStatus) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		*s = DuplicateStatus(code)
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseDuplicateStatus(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseDuplicateStatus resolves a status name as produced by String.
func ParseDuplicateStatus(name string) (DuplicateStatus, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for status, n := range duplicateStatusNames {
		if n == name {
			return status, nil
		}
	}
	return NullDuplicate, fmt.Errorf("unknown duplicate status %q", name)
}

// DuplicateKind selects which libpostal exact-duplicate comparison to run.
type DuplicateKind int

const (
	DuplicateName DuplicateKind = iota
	DuplicateStreet
	DuplicateHouseNumber
	DuplicatePOBox
	DuplicateUnit
	DuplicateFloor
	DuplicatePostalCode
)

var duplicateKindNames = []string{
	DuplicateName:        "name",
	DuplicateStreet:      "street",
	DuplicateHouseNumber: "house_number",
	DuplicatePOBox:       "po_box",
	DuplicateUnit:        "unit",
	DuplicateFloor:       "floor",
	DuplicatePostalCode:  "postal_code",
}

func (k DuplicateKind) String() string {
	if k >= 0 && int(k) < len(duplicateKindNames) {
		return duplicateKindNames[k]
	}
	return fmt.Sprintf("duplicate_kind(%d)", int(k))
}

// Valid reports whether k names a known comparison.
func (k DuplicateKind) Valid() bool {
	return k >= 0 && int(k) < len(duplicateKindNames)
}

// DuplicateKinds lists every exact-duplicate comparison in declaration order.
func DuplicateKinds() []DuplicateKind {
	kinds := make([]DuplicateKind, len(duplicateKindNames))
	for i := range kinds {
		kinds[i] = DuplicateKind(i)
	}
	return kinds
}

// ParseDuplicateKind resolves a kind name such as "house_number".
func ParseDuplicateKind(name string) (DuplicateKind, error) {
	name = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_")
	for i, n := range duplicateKindNames {
		if n == name {
			return DuplicateKind(i), nil
		}
	}
	return -1, fmt.Errorf("unknown duplicate kind %q", name)
}

// FuzzyKind selects which libpostal fuzzy-duplicate comparison to run.
type FuzzyKind int

const (
	FuzzyName FuzzyKind = iota
	FuzzyStreet
)

func (k FuzzyKind) String() string {
	switch k {
	case FuzzyName:
		return "name"
	case FuzzyStreet:
		return "street"
	}
	return fmt.Sprintf("fuzzy_kind(%d)", int(k))
}

// Valid reports whether k names a known comparison.
func (k FuzzyKind) Valid() bool {
	return k == FuzzyName || k == FuzzyStreet
}

// ParseFuzzyKind resolves "name" or "street".
func ParseFuzzyKind(name string) (FuzzyKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "name":
		return FuzzyName, nil
	case "street":
		return FuzzyStreet, nil
	}
	return -1, fmt.Errorf("unknown fuzzy duplicate kind %q", name)
}

// Components is a labeled-component record: parallel arrays of address-part
// labels (e.g. "house_number", "road") and their values.
type Components struct {
	Labels []string `json:"labels"`
	Values []string `json:"values"`
}

// Len returns the number of components. It is only meaningful once the
// record has been validated.
func (c Components) Len() int {
	return len(c.Labels)
}

// Add appends one label/value pair.
func (c *Components) Add(label, value string) {
	c.Labels = append(c.Labels, label)
	c.Values = append(c.Values, value)
}

// ComponentsFromPairs builds a record from parser output.
func ComponentsFromPairs(parsed ...ParsedComponent) Components {
	c := Components{
		Labels: make([]string, 0, len(parsed)),
		Values: make([]string, 0, len(parsed)),
	}
	for _, p := range parsed {
		c.Add(p.Label, p.Value)
	}
	return c
}

// ParsedComponent is one (value, label) pair produced by the address parser.
type ParsedComponent struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// LanguageScore is one ranked language classifier result.
type LanguageScore struct {
	Language    string  `json:"language"`
	Probability float64 `json:"probability"`
}

// Token is a span over the tokenizer input. Offset and Length are in bytes.
type Token struct {
	Offset int       `json:"offset"`
	Length int       `json:"length"`
	Type   TokenType `json:"type"`
}

// Slice returns the substring of input covered by t, or "" when the span
// does not fit inside input.
func (t Token) Slice(input string) string {
	end := t.Offset + t.Length
	if t.Offset < 0 || t.Length < 0 || end > len(input) {
		return ""
	}
	return input[t.Offset:end]
}

// NormalizedToken is one token produced by NormalizedTokens.
type NormalizedToken struct {
	Text string    `json:"text"`
	Type TokenType `json:"type"`
}

// FuzzyTokens pairs tokens with per-token scores (typically TF-IDF weights).
type FuzzyTokens struct {
	Tokens []string  `json:"tokens"`
	Scores []float64 `json:"scores"`
}

// FuzzyResult is the outcome of a fuzzy duplicate comparison.
type FuzzyResult struct {
	Status     DuplicateStatus `json:"status"`
	Similarity float64         `json:"similarity"`
}
