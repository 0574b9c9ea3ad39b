// Package postaltest provides a canned postal.Backend for tests of code
// built on top of postal.Client.
package postaltest

import (
	"context"
	"sync"

	"github.com/wippyai/postal"
)

// Backend returns the canned values in its fields and records every call.
// When Err is set every operation returns it instead.
type Backend struct {
	Err error

	Expansions   []string
	Components   []postal.ParsedComponent
	Languages    []postal.LanguageScore
	Normalized   string
	NormTokens   []postal.NormalizedToken
	Tokens       []postal.Token
	Status       postal.DuplicateStatus
	Fuzzy        postal.FuzzyResult
	NameKeys     []string
	NearDupeKeys []string
	PlaceLangs   []string

	mu     sync.Mutex
	calls  []string
	closed bool
}

var _ postal.Backend = (*Backend)(nil)

// New returns a Backend answering every operation with a small plausible
// result.
func New() *Backend {
	return &Backend{
		Expansions: []string{"781 franklin avenue", "781 franklin ave"},
		Components: []postal.ParsedComponent{
			{Value: "781", Label: "house_number"},
			{Value: "franklin ave", Label: "road"},
		},
		Languages:  []postal.LanguageScore{{Language: "en", Probability: 0.98}},
		Normalized: "781 franklin ave",
		NormTokens: []postal.NormalizedToken{
			{Text: "781", Type: postal.TokenNumeric},
			{Text: "franklin", Type: postal.TokenWord},
		},
		Tokens: []postal.Token{
			{Offset: 0, Length: 3, Type: postal.TokenNumeric},
			{Offset: 4, Length: 8, Type: postal.TokenWord},
		},
		Status:       postal.ExactDuplicate,
		Fuzzy:        postal.FuzzyResult{Status: postal.LikelyDuplicate, Similarity: 0.92},
		NameKeys:     []string{"name|frnklm"},
		NearDupeKeys: []string{"act|franklin avenue|781|brooklyn"},
		PlaceLangs:   []string{"en"},
	}
}

func (b *Backend) record(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, op)
	return b.Err
}

// Calls returns the operations invoked so far, in order.
func (b *Backend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

// Closed reports whether Close was called.
func (b *Backend) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

func (b *Backend) ExpandAddress(_ context.Context, _ string, opts postal.ExpandOptions) ([]string, error) {
	op := "ExpandAddress"
	if opts.Root {
		op = "ExpandAddressRoot"
	}
	if err := b.record(op); err != nil {
		return nil, err
	}
	return b.Expansions, nil
}

func (b *Backend) ParseAddress(context.Context, string, postal.ParseOptions) ([]postal.ParsedComponent, error) {
	if err := b.record("ParseAddress"); err != nil {
		return nil, err
	}
	return b.Components, nil
}

func (b *Backend) ClassifyLanguage(context.Context, string) ([]postal.LanguageScore, error) {
	if err := b.record("ClassifyLanguage"); err != nil {
		return nil, err
	}
	return b.Languages, nil
}

func (b *Backend) NormalizeString(context.Context, string, postal.NormalizeOptions) (string, error) {
	if err := b.record("NormalizeString"); err != nil {
		return "", err
	}
	return b.Normalized, nil
}

func (b *Backend) NormalizedTokens(context.Context, string, postal.NormalizeOptions) ([]postal.NormalizedToken, error) {
	if err := b.record("NormalizedTokens"); err != nil {
		return nil, err
	}
	return b.NormTokens, nil
}

func (b *Backend) Tokenize(context.Context, string, bool) ([]postal.Token, error) {
	if err := b.record("Tokenize"); err != nil {
		return nil, err
	}
	return b.Tokens, nil
}

func (b *Backend) IsDuplicate(_ context.Context, kind postal.DuplicateKind, _, _ string, _ postal.DuplicateOptions) (postal.DuplicateStatus, error) {
	if err := b.record("IsDuplicate:" + kind.String()); err != nil {
		return postal.NullDuplicate, err
	}
	return b.Status, nil
}

func (b *Backend) IsToponymDuplicate(context.Context, postal.Components, postal.Components, postal.DuplicateOptions) (postal.DuplicateStatus, error) {
	if err := b.record("IsToponymDuplicate"); err != nil {
		return postal.NullDuplicate, err
	}
	return b.Status, nil
}

func (b *Backend) IsDuplicateFuzzy(_ context.Context, kind postal.FuzzyKind, _, _ postal.FuzzyTokens, _ postal.FuzzyDuplicateOptions) (postal.FuzzyResult, error) {
	if err := b.record("IsDuplicateFuzzy:" + kind.String()); err != nil {
		return postal.FuzzyResult{Status: postal.NullDuplicate}, err
	}
	return b.Fuzzy, nil
}

func (b *Backend) NameHashes(context.Context, string, postal.ExpandOptions) ([]string, error) {
	if err := b.record("NameHashes"); err != nil {
		return nil, err
	}
	return b.NameKeys, nil
}

func (b *Backend) NearDupeHashes(context.Context, postal.Components, postal.NearDupeOptions) ([]string, error) {
	if err := b.record("NearDupeHashes"); err != nil {
		return nil, err
	}
	return b.NearDupeKeys, nil
}

func (b *Backend) PlaceLanguages(context.Context, postal.Components) ([]string, error) {
	if err := b.record("PlaceLanguages"); err != nil {
		return nil, err
	}
	return b.PlaceLangs, nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
