package postal

import "context"

// Backend is one initialized libpostal instance. Implementations own a
// native setup and release it in Close.
//
// Backends receive arguments that the Client has already validated. Empty
// native results are reported as nil slices (or NullDuplicate) with a nil
// error. NormalizeString is the exception: a NULL result is a nil_pointer
// error in the native phase.
type Backend interface {
	ExpandAddress(ctx context.Context, input string, opts ExpandOptions) ([]string, error)
	ParseAddress(ctx context.Context, input string, opts ParseOptions) ([]ParsedComponent, error)
	ClassifyLanguage(ctx context.Context, input string) ([]LanguageScore, error)

	NormalizeString(ctx context.Context, input string, opts NormalizeOptions) (string, error)
	NormalizedTokens(ctx context.Context, input string, opts NormalizeOptions) ([]NormalizedToken, error)
	Tokenize(ctx context.Context, input string, whitespace bool) ([]Token, error)

	IsDuplicate(ctx context.Context, kind DuplicateKind, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error)
	IsToponymDuplicate(ctx context.Context, record1, record2 Components, opts DuplicateOptions) (DuplicateStatus, error)
	IsDuplicateFuzzy(ctx context.Context, kind FuzzyKind, tokens1, tokens2 FuzzyTokens, opts FuzzyDuplicateOptions) (FuzzyResult, error)

	NameHashes(ctx context.Context, name string, opts ExpandOptions) ([]string, error)
	NearDupeHashes(ctx context.Context, record Components, opts NearDupeOptions) ([]string, error)
	PlaceLanguages(ctx context.Context, record Components) ([]string, error)

	Close() error
}
