package postal

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/postal/errors"
)

// Client is the handle through which every libpostal operation runs. It
// validates arguments before they reach the backend and owns the backend's
// lifetime: Close tears the native setup down.
//
// A Client is safe for concurrent use. Close waits for in-flight calls.
type Client struct {
	backend Backend
	logger  *zap.Logger
	mu      sync.RWMutex
	closed  bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger used for call diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New wraps an opened backend. A nil backend yields a client whose every
// call fails with a not-initialized error.
func New(backend Backend, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		logger:  Logger(),
		closed:  backend == nil,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the backend. Calls made after Close fail with a
// not-initialized error. Closing twice is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.backend.Close()
	if err != nil {
		c.logger.Warn("backend close failed", zap.Error(err))
	}
	return err
}

// Closed reports whether the client can no longer serve calls.
func (c *Client) Closed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// acquire holds the read lock for the duration of one call. The returned
// release must be called exactly once.
func (c *Client) acquire() (Backend, func(), error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, nil, errors.NotInitialized("postal client")
	}
	return c.backend, c.mu.RUnlock, nil
}

func (c *Client) rejected(op string, err error) error {
	c.logger.Debug("argument rejected", zap.String("op", op), zap.Error(err))
	return err
}

// ExpandAddress returns the normalized expansions of address.
func (c *Client) ExpandAddress(ctx context.Context, address string, opts ExpandOptions) ([]string, error) {
	if err := validateText([]string{"address"}, address); err != nil {
		return nil, c.rejected("expand_address", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, c.rejected("expand_address", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return nonEmpty(b.ExpandAddress(ctx, address, opts))
}

// ExpandAddressRoot is ExpandAddress with Root forced on.
func (c *Client) ExpandAddressRoot(ctx context.Context, address string, opts ExpandOptions) ([]string, error) {
	opts.Root = true
	return c.ExpandAddress(ctx, address, opts)
}

// ParseAddress labels the components of address.
func (c *Client) ParseAddress(ctx context.Context, address string, opts ParseOptions) ([]ParsedComponent, error) {
	if err := validateText([]string{"address"}, address); err != nil {
		return nil, c.rejected("parse_address", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, c.rejected("parse_address", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return nonEmpty(b.ParseAddress(ctx, address, opts))
}

// ClassifyLanguage ranks the languages address is likely written in.
func (c *Client) ClassifyLanguage(ctx context.Context, address string) ([]LanguageScore, error) {
	if err := validateText([]string{"address"}, address); err != nil {
		return nil, c.rejected("classify_language", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return nonEmpty(b.ClassifyLanguage(ctx, address))
}

// NormalizeString applies opts.String to the whole input. It fails when
// libpostal produces no result.
func (c *Client) NormalizeString(ctx context.Context, input string, opts NormalizeOptions) (string, error) {
	if err := validateText([]string{"input"}, input); err != nil {
		return "", c.rejected("normalize_string", err)
	}
	if err := opts.Validate(); err != nil {
		return "", c.rejected("normalize_string", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return "", err
	}
	defer release()
	return b.NormalizeString(ctx, input, opts)
}

// NormalizedTokens tokenizes input and normalizes each token.
func (c *Client) NormalizedTokens(ctx context.Context, input string, opts NormalizeOptions) ([]NormalizedToken, error) {
	if err := validateText([]string{"input"}, input); err != nil {
		return nil, c.rejected("normalized_tokens", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, c.rejected("normalized_tokens", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return nonEmpty(b.NormalizedTokens(ctx, input, opts))
}

// Tokenize splits input into typed byte spans. Whitespace tokens are only
// reported when whitespace is true.
func (c *Client) Tokenize(ctx context.Context, input string, whitespace bool) ([]Token, error) {
	if err := validateText([]string{"input"}, input); err != nil {
		return nil, c.rejected("tokenize", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return nonEmpty(b.Tokenize(ctx, input, whitespace))
}

// IsDuplicate runs the exact-duplicate comparison selected by kind.
func (c *Client) IsDuplicate(ctx context.Context, kind DuplicateKind, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error) {
	if !kind.Valid() {
		return NullDuplicate, c.rejected("is_duplicate",
			errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path("kind").Value(int(kind)).
				Detail("unknown duplicate kind %d", int(kind)).
				Build())
	}
	if err := validateText([]string{"value1"}, value1); err != nil {
		return NullDuplicate, c.rejected("is_duplicate", err)
	}
	if err := validateText([]string{"value2"}, value2); err != nil {
		return NullDuplicate, c.rejected("is_duplicate", err)
	}
	if err := opts.Validate(); err != nil {
		return NullDuplicate, c.rejected("is_duplicate", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return NullDuplicate, err
	}
	defer release()
	return b.IsDuplicate(ctx, kind, value1, value2, opts)
}

// IsNameDuplicate compares two venue or person names.
func (c *Client) IsNameDuplicate(ctx context.Context, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error) {
	return c.IsDuplicate(ctx, DuplicateName, value1, value2, opts)
}

// IsStreetDuplicate compares two street names.
func (c *Client) IsStreetDuplicate(ctx context.Context, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error) {
	return c.IsDuplicate(ctx, DuplicateStreet, value1, value2, opts)
}

// IsHouseNumberDuplicate compares two house numbers.
func (c *Client) IsHouseNumberDuplicate(ctx context.Context, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error) {
	return c.IsDuplicate(ctx, DuplicateHouseNumber, value1, value2, opts)
}

// IsPOBoxDuplicate compares two PO box numbers.
func (c *Client) IsPOBoxDuplicate(ctx context.Context, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error) {
	return c.IsDuplicate(ctx, DuplicatePOBox, value1, value2, opts)
}

// IsUnitDuplicate compares two unit designators such as apartment numbers.
func (c *Client) IsUnitDuplicate(ctx context.Context, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error) {
	return c.IsDuplicate(ctx, DuplicateUnit, value1, value2, opts)
}

// IsFloorDuplicate compares two floor or level designators.
func (c *Client) IsFloorDuplicate(ctx context.Context, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error) {
	return c.IsDuplicate(ctx, DuplicateFloor, value1, value2, opts)
}

// IsPostalCodeDuplicate compares two postal codes.
func (c *Client) IsPostalCodeDuplicate(ctx context.Context, value1, value2 string, opts DuplicateOptions) (DuplicateStatus, error) {
	return c.IsDuplicate(ctx, DuplicatePostalCode, value1, value2, opts)
}

// IsToponymDuplicate compares two labeled place records.
func (c *Client) IsToponymDuplicate(ctx context.Context, record1, record2 Components, opts DuplicateOptions) (DuplicateStatus, error) {
	if err := record1.validate([]string{"record1"}); err != nil {
		return NullDuplicate, c.rejected("is_toponym_duplicate", err)
	}
	if err := record2.validate([]string{"record2"}); err != nil {
		return NullDuplicate, c.rejected("is_toponym_duplicate", err)
	}
	if err := opts.Validate(); err != nil {
		return NullDuplicate, c.rejected("is_toponym_duplicate", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return NullDuplicate, err
	}
	defer release()
	return b.IsToponymDuplicate(ctx, record1, record2, opts)
}

// IsDuplicateFuzzy runs the fuzzy comparison selected by kind over two
// scored token sets.
func (c *Client) IsDuplicateFuzzy(ctx context.Context, kind FuzzyKind, tokens1, tokens2 FuzzyTokens, opts FuzzyDuplicateOptions) (FuzzyResult, error) {
	null := FuzzyResult{Status: NullDuplicate}
	if !kind.Valid() {
		return null, c.rejected("is_duplicate_fuzzy",
			errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path("kind").Value(int(kind)).
				Detail("unknown fuzzy duplicate kind %d", int(kind)).
				Build())
	}
	if err := tokens1.validate([]string{"tokens1"}); err != nil {
		return null, c.rejected("is_duplicate_fuzzy", err)
	}
	if err := tokens2.validate([]string{"tokens2"}); err != nil {
		return null, c.rejected("is_duplicate_fuzzy", err)
	}
	if err := opts.Validate(); err != nil {
		return null, c.rejected("is_duplicate_fuzzy", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return null, err
	}
	defer release()
	return b.IsDuplicateFuzzy(ctx, kind, tokens1, tokens2, opts)
}

// IsNameDuplicateFuzzy is IsDuplicateFuzzy for names.
func (c *Client) IsNameDuplicateFuzzy(ctx context.Context, tokens1, tokens2 FuzzyTokens, opts FuzzyDuplicateOptions) (FuzzyResult, error) {
	return c.IsDuplicateFuzzy(ctx, FuzzyName, tokens1, tokens2, opts)
}

// IsStreetDuplicateFuzzy is IsDuplicateFuzzy for street names.
func (c *Client) IsStreetDuplicateFuzzy(ctx context.Context, tokens1, tokens2 FuzzyTokens, opts FuzzyDuplicateOptions) (FuzzyResult, error) {
	return c.IsDuplicateFuzzy(ctx, FuzzyStreet, tokens1, tokens2, opts)
}

// NameHashes returns near-duplicate hashes for a venue or person name.
// DefaultNameHashOptions is the usual starting point for opts.
func (c *Client) NameHashes(ctx context.Context, name string, opts ExpandOptions) ([]string, error) {
	if err := validateText([]string{"name"}, name); err != nil {
		return nil, c.rejected("name_hashes", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, c.rejected("name_hashes", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return nonEmpty(b.NameHashes(ctx, name, opts))
}

// NearDupeHashes returns near-duplicate hashes for a labeled record. The
// language-aware native entry point is used when opts.Languages is non-empty.
func (c *Client) NearDupeHashes(ctx context.Context, record Components, opts NearDupeOptions) ([]string, error) {
	if err := record.validate([]string{"record"}); err != nil {
		return nil, c.rejected("near_dupe_hashes", err)
	}
	if err := opts.Validate(); err != nil {
		return nil, c.rejected("near_dupe_hashes", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	return nonEmpty(b.NearDupeHashes(ctx, record, opts))
}

// PlaceLanguages returns the languages libpostal associates with a labeled
// record. An empty record yields nil without a native call.
func (c *Client) PlaceLanguages(ctx context.Context, record Components) ([]string, error) {
	if err := record.validate([]string{"record"}); err != nil {
		return nil, c.rejected("place_languages", err)
	}
	b, release, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer release()
	if record.Len() == 0 {
		return nil, nil
	}
	return nonEmpty(b.PlaceLanguages(ctx, record))
}

// nonEmpty normalizes empty backend results to nil.
func nonEmpty[T any](values []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	return values, nil
}
