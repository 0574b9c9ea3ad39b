package postal

// AddressComponent is a bitmask of the address parts an expansion or hash
// should treat its input as.
type AddressComponent uint16

const (
	AddressNone        AddressComponent = 0
	AddressAny         AddressComponent = 1 << 0
	AddressName        AddressComponent = 1 << 1
	AddressHouseNumber AddressComponent = 1 << 2
	AddressStreet      AddressComponent = 1 << 3
	AddressUnit        AddressComponent = 1 << 4
	AddressLevel       AddressComponent = 1 << 5
	AddressStaircase   AddressComponent = 1 << 6
	AddressEntrance    AddressComponent = 1 << 7
	AddressCategory    AddressComponent = 1 << 8
	AddressNear        AddressComponent = 1 << 9
	AddressToponym     AddressComponent = 1 << 13
	AddressPostalCode  AddressComponent = 1 << 14
	AddressPOBox       AddressComponent = 1 << 15
	AddressAll         AddressComponent = (1 << 16) - 1
)

// StringOption is a bitmask controlling whole-string normalization.
type StringOption uint64

const (
	StringLatinASCII       StringOption = 1 << 0
	StringTransliterate    StringOption = 1 << 1
	StringStripAccents     StringOption = 1 << 2
	StringDecompose        StringOption = 1 << 3
	StringLowercase        StringOption = 1 << 4
	StringTrim             StringOption = 1 << 5
	StringReplaceHyphens   StringOption = 1 << 6
	StringCompose          StringOption = 1 << 7
	StringSimpleLatinASCII StringOption = 1 << 8
	StringReplaceNumex     StringOption = 1 << 9

	// DefaultStringOptions is LIBPOSTAL_NORMALIZE_DEFAULT_STRING_OPTIONS.
	DefaultStringOptions = StringLatinASCII | StringCompose | StringTrim |
		StringReplaceHyphens | StringStripAccents | StringLowercase
)

// TokenOption is a bitmask controlling per-token normalization.
type TokenOption uint64

const (
	TokenReplaceHyphens             TokenOption = 1 << 0
	TokenDeleteHyphens              TokenOption = 1 << 1
	TokenDeleteFinalPeriod          TokenOption = 1 << 2
	TokenDeleteAcronymPeriods       TokenOption = 1 << 3
	TokenDropEnglishPossessives     TokenOption = 1 << 4
	TokenDeleteOtherApostrophe      TokenOption = 1 << 5
	TokenSplitAlphaFromNumeric      TokenOption = 1 << 6
	TokenReplaceDigits              TokenOption = 1 << 7
	TokenReplaceNumericTokenLetters TokenOption = 1 << 8
	TokenReplaceNumericHyphens      TokenOption = 1 << 9

	DefaultTokenOptions = TokenReplaceHyphens | TokenDeleteFinalPeriod |
		TokenDeleteAcronymPeriods | TokenDropEnglishPossessives | TokenDeleteOtherApostrophe
	TokenOptionsDropPeriods    = TokenDeleteFinalPeriod | TokenDeleteAcronymPeriods
	DefaultTokenOptionsNumeric = DefaultTokenOptions | TokenSplitAlphaFromNumeric
)

// ExpandOptions mirrors libpostal_normalize_options_t. Use
// DefaultExpandOptions rather than the zero value; a zero ExpandOptions
// disables every transformation.
type ExpandOptions struct {
	Languages         []string         `json:"languages,omitempty" yaml:"languages"`
	AddressComponents AddressComponent `json:"address_components" yaml:"address_components"`

	LatinASCII             bool `json:"latin_ascii" yaml:"latin_ascii"`
	Transliterate          bool `json:"transliterate" yaml:"transliterate"`
	StripAccents           bool `json:"strip_accents" yaml:"strip_accents"`
	Decompose              bool `json:"decompose" yaml:"decompose"`
	Lowercase              bool `json:"lowercase" yaml:"lowercase"`
	TrimString             bool `json:"trim_string" yaml:"trim_string"`
	DropParentheticals     bool `json:"drop_parentheticals" yaml:"drop_parentheticals"`
	ReplaceNumericHyphens  bool `json:"replace_numeric_hyphens" yaml:"replace_numeric_hyphens"`
	DeleteNumericHyphens   bool `json:"delete_numeric_hyphens" yaml:"delete_numeric_hyphens"`
	SplitAlphaFromNumeric  bool `json:"split_alpha_from_numeric" yaml:"split_alpha_from_numeric"`
	ReplaceWordHyphens     bool `json:"replace_word_hyphens" yaml:"replace_word_hyphens"`
	DeleteWordHyphens      bool `json:"delete_word_hyphens" yaml:"delete_word_hyphens"`
	DeleteFinalPeriods     bool `json:"delete_final_periods" yaml:"delete_final_periods"`
	DeleteAcronymPeriods   bool `json:"delete_acronym_periods" yaml:"delete_acronym_periods"`
	DropEnglishPossessives bool `json:"drop_english_possessives" yaml:"drop_english_possessives"`
	DeleteApostrophes      bool `json:"delete_apostrophes" yaml:"delete_apostrophes"`
	ExpandNumex            bool `json:"expand_numex" yaml:"expand_numex"`
	RomanNumerals          bool `json:"roman_numerals" yaml:"roman_numerals"`

	// Root selects libpostal_expand_address_root, which strips affixes such
	// as street types so only the root of each expansion remains.
	Root bool `json:"root" yaml:"root"`
}

// DefaultExpandOptions returns libpostal_get_default_options.
func DefaultExpandOptions() ExpandOptions {
	return ExpandOptions{
		AddressComponents: AddressName | AddressHouseNumber | AddressStreet | AddressPOBox |
			AddressUnit | AddressLevel | AddressEntrance | AddressStaircase | AddressPostalCode,
		LatinASCII:             true,
		Transliterate:          true,
		StripAccents:           true,
		Decompose:              true,
		Lowercase:              true,
		TrimString:             true,
		DropParentheticals:     true,
		ReplaceNumericHyphens:  false,
		DeleteNumericHyphens:   false,
		SplitAlphaFromNumeric:  true,
		ReplaceWordHyphens:     true,
		DeleteWordHyphens:      true,
		DeleteFinalPeriods:     true,
		DeleteAcronymPeriods:   true,
		DropEnglishPossessives: true,
		DeleteApostrophes:      true,
		ExpandNumex:            true,
		RomanNumerals:          true,
	}
}

// DefaultNameHashOptions returns the expansion options used for name
// hashing: the defaults restricted to name and street components.
func DefaultNameHashOptions() ExpandOptions {
	opts := DefaultExpandOptions()
	opts.AddressComponents = AddressName | AddressStreet
	return opts
}

// NormalizeOptions configures NormalizeString and NormalizedTokens.
type NormalizeOptions struct {
	String StringOption `json:"string_options" yaml:"string_options"`
	Token  TokenOption  `json:"token_options" yaml:"token_options"`
	// Whitespace keeps whitespace tokens in NormalizedTokens output.
	Whitespace bool     `json:"whitespace" yaml:"whitespace"`
	Languages  []string `json:"languages,omitempty" yaml:"languages"`
}

// DefaultNormalizeOptions returns the libpostal default string and token
// options.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{
		String: DefaultStringOptions,
		Token:  DefaultTokenOptions,
	}
}

// DuplicateOptions mirrors libpostal_duplicate_options_t.
type DuplicateOptions struct {
	Languages []string `json:"languages,omitempty" yaml:"languages"`
}

// FuzzyDuplicateOptions mirrors libpostal_fuzzy_duplicate_options_t.
type FuzzyDuplicateOptions struct {
	Languages            []string `json:"languages,omitempty" yaml:"languages"`
	NeedsReviewThreshold float64  `json:"needs_review_threshold" yaml:"needs_review_threshold"`
	LikelyDupeThreshold  float64  `json:"likely_dupe_threshold" yaml:"likely_dupe_threshold"`
}

// DefaultFuzzyDuplicateOptions returns libpostal's default thresholds.
func DefaultFuzzyDuplicateOptions() FuzzyDuplicateOptions {
	return FuzzyDuplicateOptions{
		NeedsReviewThreshold: 0.7,
		LikelyDupeThreshold:  0.9,
	}
}

// NearDupeOptions mirrors libpostal_near_dupe_hash_options_t. Languages, when
// set, routes the call to libpostal_near_dupe_hashes_languages.
type NearDupeOptions struct {
	Languages []string `json:"languages,omitempty" yaml:"languages"`

	WithName                      bool `json:"with_name" yaml:"with_name"`
	WithAddress                   bool `json:"with_address" yaml:"with_address"`
	WithUnit                      bool `json:"with_unit" yaml:"with_unit"`
	WithCityOrEquivalent          bool `json:"with_city_or_equivalent" yaml:"with_city_or_equivalent"`
	WithSmallContainingBoundaries bool `json:"with_small_containing_boundaries" yaml:"with_small_containing_boundaries"`
	WithPostalCode                bool `json:"with_postal_code" yaml:"with_postal_code"`
	WithLatLon                    bool `json:"with_latlon" yaml:"with_latlon"`

	Latitude         float64 `json:"latitude" yaml:"latitude"`
	Longitude        float64 `json:"longitude" yaml:"longitude"`
	GeohashPrecision uint32  `json:"geohash_precision" yaml:"geohash_precision"`

	NameAndAddressKeys bool `json:"name_and_address_keys" yaml:"name_and_address_keys"`
	NameOnlyKeys       bool `json:"name_only_keys" yaml:"name_only_keys"`
	AddressOnlyKeys    bool `json:"address_only_keys" yaml:"address_only_keys"`
}

// DefaultNearDupeOptions returns libpostal_get_near_dupe_hash_default_options.
func DefaultNearDupeOptions() NearDupeOptions {
	return NearDupeOptions{
		WithName:                      true,
		WithAddress:                   true,
		WithCityOrEquivalent:          true,
		WithSmallContainingBoundaries: true,
		WithPostalCode:                true,
		GeohashPrecision:              6,
		NameAndAddressKeys:            true,
	}
}

// ParseOptions mirrors libpostal_address_parser_options_t. Empty fields let
// the parser infer language and country.
type ParseOptions struct {
	Language string `json:"language,omitempty" yaml:"language"`
	Country  string `json:"country,omitempty" yaml:"country"`
}
