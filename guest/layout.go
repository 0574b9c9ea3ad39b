package guest

// wasm32 (ILP32) layouts of the libpostal structs crossing the boundary.
// Pointers and size_t are 4 bytes; doubles are 8-byte aligned.

const ptrSize = 4

// libpostal_normalize_options_t
const (
	normOptLanguages    = 0
	normOptNumLanguages = 4
	normOptComponents   = 8
	normOptFlags        = 10 // 18 consecutive bools
	normOptSize         = 28
	normOptAlign        = 4
)

// libpostal_duplicate_options_t
const (
	dupOptNumLanguages = 0
	dupOptLanguages    = 4
	dupOptSize         = 8
	dupOptAlign        = 4
)

// libpostal_fuzzy_duplicate_options_t
const (
	fuzzyOptNumLanguages = 0
	fuzzyOptLanguages    = 4
	fuzzyOptNeedsReview  = 8
	fuzzyOptLikelyDupe   = 16
	fuzzyOptSize         = 24
	fuzzyOptAlign        = 8
)

// libpostal_fuzzy_duplicate_status_t, returned through an sret pointer.
const (
	fuzzyStatusStatus     = 0
	fuzzyStatusSimilarity = 8
	fuzzyStatusSize       = 16
	fuzzyStatusAlign      = 8
)

// libpostal_near_dupe_hash_options_t
const (
	nearOptWithName                      = 0
	nearOptWithAddress                   = 1
	nearOptWithUnit                      = 2
	nearOptWithCityOrEquivalent          = 3
	nearOptWithSmallContainingBoundaries = 4
	nearOptWithPostalCode                = 5
	nearOptWithLatLon                    = 6
	nearOptLatitude                      = 8
	nearOptLongitude                     = 16
	nearOptGeohashPrecision              = 24
	nearOptNameAndAddressKeys            = 28
	nearOptNameOnlyKeys                  = 29
	nearOptAddressOnlyKeys               = 30
	nearOptSize                          = 32
	nearOptAlign                         = 8
)

// libpostal_address_parser_options_t
const (
	parserOptLanguage = 0
	parserOptCountry  = 4
	parserOptSize     = 8
	parserOptAlign    = 4
)

// libpostal_address_parser_response_t
const (
	parserRespNumComponents = 0
	parserRespComponents    = 4
	parserRespLabels        = 8
)

// libpostal_language_classifier_response_t
const (
	classifierRespNumLanguages = 0
	classifierRespLanguages    = 4
	classifierRespProbs        = 8
)

// libpostal_token_t and libpostal_normalized_token_t
const (
	tokenOffset = 0
	tokenLen    = 4
	tokenType   = 8
	tokenSize   = 12

	normTokenStr   = 0
	normTokenToken = 4
	normTokenSize  = 16
)
