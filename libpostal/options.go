//go:build cgo && libpostal

package libpostal

/*
#include <libpostal/libpostal.h>
*/
import "C"

import "github.com/wippyai/postal"

// nativeDefaults reports the default normalization bitmasks compiled into
// the linked libpostal.h.
func nativeDefaults() (postal.StringOption, postal.TokenOption) {
	return postal.StringOption(C.LIBPOSTAL_NORMALIZE_DEFAULT_STRING_OPTIONS),
		postal.TokenOption(C.LIBPOSTAL_NORMALIZE_DEFAULT_TOKEN_OPTIONS)
}

func (a *arena) normalizeOptions(o postal.ExpandOptions) C.libpostal_normalize_options_t {
	langs := a.strings(o.Languages)
	var c C.libpostal_normalize_options_t
	c.languages = langs.ptr()
	c.num_languages = langs.len()
	c.address_components = C.uint16_t(o.AddressComponents)
	c.latin_ascii = C.bool(o.LatinASCII)
	c.transliterate = C.bool(o.Transliterate)
	c.strip_accents = C.bool(o.StripAccents)
	c.decompose = C.bool(o.Decompose)
	c.lowercase = C.bool(o.Lowercase)
	c.trim_string = C.bool(o.TrimString)
	c.drop_parentheticals = C.bool(o.DropParentheticals)
	c.replace_numeric_hyphens = C.bool(o.ReplaceNumericHyphens)
	c.delete_numeric_hyphens = C.bool(o.DeleteNumericHyphens)
	c.split_alpha_from_numeric = C.bool(o.SplitAlphaFromNumeric)
	c.replace_word_hyphens = C.bool(o.ReplaceWordHyphens)
	c.delete_word_hyphens = C.bool(o.DeleteWordHyphens)
	c.delete_final_periods = C.bool(o.DeleteFinalPeriods)
	c.delete_acronym_periods = C.bool(o.DeleteAcronymPeriods)
	c.drop_english_possessives = C.bool(o.DropEnglishPossessives)
	c.delete_apostrophes = C.bool(o.DeleteApostrophes)
	c.expand_numex = C.bool(o.ExpandNumex)
	c.roman_numerals = C.bool(o.RomanNumerals)
	return c
}

func (a *arena) duplicateOptions(o postal.DuplicateOptions) C.libpostal_duplicate_options_t {
	langs := a.strings(o.Languages)
	var c C.libpostal_duplicate_options_t
	c.num_languages = langs.len()
	c.languages = langs.ptr()
	return c
}

func (a *arena) fuzzyOptions(o postal.FuzzyDuplicateOptions) C.libpostal_fuzzy_duplicate_options_t {
	langs := a.strings(o.Languages)
	var c C.libpostal_fuzzy_duplicate_options_t
	c.num_languages = langs.len()
	c.languages = langs.ptr()
	c.needs_review_threshold = C.double(o.NeedsReviewThreshold)
	c.likely_dupe_threshold = C.double(o.LikelyDupeThreshold)
	return c
}

func nearDupeOptions(o postal.NearDupeOptions) C.libpostal_near_dupe_hash_options_t {
	var c C.libpostal_near_dupe_hash_options_t
	c.with_name = C.bool(o.WithName)
	c.with_address = C.bool(o.WithAddress)
	c.with_unit = C.bool(o.WithUnit)
	c.with_city_or_equivalent = C.bool(o.WithCityOrEquivalent)
	c.with_small_containing_boundaries = C.bool(o.WithSmallContainingBoundaries)
	c.with_postal_code = C.bool(o.WithPostalCode)
	c.with_latlon = C.bool(o.WithLatLon)
	c.latitude = C.double(o.Latitude)
	c.longitude = C.double(o.Longitude)
	c.geohash_precision = C.uint32_t(o.GeohashPrecision)
	c.name_and_address_keys = C.bool(o.NameAndAddressKeys)
	c.name_only_keys = C.bool(o.NameOnlyKeys)
	c.address_only_keys = C.bool(o.AddressOnlyKeys)
	return c
}

func (a *arena) parserOptions(o postal.ParseOptions) C.libpostal_address_parser_options_t {
	var c C.libpostal_address_parser_options_t
	c.language = a.optionalCString(o.Language)
	c.country = a.optionalCString(o.Country)
	return c
}

// record lowers a labeled record to its labels and values arrays.
func (a *arena) record(r postal.Components) (labels, values *cStrings) {
	return a.strings(r.Labels), a.strings(r.Values)
}

func duplicateStatus(s C.libpostal_duplicate_status_t) postal.DuplicateStatus {
	return postal.DuplicateStatus(int(s))
}
