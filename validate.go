package postal

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/wippyai/postal/errors"
)

// Geohash precision bounds accepted by libpostal near-dupe hashing.
const (
	MinGeohashPrecision = 1
	MaxGeohashPrecision = 12
)

func joinPath(base []string, elem ...string) []string {
	path := make([]string, 0, len(base)+len(elem))
	path = append(path, base...)
	return append(path, elem...)
}

// validateText checks that s can cross into native code as a
// NUL-terminated UTF-8 string.
func validateText(path []string, s string) error {
	if !utf8.ValidString(s) {
		return errors.InvalidUTF8(errors.PhaseValidate, path, []byte(s))
	}
	if i := strings.IndexByte(s, 0); i >= 0 {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path(path...).
			Value(i).
			Detail("embedded NUL byte at offset %d", i).
			Build()
	}
	return nil
}

func validateTexts(path []string, values []string) error {
	for i, v := range values {
		if err := validateText(joinPath(path, strconv.Itoa(i)), v); err != nil {
			return err
		}
	}
	return nil
}

// validateLanguages checks every code against MaxLanguageLen.
func validateLanguages(path []string, languages []string) error {
	for i, lang := range languages {
		p := joinPath(path, strconv.Itoa(i))
		if err := validateText(p, lang); err != nil {
			return err
		}
		if len(lang) >= MaxLanguageLen {
			return errors.TooLong(p, lang, MaxLanguageLen)
		}
	}
	return nil
}

// Validate checks that labels and values are parallel and encodable.
func (c Components) Validate() error {
	return c.validate(nil)
}

func (c Components) validate(path []string) error {
	if len(c.Labels) != len(c.Values) {
		return errors.LengthMismatch(path, "labels", "values", len(c.Labels), len(c.Values))
	}
	if err := validateTexts(joinPath(path, "labels"), c.Labels); err != nil {
		return err
	}
	return validateTexts(joinPath(path, "values"), c.Values)
}

// Validate checks that tokens and scores are parallel, encodable and finite.
func (f FuzzyTokens) Validate() error {
	return f.validate(nil)
}

func (f FuzzyTokens) validate(path []string) error {
	if len(f.Tokens) != len(f.Scores) {
		return errors.LengthMismatch(path, "tokens", "scores", len(f.Tokens), len(f.Scores))
	}
	if err := validateTexts(joinPath(path, "tokens"), f.Tokens); err != nil {
		return err
	}
	for i, s := range f.Scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path(joinPath(path, "scores", strconv.Itoa(i))...).
				Value(s).
				Detail("score must be finite").
				Build()
		}
	}
	return nil
}

// Validate checks the language list.
func (o ExpandOptions) Validate() error {
	return validateLanguages([]string{"languages"}, o.Languages)
}

// Validate checks the language list.
func (o NormalizeOptions) Validate() error {
	return validateLanguages([]string{"languages"}, o.Languages)
}

// Validate checks the language list.
func (o DuplicateOptions) Validate() error {
	return validateLanguages([]string{"languages"}, o.Languages)
}

// Validate checks the language list and that both thresholds lie in [0,1]
// with NeedsReviewThreshold <= LikelyDupeThreshold.
func (o FuzzyDuplicateOptions) Validate() error {
	if err := validateLanguages([]string{"languages"}, o.Languages); err != nil {
		return err
	}
	for _, th := range []struct {
		name  string
		value float64
	}{
		{"needs_review_threshold", o.NeedsReviewThreshold},
		{"likely_dupe_threshold", o.LikelyDupeThreshold},
	} {
		if math.IsNaN(th.value) || th.value < 0 || th.value > 1 {
			return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
				Path(th.name).
				Value(th.value).
				Detail("threshold %v outside [0, 1]", th.value).
				Build()
		}
	}
	if o.NeedsReviewThreshold > o.LikelyDupeThreshold {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("needs_review_threshold").
			Value(o.NeedsReviewThreshold).
			Detail("needs-review threshold %v exceeds likely-dupe threshold %v",
				o.NeedsReviewThreshold, o.LikelyDupeThreshold).
			Build()
	}
	return nil
}

// Validate checks the language list and, when WithLatLon is set, the
// coordinates and geohash precision.
func (o NearDupeOptions) Validate() error {
	if err := validateLanguages([]string{"languages"}, o.Languages); err != nil {
		return err
	}
	if !o.WithLatLon {
		return nil
	}
	if math.IsNaN(o.Latitude) || o.Latitude < -90 || o.Latitude > 90 {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("latitude").Value(o.Latitude).
			Detail("latitude %v outside [-90, 90]", o.Latitude).
			Build()
	}
	if math.IsNaN(o.Longitude) || o.Longitude < -180 || o.Longitude > 180 {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("longitude").Value(o.Longitude).
			Detail("longitude %v outside [-180, 180]", o.Longitude).
			Build()
	}
	if o.GeohashPrecision < MinGeohashPrecision || o.GeohashPrecision > MaxGeohashPrecision {
		return errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Path("geohash_precision").Value(o.GeohashPrecision).
			Detail("geohash precision %d outside [%d, %d]",
				o.GeohashPrecision, MinGeohashPrecision, MaxGeohashPrecision).
			Build()
	}
	return nil
}

// Validate checks that language and country are encodable.
func (o ParseOptions) Validate() error {
	if err := validateText([]string{"language"}, o.Language); err != nil {
		return err
	}
	return validateText([]string{"country"}, o.Country)
}
