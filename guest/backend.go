package guest

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
)

// Native entry points.
const (
	fnExpandAddress         = "libpostal_expand_address"
	fnExpandAddressRoot     = "libpostal_expand_address_root"
	fnExpansionArrayDestroy = "libpostal_expansion_array_destroy"
	fnParseAddress          = "libpostal_parse_address"
	fnParserResponseDestroy = "libpostal_address_parser_response_destroy"
	fnClassifyLanguage      = "libpostal_classify_language"
	fnClassifierRespDestroy = "libpostal_language_classifier_response_destroy"
	fnNormalizeString       = "libpostal_normalize_string"
	fnNormalizeStringLangs  = "libpostal_normalize_string_languages"
	fnNormalizedTokens      = "libpostal_normalized_tokens"
	fnNormalizedTokensLangs = "libpostal_normalized_tokens_languages"
	fnTokenize              = "libpostal_tokenize"
	fnIsToponymDuplicate    = "libpostal_is_toponym_duplicate"
	fnNearDupeNameHashes    = "libpostal_near_dupe_name_hashes"
	fnNearDupeHashes        = "libpostal_near_dupe_hashes"
	fnNearDupeHashesLangs   = "libpostal_near_dupe_hashes_languages"
	fnPlaceLanguages        = "libpostal_place_languages"
)

var duplicateEntries = map[postal.DuplicateKind]string{
	postal.DuplicateName:        "libpostal_is_name_duplicate",
	postal.DuplicateStreet:      "libpostal_is_street_duplicate",
	postal.DuplicateHouseNumber: "libpostal_is_house_number_duplicate",
	postal.DuplicatePOBox:       "libpostal_is_po_box_duplicate",
	postal.DuplicateUnit:        "libpostal_is_unit_duplicate",
	postal.DuplicateFloor:       "libpostal_is_floor_duplicate",
	postal.DuplicatePostalCode:  "libpostal_is_postal_code_duplicate",
}

var fuzzyEntries = map[postal.FuzzyKind]string{
	postal.FuzzyName:   "libpostal_is_name_duplicate_fuzzy",
	postal.FuzzyStreet: "libpostal_is_street_duplicate_fuzzy",
}

// Backend runs libpostal inside a wasm guest. Guest instances are single
// threaded, so calls are serialized.
type Backend struct {
	mod    Module
	steps  []setupStep
	mu     sync.Mutex
	closed bool
}

var _ postal.Backend = (*Backend)(nil)

// Load instantiates a libpostal guest from wasmBytes and runs its setup.
func Load(ctx context.Context, wasmBytes []byte, cfg Config) (*Backend, error) {
	mod, err := instantiate(ctx, wasmBytes, cfg)
	if err != nil {
		return nil, err
	}
	b, err := NewBackend(ctx, mod, cfg)
	if err != nil {
		if cerr := mod.Close(ctx); cerr != nil {
			Logger().Warn("failed to close guest after setup failure", zap.Error(cerr))
		}
		return nil, err
	}
	return b, nil
}

// LoadFile is Load with the module read from path.
func LoadFile(ctx context.Context, path string, cfg Config) (*Backend, error) {
	wasmBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "read guest module "+path)
	}
	return Load(ctx, wasmBytes, cfg)
}

// NewBackend runs the libpostal setups selected by cfg on an already
// instantiated module. On failure the setups that did succeed are torn down
// again; closing mod stays with the caller.
func NewBackend(ctx context.Context, mod Module, cfg Config) (*Backend, error) {
	if mod == nil || mod.Memory() == nil {
		return nil, errors.NotInitialized("guest module")
	}
	b := &Backend{mod: mod}
	for _, step := range cfg.steps() {
		if err := b.runSetup(ctx, step, cfg.DataDir != ""); err != nil {
			b.teardown(ctx)
			return nil, err
		}
		b.steps = append(b.steps, step)
	}
	Logger().Debug("libpostal guest ready", zap.Int("setups", len(b.steps)))
	return b, nil
}

func (b *Backend) runSetup(ctx context.Context, step setupStep, datadir bool) error {
	s := b.session(ctx)
	defer s.release()

	entry := step.setup
	var params []uint64
	if datadir {
		entry = step.setupDatadir
		dir, err := s.cstring(GuestDataDir)
		if err != nil {
			return err
		}
		params = append(params, uint64(dir))
	}
	ok, err := s.call(entry, params...)
	if err != nil {
		return errors.New(errors.PhaseSetup, errors.KindSetupFailed).
			Entry(entry).
			Cause(err).
			Build()
	}
	if uint32(ok) == 0 {
		return errors.SetupFailed(entry, "libpostal reported failure; check the data directory")
	}
	return nil
}

// teardown undoes completed setups in reverse order.
func (b *Backend) teardown(ctx context.Context) {
	for i := len(b.steps) - 1; i >= 0; i-- {
		name := b.steps[i].teardown
		if _, err := b.mod.Call(ctx, name); err != nil {
			Logger().Warn("teardown failed", zap.String("entry", name), zap.Error(err))
		}
	}
	b.steps = nil
}

// Close tears libpostal down and closes the guest.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	ctx := context.Background()
	b.teardown(ctx)
	return b.mod.Close(ctx)
}

// session is one serialized call: an arena over the guest heap plus the
// context the guest functions run under.
type session struct {
	*arena
	ctx context.Context
	mod Module
}

func (b *Backend) session(ctx context.Context) *session {
	return &session{
		arena: newArena(b.mod.Memory(), newHeapAllocator(ctx, b.mod)),
		ctx:   ctx,
		mod:   b.mod,
	}
}

// with runs fn under the instance lock with a fresh session.
func (b *Backend) with(ctx context.Context, fn func(s *session) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return errors.NotInitialized("guest backend")
	}
	s := b.session(ctx)
	defer s.release()
	return fn(s)
}

// call invokes name and returns its first result, or 0 for void functions.
func (s *session) call(name string, params ...uint64) (uint64, error) {
	results, err := s.mod.Call(s.ctx, name, params...)
	if err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0], nil
}

// destroy calls a libpostal destructor; failures are logged, not returned.
func (s *session) destroy(name string, params ...uint64) {
	if _, err := s.mod.Call(s.ctx, name, params...); err != nil {
		Logger().Warn("destroy failed", zap.String("entry", name), zap.Error(err))
	}
}

func (s *session) free(ptr uint32) {
	s.alloc.Free(ptr, 0, 1)
}

func (s *session) normalizeOptions(o postal.ExpandOptions) (uint32, error) {
	p, err := s.reserve(normOptSize, normOptAlign)
	if err != nil {
		return 0, err
	}
	langs, err := s.cstrings(o.Languages)
	if err != nil {
		return 0, err
	}
	if err := s.putU32(p+normOptLanguages, langs); err != nil {
		return 0, err
	}
	if err := s.putU32(p+normOptNumLanguages, uint32(len(o.Languages))); err != nil {
		return 0, err
	}
	if err := s.putU16(p+normOptComponents, uint16(o.AddressComponents)); err != nil {
		return 0, err
	}
	flags := [...]bool{
		o.LatinASCII,
		o.Transliterate,
		o.StripAccents,
		o.Decompose,
		o.Lowercase,
		o.TrimString,
		o.DropParentheticals,
		o.ReplaceNumericHyphens,
		o.DeleteNumericHyphens,
		o.SplitAlphaFromNumeric,
		o.ReplaceWordHyphens,
		o.DeleteWordHyphens,
		o.DeleteFinalPeriods,
		o.DeleteAcronymPeriods,
		o.DropEnglishPossessives,
		o.DeleteApostrophes,
		o.ExpandNumex,
		o.RomanNumerals,
	}
	for i, f := range flags {
		if err := s.putBool(p+normOptFlags+uint32(i), f); err != nil {
			return 0, err
		}
	}
	return p, nil
}

func (s *session) duplicateOptions(o postal.DuplicateOptions) (uint32, error) {
	p, err := s.reserve(dupOptSize, dupOptAlign)
	if err != nil {
		return 0, err
	}
	langs, err := s.cstrings(o.Languages)
	if err != nil {
		return 0, err
	}
	if err := s.putU32(p+dupOptNumLanguages, uint32(len(o.Languages))); err != nil {
		return 0, err
	}
	return p, s.putU32(p+dupOptLanguages, langs)
}

func (s *session) fuzzyOptions(o postal.FuzzyDuplicateOptions) (uint32, error) {
	p, err := s.reserve(fuzzyOptSize, fuzzyOptAlign)
	if err != nil {
		return 0, err
	}
	langs, err := s.cstrings(o.Languages)
	if err != nil {
		return 0, err
	}
	if err := s.putU32(p+fuzzyOptNumLanguages, uint32(len(o.Languages))); err != nil {
		return 0, err
	}
	if err := s.putU32(p+fuzzyOptLanguages, langs); err != nil {
		return 0, err
	}
	if err := s.putF64(p+fuzzyOptNeedsReview, o.NeedsReviewThreshold); err != nil {
		return 0, err
	}
	return p, s.putF64(p+fuzzyOptLikelyDupe, o.LikelyDupeThreshold)
}

func (s *session) nearDupeOptions(o postal.NearDupeOptions) (uint32, error) {
	p, err := s.reserve(nearOptSize, nearOptAlign)
	if err != nil {
		return 0, err
	}
	flags := []struct {
		off uint32
		v   bool
	}{
		{nearOptWithName, o.WithName},
		{nearOptWithAddress, o.WithAddress},
		{nearOptWithUnit, o.WithUnit},
		{nearOptWithCityOrEquivalent, o.WithCityOrEquivalent},
		{nearOptWithSmallContainingBoundaries, o.WithSmallContainingBoundaries},
		{nearOptWithPostalCode, o.WithPostalCode},
		{nearOptWithLatLon, o.WithLatLon},
		{nearOptNameAndAddressKeys, o.NameAndAddressKeys},
		{nearOptNameOnlyKeys, o.NameOnlyKeys},
		{nearOptAddressOnlyKeys, o.AddressOnlyKeys},
	}
	for _, f := range flags {
		if err := s.putBool(p+f.off, f.v); err != nil {
			return 0, err
		}
	}
	if err := s.putF64(p+nearOptLatitude, o.Latitude); err != nil {
		return 0, err
	}
	if err := s.putF64(p+nearOptLongitude, o.Longitude); err != nil {
		return 0, err
	}
	return p, s.putU32(p+nearOptGeohashPrecision, o.GeohashPrecision)
}

// record lowers a labeled record to its labels and values arrays.
func (s *session) record(c postal.Components) (labels, values uint32, err error) {
	if labels, err = s.cstrings(c.Labels); err != nil {
		return 0, 0, err
	}
	if values, err = s.cstrings(c.Values); err != nil {
		return 0, 0, err
	}
	return labels, values, nil
}

// stringArrayResult lifts and releases a char** result of *nPtr elements.
// destroy names a libpostal destructor; empty means element-then-block free.
func (s *session) stringArrayResult(arr, nPtr uint32, destroy string, path string) ([]string, error) {
	if arr == 0 {
		return nil, nil
	}
	n, err := readU32(s.mem, nPtr, path, "count")
	if err != nil {
		s.free(arr)
		return nil, err
	}
	if destroy != "" {
		defer s.destroy(destroy, uint64(arr), uint64(n))
	} else {
		defer freeStringArray(s.mem, s.alloc, arr, n)
	}
	return readCStrings(s.mem, arr, n, path)
}

func (b *Backend) ExpandAddress(ctx context.Context, input string, opts postal.ExpandOptions) ([]string, error) {
	entry := fnExpandAddress
	if opts.Root {
		entry = fnExpandAddressRoot
	}
	var out []string
	err := b.with(ctx, func(s *session) error {
		in, err := s.cstring(input)
		if err != nil {
			return err
		}
		optPtr, err := s.normalizeOptions(opts)
		if err != nil {
			return err
		}
		nPtr, err := s.out()
		if err != nil {
			return err
		}
		arr, err := s.call(entry, uint64(in), uint64(optPtr), uint64(nPtr))
		if err != nil {
			return err
		}
		out, err = s.stringArrayResult(uint32(arr), nPtr, fnExpansionArrayDestroy, "expansions")
		return err
	})
	return out, err
}

func (b *Backend) ParseAddress(ctx context.Context, input string, opts postal.ParseOptions) ([]postal.ParsedComponent, error) {
	var out []postal.ParsedComponent
	err := b.with(ctx, func(s *session) error {
		in, err := s.cstring(input)
		if err != nil {
			return err
		}
		optPtr, err := s.reserve(parserOptSize, parserOptAlign)
		if err != nil {
			return err
		}
		lang, err := s.optionalCString(opts.Language)
		if err != nil {
			return err
		}
		country, err := s.optionalCString(opts.Country)
		if err != nil {
			return err
		}
		if err := s.putU32(optPtr+parserOptLanguage, lang); err != nil {
			return err
		}
		if err := s.putU32(optPtr+parserOptCountry, country); err != nil {
			return err
		}
		resp, err := s.call(fnParseAddress, uint64(in), uint64(optPtr))
		if err != nil {
			return err
		}
		if uint32(resp) == 0 {
			return nil
		}
		defer s.destroy(fnParserResponseDestroy, resp)

		r := uint32(resp)
		n, err := readU32(s.mem, r+parserRespNumComponents, "response", "num_components")
		if err != nil {
			return err
		}
		compsPtr, err := readU32(s.mem, r+parserRespComponents, "response", "components")
		if err != nil {
			return err
		}
		labelsPtr, err := readU32(s.mem, r+parserRespLabels, "response", "labels")
		if err != nil {
			return err
		}
		comps, err := readCStrings(s.mem, compsPtr, n, "components")
		if err != nil {
			return err
		}
		labels, err := readCStrings(s.mem, labelsPtr, n, "labels")
		if err != nil {
			return err
		}
		out = make([]postal.ParsedComponent, n)
		for i := range out {
			out[i] = postal.ParsedComponent{Value: comps[i], Label: labels[i]}
		}
		return nil
	})
	return out, err
}

func (b *Backend) ClassifyLanguage(ctx context.Context, input string) ([]postal.LanguageScore, error) {
	var out []postal.LanguageScore
	err := b.with(ctx, func(s *session) error {
		in, err := s.cstring(input)
		if err != nil {
			return err
		}
		resp, err := s.call(fnClassifyLanguage, uint64(in))
		if err != nil {
			return err
		}
		if uint32(resp) == 0 {
			return nil
		}
		defer s.destroy(fnClassifierRespDestroy, resp)

		r := uint32(resp)
		n, err := readU32(s.mem, r+classifierRespNumLanguages, "response", "num_languages")
		if err != nil {
			return err
		}
		langsPtr, err := readU32(s.mem, r+classifierRespLanguages, "response", "languages")
		if err != nil {
			return err
		}
		probsPtr, err := readU32(s.mem, r+classifierRespProbs, "response", "probs")
		if err != nil {
			return err
		}
		langs, err := readCStrings(s.mem, langsPtr, n, "languages")
		if err != nil {
			return err
		}
		out = make([]postal.LanguageScore, n)
		for i := range out {
			p, err := readF64(s.mem, probsPtr+uint32(i)*8, "probs")
			if err != nil {
				out = nil
				return err
			}
			out[i] = postal.LanguageScore{Language: langs[i], Probability: p}
		}
		return nil
	})
	return out, err
}

func (b *Backend) NormalizeString(ctx context.Context, input string, opts postal.NormalizeOptions) (string, error) {
	var out string
	err := b.with(ctx, func(s *session) error {
		in, err := s.cstring(input)
		if err != nil {
			return err
		}
		var res uint64
		entry := fnNormalizeString
		if len(opts.Languages) > 0 {
			entry = fnNormalizeStringLangs
			langs, err := s.cstrings(opts.Languages)
			if err != nil {
				return err
			}
			res, err = s.call(entry, uint64(in), uint64(opts.String),
				uint64(len(opts.Languages)), uint64(langs))
			if err != nil {
				return err
			}
		} else {
			res, err = s.call(entry, uint64(in), uint64(opts.String))
			if err != nil {
				return err
			}
		}
		if uint32(res) == 0 {
			return errors.NilPointer(errors.PhaseNative, entry, "normalization produced no result")
		}
		defer s.free(uint32(res))
		out, err = readCString(s.mem, uint32(res), "normalized")
		return err
	})
	return out, err
}

func (b *Backend) NormalizedTokens(ctx context.Context, input string, opts postal.NormalizeOptions) ([]postal.NormalizedToken, error) {
	var out []postal.NormalizedToken
	err := b.with(ctx, func(s *session) error {
		in, err := s.cstring(input)
		if err != nil {
			return err
		}
		nPtr, err := s.out()
		if err != nil {
			return err
		}
		ws := uint64(0)
		if opts.Whitespace {
			ws = 1
		}
		var arr uint64
		if len(opts.Languages) > 0 {
			langs, err := s.cstrings(opts.Languages)
			if err != nil {
				return err
			}
			arr, err = s.call(fnNormalizedTokensLangs, uint64(in), uint64(opts.String), uint64(opts.Token), ws,
				uint64(len(opts.Languages)), uint64(langs), uint64(nPtr))
			if err != nil {
				return err
			}
		} else {
			arr, err = s.call(fnNormalizedTokens, uint64(in), uint64(opts.String), uint64(opts.Token), ws, uint64(nPtr))
			if err != nil {
				return err
			}
		}
		if uint32(arr) == 0 {
			return nil
		}
		base := uint32(arr)
		n, err := readU32(s.mem, nPtr, "tokens", "count")
		if err != nil {
			s.free(base)
			return err
		}
		defer func() {
			for i := uint32(0); i < n; i++ {
				if p, err := s.mem.ReadU32(base + i*normTokenSize + normTokenStr); err == nil {
					s.free(p)
				}
			}
			s.free(base)
		}()

		tokens := make([]postal.NormalizedToken, n)
		for i := uint32(0); i < n; i++ {
			rec := base + i*normTokenSize
			strPtr, err := readU32(s.mem, rec+normTokenStr, "tokens")
			if err != nil {
				return err
			}
			text, err := readCString(s.mem, strPtr, "tokens")
			if err != nil {
				return err
			}
			typ, err := readU16(s.mem, rec+normTokenToken+tokenType, "tokens")
			if err != nil {
				return err
			}
			tokens[i] = postal.NormalizedToken{Text: text, Type: postal.TokenType(typ)}
		}
		out = tokens
		return nil
	})
	return out, err
}

func (b *Backend) Tokenize(ctx context.Context, input string, whitespace bool) ([]postal.Token, error) {
	var out []postal.Token
	err := b.with(ctx, func(s *session) error {
		in, err := s.cstring(input)
		if err != nil {
			return err
		}
		nPtr, err := s.out()
		if err != nil {
			return err
		}
		ws := uint64(0)
		if whitespace {
			ws = 1
		}
		arr, err := s.call(fnTokenize, uint64(in), ws, uint64(nPtr))
		if err != nil {
			return err
		}
		if uint32(arr) == 0 {
			return nil
		}
		base := uint32(arr)
		defer s.free(base)
		n, err := readU32(s.mem, nPtr, "tokens", "count")
		if err != nil {
			return err
		}
		tokens := make([]postal.Token, n)
		for i := uint32(0); i < n; i++ {
			rec := base + i*tokenSize
			off, err := readU32(s.mem, rec+tokenOffset, "tokens")
			if err != nil {
				return err
			}
			length, err := readU32(s.mem, rec+tokenLen, "tokens")
			if err != nil {
				return err
			}
			typ, err := readU16(s.mem, rec+tokenType, "tokens")
			if err != nil {
				return err
			}
			tokens[i] = postal.Token{Offset: int(off), Length: int(length), Type: postal.TokenType(typ)}
		}
		out = tokens
		return nil
	})
	return out, err
}

func (b *Backend) IsDuplicate(ctx context.Context, kind postal.DuplicateKind, value1, value2 string, opts postal.DuplicateOptions) (postal.DuplicateStatus, error) {
	entry, ok := duplicateEntries[kind]
	if !ok {
		return postal.NullDuplicate, errors.InvalidInput(errors.PhaseValidate, []string{"kind"}, "unknown duplicate kind "+kind.String())
	}
	status := postal.NullDuplicate
	err := b.with(ctx, func(s *session) error {
		v1, err := s.cstring(value1)
		if err != nil {
			return err
		}
		v2, err := s.cstring(value2)
		if err != nil {
			return err
		}
		optPtr, err := s.duplicateOptions(opts)
		if err != nil {
			return err
		}
		res, err := s.call(entry, uint64(v1), uint64(v2), uint64(optPtr))
		if err != nil {
			return err
		}
		status = postal.DuplicateStatus(int32(uint32(res)))
		return nil
	})
	return status, err
}

func (b *Backend) IsToponymDuplicate(ctx context.Context, record1, record2 postal.Components, opts postal.DuplicateOptions) (postal.DuplicateStatus, error) {
	status := postal.NullDuplicate
	err := b.with(ctx, func(s *session) error {
		l1, v1, err := s.record(record1)
		if err != nil {
			return err
		}
		l2, v2, err := s.record(record2)
		if err != nil {
			return err
		}
		optPtr, err := s.duplicateOptions(opts)
		if err != nil {
			return err
		}
		res, err := s.call(fnIsToponymDuplicate,
			uint64(record1.Len()), uint64(l1), uint64(v1),
			uint64(record2.Len()), uint64(l2), uint64(v2),
			uint64(optPtr))
		if err != nil {
			return err
		}
		status = postal.DuplicateStatus(int32(uint32(res)))
		return nil
	})
	return status, err
}

func (b *Backend) IsDuplicateFuzzy(ctx context.Context, kind postal.FuzzyKind, tokens1, tokens2 postal.FuzzyTokens, opts postal.FuzzyDuplicateOptions) (postal.FuzzyResult, error) {
	result := postal.FuzzyResult{Status: postal.NullDuplicate}
	entry, ok := fuzzyEntries[kind]
	if !ok {
		return result, errors.InvalidInput(errors.PhaseValidate, []string{"kind"}, "unknown fuzzy duplicate kind "+kind.String())
	}
	err := b.with(ctx, func(s *session) error {
		t1, err := s.cstrings(tokens1.Tokens)
		if err != nil {
			return err
		}
		s1, err := s.float64s(tokens1.Scores)
		if err != nil {
			return err
		}
		t2, err := s.cstrings(tokens2.Tokens)
		if err != nil {
			return err
		}
		s2, err := s.float64s(tokens2.Scores)
		if err != nil {
			return err
		}
		optPtr, err := s.fuzzyOptions(opts)
		if err != nil {
			return err
		}
		sret, err := s.reserve(fuzzyStatusSize, fuzzyStatusAlign)
		if err != nil {
			return err
		}
		if _, err := s.call(entry, uint64(sret),
			uint64(len(tokens1.Tokens)), uint64(t1), uint64(s1),
			uint64(len(tokens2.Tokens)), uint64(t2), uint64(s2),
			uint64(optPtr)); err != nil {
			return err
		}
		st, err := readU32(s.mem, sret+fuzzyStatusStatus, "status")
		if err != nil {
			return err
		}
		sim, err := readF64(s.mem, sret+fuzzyStatusSimilarity, "similarity")
		if err != nil {
			return err
		}
		result = postal.FuzzyResult{Status: postal.DuplicateStatus(int32(st)), Similarity: sim}
		return nil
	})
	return result, err
}

func (b *Backend) NameHashes(ctx context.Context, name string, opts postal.ExpandOptions) ([]string, error) {
	var out []string
	err := b.with(ctx, func(s *session) error {
		in, err := s.cstring(name)
		if err != nil {
			return err
		}
		optPtr, err := s.normalizeOptions(opts)
		if err != nil {
			return err
		}
		nPtr, err := s.out()
		if err != nil {
			return err
		}
		arr, err := s.call(fnNearDupeNameHashes, uint64(in), uint64(optPtr), uint64(nPtr))
		if err != nil {
			return err
		}
		out, err = s.stringArrayResult(uint32(arr), nPtr, "", "hashes")
		return err
	})
	return out, err
}

func (b *Backend) NearDupeHashes(ctx context.Context, record postal.Components, opts postal.NearDupeOptions) ([]string, error) {
	var out []string
	err := b.with(ctx, func(s *session) error {
		labels, values, err := s.record(record)
		if err != nil {
			return err
		}
		optPtr, err := s.nearDupeOptions(opts)
		if err != nil {
			return err
		}
		nPtr, err := s.out()
		if err != nil {
			return err
		}
		var arr uint64
		if len(opts.Languages) > 0 {
			langs, err := s.cstrings(opts.Languages)
			if err != nil {
				return err
			}
			arr, err = s.call(fnNearDupeHashesLangs,
				uint64(record.Len()), uint64(labels), uint64(values), uint64(optPtr),
				uint64(len(opts.Languages)), uint64(langs), uint64(nPtr))
			if err != nil {
				return err
			}
		} else {
			arr, err = s.call(fnNearDupeHashes,
				uint64(record.Len()), uint64(labels), uint64(values), uint64(optPtr), uint64(nPtr))
			if err != nil {
				return err
			}
		}
		out, err = s.stringArrayResult(uint32(arr), nPtr, "", "hashes")
		return err
	})
	return out, err
}

func (b *Backend) PlaceLanguages(ctx context.Context, record postal.Components) ([]string, error) {
	var out []string
	err := b.with(ctx, func(s *session) error {
		labels, values, err := s.record(record)
		if err != nil {
			return err
		}
		nPtr, err := s.out()
		if err != nil {
			return err
		}
		arr, err := s.call(fnPlaceLanguages, uint64(record.Len()), uint64(labels), uint64(values), uint64(nPtr))
		if err != nil {
			return err
		}
		out, err = s.stringArrayResult(uint32(arr), nPtr, "", "languages")
		return err
	})
	return out, err
}
