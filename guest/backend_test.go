package guest

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
)

func openFake(t *testing.T, g *fakeGuest) *Backend {
	t.Helper()
	b, err := NewBackend(context.Background(), g, Config{
		DataDir:            "/srv/libpostal",
		Parser:             true,
		LanguageClassifier: true,
	})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	return b
}

func TestNewBackend_SetupAndTeardown(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	var dirs []string
	g.funcs[stepCore.setupDatadir] = func(g *fakeGuest, p []uint64) []uint64 {
		dirs = append(dirs, g.str(p[0]))
		return []uint64{1}
	}

	b := openFake(t, g)
	if len(dirs) != 1 || dirs[0] != GuestDataDir {
		t.Errorf("setup_datadir got %v", dirs)
	}
	want := []string{stepCore.setupDatadir, stepParser.setupDatadir, stepClassifier.setupDatadir}
	for i, name := range want {
		if g.calls[i] != name {
			t.Errorf("call %d = %s, want %s", i, g.calls[i], name)
		}
	}

	g.calls = nil
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	wantTeardown := []string{stepClassifier.teardown, stepParser.teardown, stepCore.teardown}
	if len(g.calls) != len(wantTeardown) {
		t.Fatalf("teardown calls %v", g.calls)
	}
	for i, name := range wantTeardown {
		if g.calls[i] != name {
			t.Errorf("teardown %d = %s, want %s", i, g.calls[i], name)
		}
	}
	if !g.closed {
		t.Error("module not closed")
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	g.assertNoLeaks(t)
}

func TestNewBackend_DefaultDataDir(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	b, err := NewBackend(context.Background(), g, Config{})
	if err != nil {
		t.Fatalf("NewBackend: %v", err)
	}
	defer b.Close()
	if len(g.calls) != 1 || g.calls[0] != stepCore.setup {
		t.Errorf("unexpected setup calls %v", g.calls)
	}
}

func TestNewBackend_SetupFailureUnwinds(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	g.funcs[stepClassifier.setupDatadir] = func(*fakeGuest, []uint64) []uint64 { return []uint64{0} }

	_, err := NewBackend(context.Background(), g, Config{DataDir: "/d", Parser: true, LanguageClassifier: true})
	if !errors.IsSetup(err) {
		t.Fatalf("expected setup error, got %v", err)
	}
	if g.called(stepParser.teardown) != 1 || g.called(stepCore.teardown) != 1 {
		t.Errorf("completed setups not torn down: %v", g.calls)
	}
	if g.called(stepClassifier.teardown) != 0 {
		t.Error("failed setup was torn down")
	}
	g.assertNoLeaks(t)
}

func TestNewBackend_NilModule(t *testing.T) {
	if _, err := NewBackend(context.Background(), nil, Config{}); errors.KindOf(err) != errors.KindNotInitialized {
		t.Errorf("expected not_initialized, got %v", err)
	}
}

func TestBackend_Closed(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	b := openFake(t, g)
	_ = b.Close()

	_, err := b.Tokenize(context.Background(), "x", false)
	if errors.KindOf(err) != errors.KindNotInitialized {
		t.Errorf("expected not_initialized, got %v", err)
	}
}

func TestBackend_ExpandAddress(t *testing.T) {
	tests := []struct {
		name  string
		root  bool
		entry string
	}{
		{"expand", false, fnExpandAddress},
		{"root", true, fnExpandAddressRoot},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGuest(t).withSetup()
			var input string
			var langs []string
			var components uint16
			var flags []uint8
			g.withStringArray(tt.entry, 2, []string{"main street", "main st"}, fnExpansionArrayDestroy)
			inner := g.funcs[tt.entry]
			g.funcs[tt.entry] = func(g *fakeGuest, p []uint64) []uint64 {
				input = g.str(p[0])
				opt := uint32(p[1])
				langs = g.strs(uint64(g.u32(opt+normOptLanguages)), uint64(g.u32(opt+normOptNumLanguages)))
				components = g.u16(opt + normOptComponents)
				for i := uint32(0); i < 18; i++ {
					flags = append(flags, g.u8(opt+normOptFlags+i))
				}
				return inner(g, p)
			}
			b := openFake(t, g)
			defer b.Close()

			opts := postal.DefaultExpandOptions()
			opts.Languages = []string{"en", "fr"}
			opts.Root = tt.root
			got, err := b.ExpandAddress(context.Background(), "Main St", opts)
			if err != nil {
				t.Fatalf("ExpandAddress: %v", err)
			}
			if len(got) != 2 || got[0] != "main street" || got[1] != "main st" {
				t.Errorf("got %v", got)
			}
			if input != "Main St" {
				t.Errorf("guest saw input %q", input)
			}
			if len(langs) != 2 || langs[0] != "en" || langs[1] != "fr" {
				t.Errorf("guest saw languages %v", langs)
			}
			if components != uint16(opts.AddressComponents) {
				t.Errorf("components = %#x", components)
			}
			// replace_numeric_hyphens and delete_numeric_hyphens sit at 7 and 8.
			want := []uint8{1, 1, 1, 1, 1, 1, 1, 0, 0, 1, 1, 1, 1, 1, 1, 1, 1, 1}
			for i := range want {
				if flags[i] != want[i] {
					t.Errorf("flag %d = %d, want %d", i, flags[i], want[i])
				}
			}
			if g.called(fnExpansionArrayDestroy) != 1 {
				t.Error("expansion array not destroyed")
			}
			g.assertNoLeaks(t)
		})
	}
}

func TestBackend_NullResultIsEmpty(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	g.withStringArray(fnExpandAddress, 2, nil, "")
	g.funcs[fnParseAddress] = func(*fakeGuest, []uint64) []uint64 { return []uint64{0} }
	g.funcs[fnClassifyLanguage] = func(*fakeGuest, []uint64) []uint64 { return []uint64{0} }
	b := openFake(t, g)
	defer b.Close()
	ctx := context.Background()

	if got, err := b.ExpandAddress(ctx, "", postal.DefaultExpandOptions()); err != nil || got != nil {
		t.Errorf("ExpandAddress = %v, %v", got, err)
	}
	if got, err := b.ParseAddress(ctx, "", postal.ParseOptions{}); err != nil || got != nil {
		t.Errorf("ParseAddress = %v, %v", got, err)
	}
	if got, err := b.ClassifyLanguage(ctx, ""); err != nil || got != nil {
		t.Errorf("ClassifyLanguage = %v, %v", got, err)
	}
	g.assertNoLeaks(t)
}

func TestBackend_NormalizeNullResultFails(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	g.funcs[fnNormalizeString] = func(*fakeGuest, []uint64) []uint64 { return []uint64{0} }
	g.funcs[fnNormalizeStringLangs] = func(*fakeGuest, []uint64) []uint64 { return []uint64{0} }
	c := postal.New(openFake(t, g))
	defer c.Close()
	ctx := context.Background()

	got, err := c.NormalizeString(ctx, "Main St", postal.DefaultNormalizeOptions())
	if errors.KindOf(err) != errors.KindNilPointer || got != "" {
		t.Fatalf("NormalizeString = %q, %v", got, err)
	}
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Phase != errors.PhaseNative || e.Entry != fnNormalizeString {
		t.Errorf("unexpected error %#v", err)
	}
	if errors.IsArgument(err) || errors.IsEncoding(err) {
		t.Errorf("native failure classified as caller error: %v", err)
	}

	opts := postal.DefaultNormalizeOptions()
	opts.Languages = []string{"en"}
	_, err = c.NormalizeString(ctx, "Main St", opts)
	if !stderrors.As(err, &e) || e.Entry != fnNormalizeStringLangs {
		t.Errorf("languages variant: %v", err)
	}
	g.assertNoLeaks(t)
}

func TestBackend_InvalidUTF8ResultReleased(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	g.withStringArray(fnPlaceLanguages, 3, []string{"en", "\xff\xfe"}, "")
	b := openFake(t, g)
	defer b.Close()

	record := postal.Components{Labels: []string{"city"}, Values: []string{"x"}}
	_, err := b.PlaceLanguages(context.Background(), record)
	if !errors.IsEncoding(err) {
		t.Fatalf("expected encoding error, got %v", err)
	}
	g.assertNoLeaks(t)
}

func TestBackend_AllocationFailureReleasesArena(t *testing.T) {
	// Count the mallocs one successful call makes, then fail each in turn.
	sizing := newFakeGuest(t).withSetup()
	sizing.withStringArray(fnNearDupeHashesLangs, 6, []string{"h1"}, "")
	b := openFake(t, sizing)
	record := postal.Components{Labels: []string{"house", "road"}, Values: []string{"a", "b"}}
	opts := postal.DefaultNearDupeOptions()
	opts.Languages = []string{"en"}
	before := sizing.mallocs
	if _, err := b.NearDupeHashes(context.Background(), record, opts); err != nil {
		t.Fatalf("sizing call: %v", err)
	}
	// The guest itself allocates the result array and one string.
	lowering := sizing.mallocs - before - 2
	_ = b.Close()
	if lowering < 5 {
		t.Fatalf("unexpectedly few lowering allocations: %d", lowering)
	}

	for k := 1; k <= lowering; k++ {
		g := newFakeGuest(t).withSetup()
		g.withStringArray(fnNearDupeHashesLangs, 6, []string{"h1"}, "")
		b := openFake(t, g)
		g.failMallocAt = g.mallocs + k

		_, err := b.NearDupeHashes(context.Background(), record, opts)
		if errors.KindOf(err) != errors.KindAllocation {
			t.Errorf("malloc %d: expected allocation error, got %v", k, err)
		}
		if g.called(fnNearDupeHashesLangs) != 0 {
			t.Errorf("malloc %d: native call made after failed lowering", k)
		}
		g.assertNoLeaks(t)
		_ = b.Close()
	}
}

func TestBackend_ParseAddress(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	var lang, country string
	g.funcs[fnParseAddress] = func(g *fakeGuest, p []uint64) []uint64 {
		opt := uint32(p[1])
		lang = g.str(uint64(g.u32(opt + parserOptLanguage)))
		country = g.str(uint64(g.u32(opt + parserOptCountry)))
		resp := g.malloc(12)
		g.putU32(resp+parserRespNumComponents, 2)
		g.putU32(resp+parserRespComponents, g.newStrs([]string{"781", "franklin ave"}))
		g.putU32(resp+parserRespLabels, g.newStrs([]string{"house_number", "road"}))
		return []uint64{uint64(resp)}
	}
	g.funcs[fnParserResponseDestroy] = func(g *fakeGuest, p []uint64) []uint64 {
		resp := uint32(p[0])
		n := g.u32(resp)
		g.freeStrs(g.u32(resp+parserRespComponents), n)
		g.freeStrs(g.u32(resp+parserRespLabels), n)
		g.free(resp)
		return nil
	}
	b := openFake(t, g)
	defer b.Close()

	got, err := b.ParseAddress(context.Background(), "781 Franklin Ave", postal.ParseOptions{Country: "us"})
	if err != nil {
		t.Fatalf("ParseAddress: %v", err)
	}
	want := []postal.ParsedComponent{{Value: "781", Label: "house_number"}, {Value: "franklin ave", Label: "road"}}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("component %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if lang != "" || country != "us" {
		t.Errorf("options lowered as language=%q country=%q", lang, country)
	}
	g.assertNoLeaks(t)
}

func TestBackend_ClassifyLanguage(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	g.funcs[fnClassifyLanguage] = func(g *fakeGuest, _ []uint64) []uint64 {
		resp := g.malloc(12)
		probs := g.malloc(16)
		g.putF64(probs, 0.76)
		g.putF64(probs+8, 0.23)
		g.putU32(resp+classifierRespNumLanguages, 2)
		g.putU32(resp+classifierRespLanguages, g.newStrs([]string{"en", "nl"}))
		g.putU32(resp+classifierRespProbs, probs)
		return []uint64{uint64(resp)}
	}
	g.funcs[fnClassifierRespDestroy] = func(g *fakeGuest, p []uint64) []uint64 {
		resp := uint32(p[0])
		g.freeStrs(g.u32(resp+classifierRespLanguages), g.u32(resp))
		g.free(g.u32(resp + classifierRespProbs))
		g.free(resp)
		return nil
	}
	b := openFake(t, g)
	defer b.Close()

	got, err := b.ClassifyLanguage(context.Background(), "Street Oudenoord, 1234")
	if err != nil {
		t.Fatalf("ClassifyLanguage: %v", err)
	}
	if len(got) != 2 || got[0].Language != "en" || got[0].Probability != 0.76 || got[1].Language != "nl" {
		t.Errorf("got %+v", got)
	}
	g.assertNoLeaks(t)
}

func TestBackend_NormalizeString(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		entry     string
	}{
		{"agnostic", nil, fnNormalizeString},
		{"languages", []string{"de"}, fnNormalizeStringLangs},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGuest(t).withSetup()
			var options uint64
			g.funcs[tt.entry] = func(g *fakeGuest, p []uint64) []uint64 {
				options = p[1]
				return []uint64{uint64(g.newStr("strasse"))}
			}
			b := openFake(t, g)
			defer b.Close()

			opts := postal.DefaultNormalizeOptions()
			opts.Languages = tt.languages
			got, err := b.NormalizeString(context.Background(), "Straße", opts)
			if err != nil {
				t.Fatalf("NormalizeString: %v", err)
			}
			if got != "strasse" {
				t.Errorf("got %q", got)
			}
			if options != uint64(postal.DefaultStringOptions) {
				t.Errorf("options = %#x", options)
			}
			g.assertNoLeaks(t)
		})
	}
}

func TestBackend_NormalizedTokens(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	var whitespace uint64
	g.funcs[fnNormalizedTokens] = func(g *fakeGuest, p []uint64) []uint64 {
		whitespace = p[3]
		arr := g.malloc(2 * normTokenSize)
		for i, tok := range []struct {
			s   string
			typ uint16
		}{{"main", 1}, {"st", 2}} {
			rec := arr + uint32(i)*normTokenSize
			g.putU32(rec+normTokenStr, g.newStr(tok.s))
			_ = g.mem.WriteU16(rec+normTokenToken+tokenType, tok.typ)
		}
		g.putU32(uint32(p[4]), 2)
		return []uint64{uint64(arr)}
	}
	b := openFake(t, g)
	defer b.Close()

	opts := postal.DefaultNormalizeOptions()
	opts.Whitespace = true
	got, err := b.NormalizedTokens(context.Background(), "Main St.", opts)
	if err != nil {
		t.Fatalf("NormalizedTokens: %v", err)
	}
	if len(got) != 2 || got[0].Text != "main" || got[1].Type != postal.TokenAbbreviation {
		t.Errorf("got %+v", got)
	}
	if whitespace != 1 {
		t.Error("whitespace flag not lowered")
	}
	g.assertNoLeaks(t)
}

func TestBackend_Tokenize(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	g.funcs[fnTokenize] = func(g *fakeGuest, p []uint64) []uint64 {
		arr := g.malloc(2 * tokenSize)
		g.putU32(arr+tokenOffset, 0)
		g.putU32(arr+tokenLen, 3)
		_ = g.mem.WriteU16(arr+tokenType, uint16(postal.TokenNumeric))
		g.putU32(arr+tokenSize+tokenOffset, 4)
		g.putU32(arr+tokenSize+tokenLen, 4)
		_ = g.mem.WriteU16(arr+tokenSize+tokenType, uint16(postal.TokenWord))
		g.putU32(uint32(p[2]), 2)
		return []uint64{uint64(arr)}
	}
	b := openFake(t, g)
	defer b.Close()

	input := "123 Main"
	got, err := b.Tokenize(context.Background(), input, false)
	if err != nil {
		t.Fatalf("Tokenize: %v", err)
	}
	if len(got) != 2 || got[0].Slice(input) != "123" || got[1].Slice(input) != "Main" {
		t.Errorf("got %+v", got)
	}
	if got[0].Type != postal.TokenNumeric || got[1].Type != postal.TokenWord {
		t.Errorf("types %v %v", got[0].Type, got[1].Type)
	}
	g.assertNoLeaks(t)
}

func TestBackend_IsDuplicate(t *testing.T) {
	for _, kind := range postal.DuplicateKinds() {
		t.Run(kind.String(), func(t *testing.T) {
			g := newFakeGuest(t).withSetup()
			entry := duplicateEntries[kind]
			var v1, v2 string
			var langs []string
			g.funcs[entry] = func(g *fakeGuest, p []uint64) []uint64 {
				v1, v2 = g.str(p[0]), g.str(p[1])
				opt := uint32(p[2])
				langs = g.strs(uint64(g.u32(opt+dupOptLanguages)), uint64(g.u32(opt+dupOptNumLanguages)))
				return []uint64{uint64(uint32(postal.ExactDuplicate))}
			}
			b := openFake(t, g)
			defer b.Close()

			status, err := b.IsDuplicate(context.Background(), kind, "a", "b", postal.DuplicateOptions{Languages: []string{"en"}})
			if err != nil {
				t.Fatalf("IsDuplicate: %v", err)
			}
			if status != postal.ExactDuplicate {
				t.Errorf("status = %v", status)
			}
			if v1 != "a" || v2 != "b" || len(langs) != 1 || langs[0] != "en" {
				t.Errorf("lowered %q %q %v", v1, v2, langs)
			}
			g.assertNoLeaks(t)
		})
	}
}

func TestBackend_NullDuplicateSignExtends(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	g.funcs[fnIsToponymDuplicate] = func(g *fakeGuest, p []uint64) []uint64 {
		if p[0] != 1 || p[3] != 2 {
			t.Errorf("component counts %d %d", p[0], p[3])
		}
		return []uint64{uint64(0xffffffff)}
	}
	b := openFake(t, g)
	defer b.Close()

	r1 := postal.Components{Labels: []string{"city"}, Values: []string{"berlin"}}
	r2 := postal.Components{Labels: []string{"city", "country"}, Values: []string{"berlin", "de"}}
	status, err := b.IsToponymDuplicate(context.Background(), r1, r2, postal.DuplicateOptions{})
	if err != nil {
		t.Fatalf("IsToponymDuplicate: %v", err)
	}
	if status != postal.NullDuplicate {
		t.Errorf("status = %d", int(status))
	}
	g.assertNoLeaks(t)
}

func TestBackend_IsDuplicateFuzzy(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	var review, likely float64
	var scores []float64
	g.funcs[fuzzyEntries[postal.FuzzyStreet]] = func(g *fakeGuest, p []uint64) []uint64 {
		sret := uint32(p[0])
		if p[1] != 2 || p[4] != 1 {
			t.Errorf("token counts %d %d", p[1], p[4])
		}
		scores = []float64{g.f64(uint32(p[3])), g.f64(uint32(p[3]) + 8)}
		opt := uint32(p[7])
		review, likely = g.f64(opt+fuzzyOptNeedsReview), g.f64(opt+fuzzyOptLikelyDupe)
		g.putU32(sret+fuzzyStatusStatus, uint32(postal.LikelyDuplicate))
		g.putF64(sret+fuzzyStatusSimilarity, 0.93)
		return nil
	}
	b := openFake(t, g)
	defer b.Close()

	res, err := b.IsDuplicateFuzzy(context.Background(), postal.FuzzyStreet,
		postal.FuzzyTokens{Tokens: []string{"main", "st"}, Scores: []float64{0.8, 0.2}},
		postal.FuzzyTokens{Tokens: []string{"main"}, Scores: []float64{1}},
		postal.DefaultFuzzyDuplicateOptions())
	if err != nil {
		t.Fatalf("IsDuplicateFuzzy: %v", err)
	}
	if res.Status != postal.LikelyDuplicate || res.Similarity != 0.93 {
		t.Errorf("got %+v", res)
	}
	if review != 0.7 || likely != 0.9 {
		t.Errorf("thresholds lowered as %v %v", review, likely)
	}
	if scores[0] != 0.8 || scores[1] != 0.2 {
		t.Errorf("scores lowered as %v", scores)
	}
	g.assertNoLeaks(t)
}

func TestBackend_NearDupeDispatch(t *testing.T) {
	tests := []struct {
		name      string
		languages []string
		entry     string
		nParam    int
	}{
		{"agnostic", nil, fnNearDupeHashes, 4},
		{"languages", []string{"en"}, fnNearDupeHashesLangs, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGuest(t).withSetup()
			g.withStringArray(tt.entry, tt.nParam, []string{"act|main st|123", "act|main st|nyc"}, "")
			var precision uint32
			var withLatLon uint8
			var lat float64
			inner := g.funcs[tt.entry]
			g.funcs[tt.entry] = func(g *fakeGuest, p []uint64) []uint64 {
				opt := uint32(p[3])
				precision = g.u32(opt + nearOptGeohashPrecision)
				withLatLon = g.u8(opt + nearOptWithLatLon)
				lat = g.f64(opt + nearOptLatitude)
				return inner(g, p)
			}
			b := openFake(t, g)
			defer b.Close()

			opts := postal.DefaultNearDupeOptions()
			opts.Languages = tt.languages
			opts.WithLatLon = true
			opts.Latitude = 40.7
			opts.GeohashPrecision = 7
			record := postal.Components{Labels: []string{"house_number", "road"}, Values: []string{"123", "main st"}}
			got, err := b.NearDupeHashes(context.Background(), record, opts)
			if err != nil {
				t.Fatalf("NearDupeHashes: %v", err)
			}
			if len(got) != 2 {
				t.Errorf("got %v", got)
			}
			if g.called(tt.entry) != 1 {
				t.Errorf("expected %s to be called", tt.entry)
			}
			if precision != 7 || withLatLon != 1 || lat != 40.7 {
				t.Errorf("options lowered as precision=%d latlon=%d lat=%v", precision, withLatLon, lat)
			}
			g.assertNoLeaks(t)
		})
	}
}

func TestBackend_NameHashes(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	g.withStringArray(fnNearDupeNameHashes, 2, []string{"name|jhn smth"}, "")
	b := openFake(t, g)
	defer b.Close()

	got, err := b.NameHashes(context.Background(), "John Smith", postal.DefaultNameHashOptions())
	if err != nil {
		t.Fatalf("NameHashes: %v", err)
	}
	if len(got) != 1 || got[0] != "name|jhn smth" {
		t.Errorf("got %v", got)
	}
	g.assertNoLeaks(t)
}

func TestBackend_NativeTrap(t *testing.T) {
	g := newFakeGuest(t).withSetup()
	b := openFake(t, g)
	defer b.Close()

	// No export registered: the fake reports the call as failed.
	_, err := b.Tokenize(context.Background(), "x", false)
	if err == nil {
		t.Fatal("expected error")
	}
	g.assertNoLeaks(t)
}
