package postal

import (
	"context"
	"go/ast"
	"go/parser"
	"go/token"
	"strings"
	"sync"
	"testing"

	"github.com/wippyai/postal/errors"
)

// recordingBackend returns canned results and counts calls per method.
type recordingBackend struct {
	mu     sync.Mutex
	calls  map[string]int
	closed int

	expansions []string
	parsed     []ParsedComponent
	languages  []LanguageScore
	tokens     []Token
	status     DuplicateStatus
	fuzzy      FuzzyResult
	hashes     []string
	places     []string
	err        error

	lastExpand   ExpandOptions
	lastNearDupe NearDupeOptions
	lastKind     DuplicateKind
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{calls: make(map[string]int)}
}

func (b *recordingBackend) hit(name string) {
	b.mu.Lock()
	b.calls[name]++
	b.mu.Unlock()
}

func (b *recordingBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *recordingBackend) ExpandAddress(_ context.Context, _ string, opts ExpandOptions) ([]string, error) {
	b.hit("ExpandAddress")
	b.lastExpand = opts
	return b.expansions, b.err
}

func (b *recordingBackend) ParseAddress(context.Context, string, ParseOptions) ([]ParsedComponent, error) {
	b.hit("ParseAddress")
	return b.parsed, b.err
}

func (b *recordingBackend) ClassifyLanguage(context.Context, string) ([]LanguageScore, error) {
	b.hit("ClassifyLanguage")
	return b.languages, b.err
}

func (b *recordingBackend) NormalizeString(_ context.Context, input string, _ NormalizeOptions) (string, error) {
	b.hit("NormalizeString")
	return strings.ToLower(input), b.err
}

func (b *recordingBackend) NormalizedTokens(context.Context, string, NormalizeOptions) ([]NormalizedToken, error) {
	b.hit("NormalizedTokens")
	return nil, b.err
}

func (b *recordingBackend) Tokenize(context.Context, string, bool) ([]Token, error) {
	b.hit("Tokenize")
	return b.tokens, b.err
}

func (b *recordingBackend) IsDuplicate(_ context.Context, kind DuplicateKind, _, _ string, _ DuplicateOptions) (DuplicateStatus, error) {
	b.hit("IsDuplicate")
	b.lastKind = kind
	return b.status, b.err
}

func (b *recordingBackend) IsToponymDuplicate(context.Context, Components, Components, DuplicateOptions) (DuplicateStatus, error) {
	b.hit("IsToponymDuplicate")
	return b.status, b.err
}

func (b *recordingBackend) IsDuplicateFuzzy(context.Context, FuzzyKind, FuzzyTokens, FuzzyTokens, FuzzyDuplicateOptions) (FuzzyResult, error) {
	b.hit("IsDuplicateFuzzy")
	return b.fuzzy, b.err
}

func (b *recordingBackend) NameHashes(context.Context, string, ExpandOptions) ([]string, error) {
	b.hit("NameHashes")
	return b.hashes, b.err
}

func (b *recordingBackend) NearDupeHashes(_ context.Context, _ Components, opts NearDupeOptions) ([]string, error) {
	b.hit("NearDupeHashes")
	b.lastNearDupe = opts
	return b.hashes, b.err
}

func (b *recordingBackend) PlaceLanguages(context.Context, Components) ([]string, error) {
	b.hit("PlaceLanguages")
	return b.places, b.err
}

func (b *recordingBackend) Close() error {
	b.mu.Lock()
	b.closed++
	b.mu.Unlock()
	return nil
}

func TestClient_RejectsBeforeBackend(t *testing.T) {
	ctx := context.Background()
	mismatched := Components{Labels: []string{"road", "city"}, Values: []string{"main st"}}
	good := Components{Labels: []string{"road"}, Values: []string{"main st"}}

	tests := []struct {
		name     string
		call     func(c *Client) error
		argument bool
		encoding bool
	}{
		{"expand invalid utf8", func(c *Client) error {
			_, err := c.ExpandAddress(ctx, "\xff", DefaultExpandOptions())
			return err
		}, false, true},
		{"expand long language", func(c *Client) error {
			opts := DefaultExpandOptions()
			opts.Languages = []string{"en", "engl"}
			_, err := c.ExpandAddress(ctx, "main st", opts)
			return err
		}, true, false},
		{"parse nul byte", func(c *Client) error {
			_, err := c.ParseAddress(ctx, "a\x00b", ParseOptions{})
			return err
		}, true, false},
		{"classify invalid utf8", func(c *Client) error {
			_, err := c.ClassifyLanguage(ctx, "\xc3")
			return err
		}, false, true},
		{"tokenize nul byte", func(c *Client) error {
			_, err := c.Tokenize(ctx, "\x00", false)
			return err
		}, true, false},
		{"duplicate unknown kind", func(c *Client) error {
			_, err := c.IsDuplicate(ctx, DuplicateKind(42), "a", "b", DuplicateOptions{})
			return err
		}, true, false},
		{"duplicate long language", func(c *Client) error {
			_, err := c.IsNameDuplicate(ctx, "a", "b", DuplicateOptions{Languages: []string{"deu_"}})
			return err
		}, true, false},
		{"toponym mismatched first", func(c *Client) error {
			_, err := c.IsToponymDuplicate(ctx, mismatched, good, DuplicateOptions{})
			return err
		}, true, false},
		{"toponym mismatched second", func(c *Client) error {
			_, err := c.IsToponymDuplicate(ctx, good, mismatched, DuplicateOptions{})
			return err
		}, true, false},
		{"fuzzy mismatched scores", func(c *Client) error {
			_, err := c.IsNameDuplicateFuzzy(ctx,
				FuzzyTokens{Tokens: []string{"a"}, Scores: []float64{1, 2}},
				FuzzyTokens{Tokens: []string{"a"}, Scores: []float64{1}},
				DefaultFuzzyDuplicateOptions())
			return err
		}, true, false},
		{"fuzzy threshold order", func(c *Client) error {
			opts := DefaultFuzzyDuplicateOptions()
			opts.NeedsReviewThreshold = 0.95
			_, err := c.IsStreetDuplicateFuzzy(ctx, FuzzyTokens{}, FuzzyTokens{}, opts)
			return err
		}, true, false},
		{"near dupe mismatched", func(c *Client) error {
			_, err := c.NearDupeHashes(ctx, mismatched, DefaultNearDupeOptions())
			return err
		}, true, false},
		{"near dupe geohash precision", func(c *Client) error {
			opts := DefaultNearDupeOptions()
			opts.WithLatLon = true
			opts.GeohashPrecision = 0
			_, err := c.NearDupeHashes(ctx, good, opts)
			return err
		}, true, false},
		{"place languages mismatched", func(c *Client) error {
			_, err := c.PlaceLanguages(ctx, mismatched)
			return err
		}, true, false},
		{"name hashes invalid utf8", func(c *Client) error {
			_, err := c.NameHashes(ctx, "caf\xe9", DefaultNameHashOptions())
			return err
		}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newRecordingBackend()
			c := New(backend)
			err := tt.call(c)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.IsArgument(err); got != tt.argument {
				t.Errorf("IsArgument = %v, want %v (%v)", got, tt.argument, err)
			}
			if got := errors.IsEncoding(err); got != tt.encoding {
				t.Errorf("IsEncoding = %v, want %v (%v)", got, tt.encoding, err)
			}
			if n := backend.total(); n != 0 {
				t.Errorf("backend called %d times before validation failed", n)
			}
		})
	}
}

func TestClient_EmptyResultsAreNil(t *testing.T) {
	ctx := context.Background()
	backend := newRecordingBackend()
	backend.expansions = []string{}
	backend.hashes = []string{}
	c := New(backend)

	exp, err := c.ExpandAddress(ctx, "", DefaultExpandOptions())
	if err != nil || exp != nil {
		t.Errorf("ExpandAddress = %v, %v; want nil, nil", exp, err)
	}
	parsed, err := c.ParseAddress(ctx, "", ParseOptions{})
	if err != nil || parsed != nil {
		t.Errorf("ParseAddress = %v, %v; want nil, nil", parsed, err)
	}
	hashes, err := c.NameHashes(ctx, "", DefaultNameHashOptions())
	if err != nil || hashes != nil {
		t.Errorf("NameHashes = %v, %v; want nil, nil", hashes, err)
	}
}

func TestClient_PlaceLanguagesEmptyRecord(t *testing.T) {
	backend := newRecordingBackend()
	c := New(backend)

	langs, err := c.PlaceLanguages(context.Background(), Components{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if langs != nil {
		t.Errorf("expected nil, got %v", langs)
	}
	if backend.calls["PlaceLanguages"] != 0 {
		t.Error("backend should not be called for an empty record")
	}
}

func TestClient_PlaceLanguages(t *testing.T) {
	backend := newRecordingBackend()
	backend.places = []string{"de"}
	c := New(backend)

	record := ComponentsFromPairs(
		ParsedComponent{Label: "city", Value: "berlin"},
		ParsedComponent{Label: "country", Value: "deutschland"},
	)
	langs, err := c.PlaceLanguages(context.Background(), record)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(langs) != 1 || langs[0] != "de" {
		t.Errorf("got %v", langs)
	}
}

func TestClient_ExpandAddressRoot(t *testing.T) {
	backend := newRecordingBackend()
	backend.expansions = []string{"main"}
	c := New(backend)

	got, err := c.ExpandAddressRoot(context.Background(), "Main St", DefaultExpandOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !backend.lastExpand.Root {
		t.Error("Root was not set on the backend call")
	}
	if len(got) != 1 || got[0] != "main" {
		t.Errorf("got %v", got)
	}
}

func TestClient_DuplicateHelpersDispatch(t *testing.T) {
	ctx := context.Background()
	backend := newRecordingBackend()
	backend.status = ExactDuplicate
	c := New(backend)

	helpers := []struct {
		kind DuplicateKind
		fn   func(context.Context, string, string, DuplicateOptions) (DuplicateStatus, error)
	}{
		{DuplicateName, c.IsNameDuplicate},
		{DuplicateStreet, c.IsStreetDuplicate},
		{DuplicateHouseNumber, c.IsHouseNumberDuplicate},
		{DuplicatePOBox, c.IsPOBoxDuplicate},
		{DuplicateUnit, c.IsUnitDuplicate},
		{DuplicateFloor, c.IsFloorDuplicate},
		{DuplicatePostalCode, c.IsPostalCodeDuplicate},
	}
	for _, h := range helpers {
		t.Run(h.kind.String(), func(t *testing.T) {
			status, err := h.fn(ctx, "same", "same", DuplicateOptions{Languages: []string{"en"}})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if status != ExactDuplicate {
				t.Errorf("status = %v", status)
			}
			if backend.lastKind != h.kind {
				t.Errorf("dispatched kind %v, want %v", backend.lastKind, h.kind)
			}
		})
	}
}

func TestClient_Closed(t *testing.T) {
	backend := newRecordingBackend()
	c := New(backend)

	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if backend.closed != 1 {
		t.Errorf("backend closed %d times", backend.closed)
	}
	if !c.Closed() {
		t.Error("Closed() = false")
	}

	_, err := c.ExpandAddress(context.Background(), "main st", DefaultExpandOptions())
	if errors.KindOf(err) != errors.KindNotInitialized {
		t.Errorf("expected not_initialized, got %v", err)
	}
	if backend.total() != 0 {
		t.Error("closed client reached the backend")
	}
}

func TestClient_NilBackend(t *testing.T) {
	c := New(nil)
	_, err := c.Tokenize(context.Background(), "x", false)
	if !errors.IsSetup(err) {
		t.Errorf("expected setup error, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("close on nil backend: %v", err)
	}
}

func TestClient_BackendErrorPassesThrough(t *testing.T) {
	backend := newRecordingBackend()
	backend.err = errors.Native("libpostal_tokenize", nil)
	backend.tokens = []Token{{Offset: 0, Length: 1}}
	c := New(backend)

	tokens, err := c.Tokenize(context.Background(), "x", false)
	if err == nil {
		t.Fatal("expected error")
	}
	if tokens != nil {
		t.Errorf("partial result leaked: %v", tokens)
	}
}

func TestClient_ConcurrentCallsAndClose(t *testing.T) {
	backend := newRecordingBackend()
	backend.tokens = []Token{{Offset: 0, Length: 4, Type: TokenWord}}
	c := New(backend)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, err := c.Tokenize(context.Background(), "main", false)
				if err != nil && errors.KindOf(err) != errors.KindNotInitialized {
					t.Errorf("unexpected error: %v", err)
					return
				}
			}
		}()
	}
	_ = c.Close()
	wg.Wait()
	if backend.closed != 1 {
		t.Errorf("backend closed %d times", backend.closed)
	}
}

func TestClientMethodsDocumented(t *testing.T) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, "postal.go", nil, parser.ParseComments)
	if err != nil {
		t.Fatal(err)
	}
	checked := 0
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Recv == nil || !fn.Name.IsExported() {
			continue
		}
		star, ok := fn.Recv.List[0].Type.(*ast.StarExpr)
		if !ok {
			continue
		}
		if id, ok := star.X.(*ast.Ident); !ok || id.Name != "Client" {
			continue
		}
		checked++
		if fn.Doc == nil || !strings.HasPrefix(fn.Doc.Text(), fn.Name.Name+" ") {
			t.Errorf("%s: Client.%s has no doc comment starting with its name", fset.Position(fn.Pos()), fn.Name.Name)
		}
	}
	if checked == 0 {
		t.Fatal("no Client methods found in postal.go")
	}
}
