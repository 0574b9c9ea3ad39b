package instrument

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
	"github.com/wippyai/postal/postaltest"
)

type fixture struct {
	fake     *postaltest.Backend
	backend  *Backend
	metrics  *Metrics
	registry *prometheus.Registry
	spans    *tracetest.SpanRecorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := prometheus.NewRegistry()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	fake := postaltest.New()
	m := NewMetrics(reg)
	return &fixture{
		fake:     fake,
		backend:  Wrap(fake, WithMetrics(m), WithTracerProvider(tp)),
		metrics:  m,
		registry: reg,
		spans:    sr,
	}
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestWrap_RecordsSuccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.backend.ParseAddress(ctx, "781 Franklin Ave", postal.ParseOptions{Country: "us"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallsTotal.WithLabelValues(OpParseAddress, OutcomeOK)))
	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.CallDurationSeconds))

	spans := f.spans.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "postal."+OpParseAddress, spans[0].Name())
	results, ok := spanAttr(spans[0], "postal.results")
	require.True(t, ok)
	assert.Equal(t, int64(2), results.AsInt64())
	country, ok := spanAttr(spans[0], "postal.country")
	require.True(t, ok)
	assert.Equal(t, "us", country.AsString())
}

func TestWrap_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		empty   bool
		outcome string
	}{
		{name: "ok", outcome: OutcomeOK},
		{name: "empty", empty: true, outcome: OutcomeEmpty},
		{name: "argument", err: errors.LengthMismatch([]string{"record"}, "labels", "values", 1, 2), outcome: OutcomeArgument},
		{name: "encoding", err: errors.InvalidUTF8(errors.PhaseDecode, nil, []byte{0xff}), outcome: OutcomeEncoding},
		{name: "other", err: errors.NotInitialized("backend"), outcome: OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.fake.Err = tt.err
			if tt.empty {
				f.fake.Expansions = nil
			}

			_, err := f.backend.ExpandAddress(context.Background(), "x", postal.DefaultExpandOptions())
			assert.Equal(t, tt.err, err)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallsTotal.WithLabelValues(OpExpandAddress, tt.outcome)))

			spans := f.spans.Ended()
			require.Len(t, spans, 1)
			if tt.err != nil {
				assert.Equal(t, codes.Error, spans[0].Status().Code)
				assert.NotEmpty(t, spans[0].Events(), "error should be recorded as an event")
			} else {
				assert.NotEqual(t, codes.Error, spans[0].Status().Code)
			}
		})
	}
}

func TestWrap_RootAndKindLabels(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	opts := postal.DefaultExpandOptions()
	opts.Root = true
	opts.Languages = []string{"en"}
	_, err := f.backend.ExpandAddress(ctx, "Main St", opts)
	require.NoError(t, err)

	_, err = f.backend.IsDuplicate(ctx, postal.DuplicateStreet, "a", "b", postal.DuplicateOptions{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallsTotal.WithLabelValues(OpExpandAddressRoot, OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallsTotal.WithLabelValues(OpIsDuplicate, OutcomeOK)))
	assert.Equal(t, []string{"ExpandAddressRoot", "IsDuplicate:street"}, f.fake.Calls())

	spans := f.spans.Ended()
	require.Len(t, spans, 2)
	langs, ok := spanAttr(spans[0], "postal.languages")
	require.True(t, ok)
	assert.Equal(t, []string{"en"}, langs.AsStringSlice())
	kind, ok := spanAttr(spans[1], "postal.kind")
	require.True(t, ok)
	assert.Equal(t, "street", kind.AsString())
}

func TestWrap_NullStatusIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.fake.Status = postal.NullDuplicate

	status, err := f.backend.IsToponymDuplicate(context.Background(), postal.Components{}, postal.Components{}, postal.DuplicateOptions{})
	require.NoError(t, err)
	assert.Equal(t, postal.NullDuplicate, status)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CallsTotal.WithLabelValues(OpIsToponymDuplicate, OutcomeEmpty)))
}

func TestWrap_EveryOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	record := postal.Components{Labels: []string{"city"}, Values: []string{"brooklyn"}}
	tokens := postal.FuzzyTokens{Tokens: []string{"main"}, Scores: []float64{1}}

	_, _ = f.backend.ExpandAddress(ctx, "x", postal.DefaultExpandOptions())
	_, _ = f.backend.ParseAddress(ctx, "x", postal.ParseOptions{})
	_, _ = f.backend.ClassifyLanguage(ctx, "x")
	_, _ = f.backend.NormalizeString(ctx, "x", postal.DefaultNormalizeOptions())
	_, _ = f.backend.NormalizedTokens(ctx, "x", postal.DefaultNormalizeOptions())
	_, _ = f.backend.Tokenize(ctx, "x", false)
	_, _ = f.backend.IsDuplicate(ctx, postal.DuplicateName, "a", "b", postal.DuplicateOptions{})
	_, _ = f.backend.IsToponymDuplicate(ctx, record, record, postal.DuplicateOptions{})
	_, _ = f.backend.IsDuplicateFuzzy(ctx, postal.FuzzyName, tokens, tokens, postal.DefaultFuzzyDuplicateOptions())
	_, _ = f.backend.NameHashes(ctx, "x", postal.DefaultNameHashOptions())
	_, _ = f.backend.NearDupeHashes(ctx, record, postal.DefaultNearDupeOptions())
	_, _ = f.backend.PlaceLanguages(ctx, record)

	assert.Len(t, f.fake.Calls(), 12)
	assert.Len(t, f.spans.Ended(), 12)
	assert.Equal(t, 12, testutil.CollectAndCount(f.metrics.CallsTotal))
	assert.Equal(t, 12, testutil.CollectAndCount(f.metrics.Results))

	require.NoError(t, f.backend.Close())
	assert.True(t, f.fake.Closed())
	assert.Same(t, f.fake, f.backend.Unwrap())
}

func TestNewMetrics_Registers(t *testing.T) {
	f := newFixture(t)
	_, err := f.backend.Tokenize(context.Background(), "x", false)
	require.NoError(t, err)

	families, err := f.registry.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, mf := range families {
		names = append(names, mf.GetName())
	}
	assert.ElementsMatch(t, []string{
		"postal_calls_total",
		"postal_call_duration_seconds",
		"postal_results",
	}, names)
}

func TestThroughClient(t *testing.T) {
	f := newFixture(t)
	c := postal.New(f.backend)
	defer c.Close()

	// Rejected arguments never reach the instrumented backend.
	_, err := c.ExpandAddress(context.Background(), "bad\x00input", postal.DefaultExpandOptions())
	require.True(t, errors.IsArgument(err))
	assert.Empty(t, f.spans.Ended())
	assert.Equal(t, 0, testutil.CollectAndCount(f.metrics.CallsTotal))
}
