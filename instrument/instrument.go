// Package instrument decorates a postal.Backend with Prometheus metrics and
// OpenTelemetry spans.
package instrument

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
)

const tracerName = "github.com/wippyai/postal/instrument"

// Operation names used for the op label and span names.
const (
	OpExpandAddress      = "expand_address"
	OpExpandAddressRoot  = "expand_address_root"
	OpParseAddress       = "parse_address"
	OpClassifyLanguage   = "classify_language"
	OpNormalizeString    = "normalize_string"
	OpNormalizedTokens   = "normalized_tokens"
	OpTokenize           = "tokenize"
	OpIsDuplicate        = "is_duplicate"
	OpIsToponymDuplicate = "is_toponym_duplicate"
	OpIsDuplicateFuzzy   = "is_duplicate_fuzzy"
	OpNameHashes         = "name_hashes"
	OpNearDupeHashes     = "near_dupe_hashes"
	OpPlaceLanguages     = "place_languages"
)

type Option func(*Backend)

// WithMetrics records into m instead of DefaultMetrics().
func WithMetrics(m *Metrics) Option {
	return func(b *Backend) {
		b.metrics = m
	}
}

// WithTracerProvider takes spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(b *Backend) {
		b.tracer = tp.Tracer(tracerName)
	}
}

// Backend wraps another backend and observes every call.
type Backend struct {
	next    postal.Backend
	metrics *Metrics
	tracer  trace.Tracer
}

var _ postal.Backend = (*Backend)(nil)

// Wrap returns next decorated with metrics and tracing.
func Wrap(next postal.Backend, opts ...Option) *Backend {
	b := &Backend{next: next}
	for _, opt := range opts {
		opt(b)
	}
	if b.metrics == nil {
		b.metrics = DefaultMetrics()
	}
	if b.tracer == nil {
		b.tracer = otel.Tracer(tracerName)
	}
	return b
}

// Unwrap returns the decorated backend.
func (b *Backend) Unwrap() postal.Backend {
	return b.next
}

// outcome classifies a finished call for the outcome label.
func outcome(n int, err error) string {
	switch {
	case err == nil && n == 0:
		return OutcomeEmpty
	case err == nil:
		return OutcomeOK
	case errors.IsArgument(err):
		return OutcomeArgument
	case errors.IsEncoding(err):
		return OutcomeEncoding
	default:
		return OutcomeError
	}
}

// observe runs fn inside a span and records its latency, outcome and
// result count. fn reports how many items it produced.
func (b *Backend) observe(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) (int, error)) error {
	ctx, span := b.tracer.Start(ctx, "postal."+op,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(append(attrs, attribute.String("postal.op", op))...),
	)
	defer span.End()

	start := time.Now()
	n, err := fn(ctx)
	b.metrics.CallDurationSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())
	b.metrics.CallsTotal.WithLabelValues(op, outcome(n, err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if kind := errors.KindOf(err); kind != "" {
			span.SetAttributes(attribute.String("postal.error_kind", string(kind)))
		}
		return err
	}
	b.metrics.Results.WithLabelValues(op).Observe(float64(n))
	span.SetAttributes(attribute.Int("postal.results", n))
	return nil
}

func (b *Backend) ExpandAddress(ctx context.Context, input string, opts postal.ExpandOptions) ([]string, error) {
	op := OpExpandAddress
	if opts.Root {
		op = OpExpandAddressRoot
	}
	var out []string
	err := b.observe(ctx, op, languageAttrs(opts.Languages), func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.ExpandAddress(ctx, input, opts)
		return len(out), err
	})
	return out, err
}

func (b *Backend) ParseAddress(ctx context.Context, input string, opts postal.ParseOptions) ([]postal.ParsedComponent, error) {
	var attrs []attribute.KeyValue
	if opts.Country != "" {
		attrs = append(attrs, attribute.String("postal.country", opts.Country))
	}
	var out []postal.ParsedComponent
	err := b.observe(ctx, OpParseAddress, attrs, func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.ParseAddress(ctx, input, opts)
		return len(out), err
	})
	return out, err
}

func (b *Backend) ClassifyLanguage(ctx context.Context, input string) ([]postal.LanguageScore, error) {
	var out []postal.LanguageScore
	err := b.observe(ctx, OpClassifyLanguage, nil, func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.ClassifyLanguage(ctx, input)
		return len(out), err
	})
	return out, err
}

func (b *Backend) NormalizeString(ctx context.Context, input string, opts postal.NormalizeOptions) (string, error) {
	var out string
	err := b.observe(ctx, OpNormalizeString, languageAttrs(opts.Languages), func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.NormalizeString(ctx, input, opts)
		if out == "" {
			return 0, err
		}
		return 1, err
	})
	return out, err
}

func (b *Backend) NormalizedTokens(ctx context.Context, input string, opts postal.NormalizeOptions) ([]postal.NormalizedToken, error) {
	var out []postal.NormalizedToken
	err := b.observe(ctx, OpNormalizedTokens, languageAttrs(opts.Languages), func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.NormalizedTokens(ctx, input, opts)
		return len(out), err
	})
	return out, err
}

func (b *Backend) Tokenize(ctx context.Context, input string, whitespace bool) ([]postal.Token, error) {
	var out []postal.Token
	err := b.observe(ctx, OpTokenize, nil, func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.Tokenize(ctx, input, whitespace)
		return len(out), err
	})
	return out, err
}

func (b *Backend) IsDuplicate(ctx context.Context, kind postal.DuplicateKind, value1, value2 string, opts postal.DuplicateOptions) (postal.DuplicateStatus, error) {
	status := postal.NullDuplicate
	attrs := []attribute.KeyValue{attribute.String("postal.kind", kind.String())}
	err := b.observe(ctx, OpIsDuplicate, attrs, func(ctx context.Context) (int, error) {
		var err error
		status, err = b.next.IsDuplicate(ctx, kind, value1, value2, opts)
		return statusCount(status), err
	})
	return status, err
}

func (b *Backend) IsToponymDuplicate(ctx context.Context, record1, record2 postal.Components, opts postal.DuplicateOptions) (postal.DuplicateStatus, error) {
	status := postal.NullDuplicate
	err := b.observe(ctx, OpIsToponymDuplicate, nil, func(ctx context.Context) (int, error) {
		var err error
		status, err = b.next.IsToponymDuplicate(ctx, record1, record2, opts)
		return statusCount(status), err
	})
	return status, err
}

func (b *Backend) IsDuplicateFuzzy(ctx context.Context, kind postal.FuzzyKind, tokens1, tokens2 postal.FuzzyTokens, opts postal.FuzzyDuplicateOptions) (postal.FuzzyResult, error) {
	result := postal.FuzzyResult{Status: postal.NullDuplicate}
	attrs := []attribute.KeyValue{attribute.String("postal.kind", kind.String())}
	err := b.observe(ctx, OpIsDuplicateFuzzy, attrs, func(ctx context.Context) (int, error) {
		var err error
		result, err = b.next.IsDuplicateFuzzy(ctx, kind, tokens1, tokens2, opts)
		return statusCount(result.Status), err
	})
	return result, err
}

func (b *Backend) NameHashes(ctx context.Context, name string, opts postal.ExpandOptions) ([]string, error) {
	var out []string
	err := b.observe(ctx, OpNameHashes, languageAttrs(opts.Languages), func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.NameHashes(ctx, name, opts)
		return len(out), err
	})
	return out, err
}

func (b *Backend) NearDupeHashes(ctx context.Context, record postal.Components, opts postal.NearDupeOptions) ([]string, error) {
	var out []string
	err := b.observe(ctx, OpNearDupeHashes, languageAttrs(opts.Languages), func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.NearDupeHashes(ctx, record, opts)
		return len(out), err
	})
	return out, err
}

func (b *Backend) PlaceLanguages(ctx context.Context, record postal.Components) ([]string, error) {
	var out []string
	err := b.observe(ctx, OpPlaceLanguages, nil, func(ctx context.Context) (int, error) {
		var err error
		out, err = b.next.PlaceLanguages(ctx, record)
		return len(out), err
	})
	return out, err
}

func (b *Backend) Close() error {
	return b.next.Close()
}

func languageAttrs(languages []string) []attribute.KeyValue {
	if len(languages) == 0 {
		return nil
	}
	return []attribute.KeyValue{attribute.StringSlice("postal.languages", languages)}
}

// statusCount treats a null duplicate status as an empty result.
func statusCount(s postal.DuplicateStatus) int {
	if s == postal.NullDuplicate {
		return 0
	}
	return 1
}
