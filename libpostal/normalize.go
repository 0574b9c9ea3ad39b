//go:build cgo && libpostal

package libpostal

/*
#include <stdlib.h>
#include <libpostal/libpostal.h>
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
)

func (b *Backend) NormalizeString(ctx context.Context, input string, opts postal.NormalizeOptions) (string, error) {
	var out string
	err := b.with(ctx, func(a *arena) error {
		in := a.cstring(input)
		var res *C.char
		entry := "libpostal_normalize_string"
		if len(opts.Languages) > 0 {
			entry = "libpostal_normalize_string_languages"
			langs := a.strings(opts.Languages)
			res = C.libpostal_normalize_string_languages(in, C.uint64_t(opts.String), langs.len(), langs.ptr())
		} else {
			res = C.libpostal_normalize_string(in, C.uint64_t(opts.String))
		}
		if res == nil {
			return errors.NilPointer(errors.PhaseNative, entry, "normalization produced no result")
		}
		defer C.free(unsafe.Pointer(res))

		var err error
		out, err = goString(res, "normalized")
		return err
	})
	return out, err
}

func (b *Backend) NormalizedTokens(ctx context.Context, input string, opts postal.NormalizeOptions) ([]postal.NormalizedToken, error) {
	var out []postal.NormalizedToken
	err := b.with(ctx, func(a *arena) error {
		in := a.cstring(input)
		var n C.size_t
		var arr *C.libpostal_normalized_token_t
		if len(opts.Languages) > 0 {
			langs := a.strings(opts.Languages)
			arr = C.libpostal_normalized_tokens_languages(in, C.uint64_t(opts.String), C.uint64_t(opts.Token),
				C.bool(opts.Whitespace), langs.len(), langs.ptr(), &n)
		} else {
			arr = C.libpostal_normalized_tokens(in, C.uint64_t(opts.String), C.uint64_t(opts.Token),
				C.bool(opts.Whitespace), &n)
		}
		if arr == nil {
			return nil
		}
		records := unsafe.Slice(arr, int(n))
		defer func() {
			for _, r := range records {
				C.free(unsafe.Pointer(r.str))
			}
			C.free(unsafe.Pointer(arr))
		}()

		if len(records) == 0 {
			return nil
		}
		tokens := make([]postal.NormalizedToken, len(records))
		for i, r := range records {
			text, err := goString(r.str, "tokens")
			if err != nil {
				return err
			}
			tokens[i] = postal.NormalizedToken{Text: text, Type: postal.TokenType(r.token._type)}
		}
		out = tokens
		return nil
	})
	return out, err
}
