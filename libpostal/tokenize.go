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
)

func (b *Backend) Tokenize(ctx context.Context, input string, whitespace bool) ([]postal.Token, error) {
	var out []postal.Token
	err := b.with(ctx, func(a *arena) error {
		var n C.size_t
		arr := C.libpostal_tokenize(a.cstring(input), C.bool(whitespace), &n)
		if arr == nil {
			return nil
		}
		defer C.free(unsafe.Pointer(arr))

		if n == 0 {
			return nil
		}
		records := unsafe.Slice(arr, int(n))
		out = make([]postal.Token, len(records))
		for i, r := range records {
			out[i] = postal.Token{
				Offset: int(r.offset),
				Length: int(r.len),
				Type:   postal.TokenType(r._type),
			}
		}
		return nil
	})
	return out, err
}
