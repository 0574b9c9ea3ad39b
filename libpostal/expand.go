//go:build cgo && libpostal

package libpostal

/*
#include <stdlib.h>
#include <libpostal/libpostal.h>
*/
import "C"

import (
	"context"

	"github.com/wippyai/postal"
)

func (b *Backend) ExpandAddress(ctx context.Context, input string, opts postal.ExpandOptions) ([]string, error) {
	var out []string
	err := b.with(ctx, func(a *arena) error {
		in := a.cstring(input)
		copts := a.normalizeOptions(opts)
		var n C.size_t
		var arr **C.char
		if opts.Root {
			arr = C.libpostal_expand_address_root(in, copts, &n)
		} else {
			arr = C.libpostal_expand_address(in, copts, &n)
		}
		if arr == nil {
			return nil
		}
		defer C.libpostal_expansion_array_destroy(arr, n)

		var err error
		out, err = goStrings(arr, n, "expansions")
		return err
	})
	return out, err
}
