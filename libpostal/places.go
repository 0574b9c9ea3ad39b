//go:build cgo && libpostal

package libpostal

/*
#include <libpostal/libpostal.h>
*/
import "C"

import (
	"context"

	"github.com/wippyai/postal"
)

func (b *Backend) PlaceLanguages(ctx context.Context, record postal.Components) ([]string, error) {
	var out []string
	err := b.with(ctx, func(a *arena) error {
		labels, values := a.record(record)
		var n C.size_t
		arr := C.libpostal_place_languages(labels.len(), labels.ptr(), values.ptr(), &n)
		if arr == nil {
			return nil
		}
		defer freeStrings(arr, n)

		var err error
		out, err = goStrings(arr, n, "languages")
		return err
	})
	return out, err
}
