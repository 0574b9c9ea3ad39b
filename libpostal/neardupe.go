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

func (b *Backend) NameHashes(ctx context.Context, name string, opts postal.ExpandOptions) ([]string, error) {
	var out []string
	err := b.with(ctx, func(a *arena) error {
		var n C.size_t
		arr := C.libpostal_near_dupe_name_hashes(a.cstring(name), a.normalizeOptions(opts), &n)
		if arr == nil {
			return nil
		}
		defer freeStrings(arr, n)

		var err error
		out, err = goStrings(arr, n, "hashes")
		return err
	})
	return out, err
}

func (b *Backend) NearDupeHashes(ctx context.Context, record postal.Components, opts postal.NearDupeOptions) ([]string, error) {
	var out []string
	err := b.with(ctx, func(a *arena) error {
		labels, values := a.record(record)
		copts := nearDupeOptions(opts)
		var n C.size_t
		var arr **C.char
		if len(opts.Languages) > 0 {
			langs := a.strings(opts.Languages)
			arr = C.libpostal_near_dupe_hashes_languages(labels.len(), labels.ptr(), values.ptr(), copts,
				langs.len(), langs.ptr(), &n)
		} else {
			arr = C.libpostal_near_dupe_hashes(labels.len(), labels.ptr(), values.ptr(), copts, &n)
		}
		if arr == nil {
			return nil
		}
		defer freeStrings(arr, n)

		var err error
		out, err = goStrings(arr, n, "hashes")
		return err
	})
	return out, err
}
