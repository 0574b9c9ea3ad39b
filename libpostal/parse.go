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

func (b *Backend) ParseAddress(ctx context.Context, input string, opts postal.ParseOptions) ([]postal.ParsedComponent, error) {
	var out []postal.ParsedComponent
	err := b.with(ctx, func(a *arena) error {
		resp := C.libpostal_parse_address(a.cstring(input), a.parserOptions(opts))
		if resp == nil {
			return nil
		}
		defer C.libpostal_address_parser_response_destroy(resp)

		comps, err := goStrings(resp.components, resp.num_components, "components")
		if err != nil {
			return err
		}
		labels, err := goStrings(resp.labels, resp.num_components, "labels")
		if err != nil {
			return err
		}
		if len(comps) == 0 {
			return nil
		}
		out = make([]postal.ParsedComponent, len(comps))
		for i := range comps {
			out[i] = postal.ParsedComponent{Value: comps[i], Label: labels[i]}
		}
		return nil
	})
	return out, err
}
