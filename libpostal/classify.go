//go:build cgo && libpostal

package libpostal

/*
#include <libpostal/libpostal.h>
*/
import "C"

import (
	"context"
	"unsafe"

	"github.com/wippyai/postal"
)

func (b *Backend) ClassifyLanguage(ctx context.Context, input string) ([]postal.LanguageScore, error) {
	var out []postal.LanguageScore
	err := b.with(ctx, func(a *arena) error {
		resp := C.libpostal_classify_language(a.cstring(input))
		if resp == nil {
			return nil
		}
		defer C.libpostal_language_classifier_response_destroy(resp)

		langs, err := goStrings(resp.languages, resp.num_languages, "languages")
		if err != nil || len(langs) == 0 {
			return err
		}
		probs := unsafe.Slice(resp.probs, len(langs))
		out = make([]postal.LanguageScore, len(langs))
		for i, lang := range langs {
			out[i] = postal.LanguageScore{Language: lang, Probability: float64(probs[i])}
		}
		return nil
	})
	return out, err
}
