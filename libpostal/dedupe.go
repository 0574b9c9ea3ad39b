//go:build cgo && libpostal

package libpostal

/*
#include <libpostal/libpostal.h>
*/
import "C"

import (
	"context"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
)

func (b *Backend) IsDuplicate(ctx context.Context, kind postal.DuplicateKind, value1, value2 string, opts postal.DuplicateOptions) (postal.DuplicateStatus, error) {
	if !kind.Valid() {
		return postal.NullDuplicate, errors.InvalidInput(errors.PhaseValidate, []string{"kind"}, "unknown duplicate kind "+kind.String())
	}
	status := postal.NullDuplicate
	err := b.with(ctx, func(a *arena) error {
		v1, v2 := a.cstring(value1), a.cstring(value2)
		copts := a.duplicateOptions(opts)
		var res C.libpostal_duplicate_status_t
		switch kind {
		case postal.DuplicateName:
			res = C.libpostal_is_name_duplicate(v1, v2, copts)
		case postal.DuplicateStreet:
			res = C.libpostal_is_street_duplicate(v1, v2, copts)
		case postal.DuplicateHouseNumber:
			res = C.libpostal_is_house_number_duplicate(v1, v2, copts)
		case postal.DuplicatePOBox:
			res = C.libpostal_is_po_box_duplicate(v1, v2, copts)
		case postal.DuplicateUnit:
			res = C.libpostal_is_unit_duplicate(v1, v2, copts)
		case postal.DuplicateFloor:
			res = C.libpostal_is_floor_duplicate(v1, v2, copts)
		case postal.DuplicatePostalCode:
			res = C.libpostal_is_postal_code_duplicate(v1, v2, copts)
		}
		status = duplicateStatus(res)
		return nil
	})
	return status, err
}

func (b *Backend) IsToponymDuplicate(ctx context.Context, record1, record2 postal.Components, opts postal.DuplicateOptions) (postal.DuplicateStatus, error) {
	status := postal.NullDuplicate
	err := b.with(ctx, func(a *arena) error {
		l1, v1 := a.record(record1)
		l2, v2 := a.record(record2)
		res := C.libpostal_is_toponym_duplicate(
			l1.len(), l1.ptr(), v1.ptr(),
			l2.len(), l2.ptr(), v2.ptr(),
			a.duplicateOptions(opts))
		status = duplicateStatus(res)
		return nil
	})
	return status, err
}

func (b *Backend) IsDuplicateFuzzy(ctx context.Context, kind postal.FuzzyKind, tokens1, tokens2 postal.FuzzyTokens, opts postal.FuzzyDuplicateOptions) (postal.FuzzyResult, error) {
	result := postal.FuzzyResult{Status: postal.NullDuplicate}
	if !kind.Valid() {
		return result, errors.InvalidInput(errors.PhaseValidate, []string{"kind"}, "unknown fuzzy duplicate kind "+kind.String())
	}
	err := b.with(ctx, func(a *arena) error {
		t1, t2 := a.strings(tokens1.Tokens), a.strings(tokens2.Tokens)
		s1, s2 := a.doubles(tokens1.Scores), a.doubles(tokens2.Scores)
		copts := a.fuzzyOptions(opts)
		var res C.libpostal_fuzzy_duplicate_status_t
		if kind == postal.FuzzyName {
			res = C.libpostal_is_name_duplicate_fuzzy(t1.len(), t1.ptr(), s1, t2.len(), t2.ptr(), s2, copts)
		} else {
			res = C.libpostal_is_street_duplicate_fuzzy(t1.len(), t1.ptr(), s1, t2.len(), t2.ptr(), s2, copts)
		}
		result = postal.FuzzyResult{Status: duplicateStatus(res.status), Similarity: float64(res.similarity)}
		return nil
	})
	return result, err
}
