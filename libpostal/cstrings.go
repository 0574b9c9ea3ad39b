//go:build cgo && libpostal

package libpostal

/*
#include <stdlib.h>
*/
import "C"

import (
	"strconv"
	"sync/atomic"
	"unicode/utf8"
	"unsafe"

	"github.com/wippyai/postal/errors"
)

// live counts C blocks allocated by this package and not yet freed.
var live atomic.Int64

// LiveAllocations reports how many C allocations made while lowering
// arguments are still outstanding. It is 0 whenever no call is in flight.
func LiveAllocations() int64 {
	return live.Load()
}

func cmalloc(size uintptr) unsafe.Pointer {
	live.Add(1)
	return C.malloc(C.size_t(size))
}

func cfree(p unsafe.Pointer) {
	if p == nil {
		return
	}
	C.free(p)
	live.Add(-1)
}

func newCString(s string) *C.char {
	live.Add(1)
	return C.CString(s)
}

func freeCString(p *C.char) {
	cfree(unsafe.Pointer(p))
}

const cPtrSize = unsafe.Sizeof((*C.char)(nil))

// cStrings is a C-allocated char** whose elements are allocated
// independently.
type cStrings struct {
	arr   **C.char
	elems []*C.char
}

// newCStrings lowers values. An empty slice lowers to a NULL array.
func newCStrings(values []string) *cStrings {
	if len(values) == 0 {
		return &cStrings{}
	}
	arr := (**C.char)(cmalloc(uintptr(len(values)) * cPtrSize))
	elems := unsafe.Slice(arr, len(values))
	for i, v := range values {
		elems[i] = newCString(v)
	}
	return &cStrings{arr: arr, elems: elems}
}

func (s *cStrings) ptr() **C.char { return s.arr }

func (s *cStrings) len() C.size_t { return C.size_t(len(s.elems)) }

// free releases the elements and then the block.
func (s *cStrings) free() {
	for _, p := range s.elems {
		freeCString(p)
	}
	cfree(unsafe.Pointer(s.arr))
	s.arr, s.elems = nil, nil
}

// arena owns the C memory lowered for one call and releases all of it,
// newest first, whichever way the call ends.
type arena struct {
	frees []func()
}

func (a *arena) cstring(s string) *C.char {
	p := newCString(s)
	a.frees = append(a.frees, func() { freeCString(p) })
	return p
}

// optionalCString lowers "" to NULL.
func (a *arena) optionalCString(s string) *C.char {
	if s == "" {
		return nil
	}
	return a.cstring(s)
}

func (a *arena) strings(values []string) *cStrings {
	s := newCStrings(values)
	a.frees = append(a.frees, s.free)
	return s
}

// doubles lowers values to a double*. An empty slice lowers to NULL.
func (a *arena) doubles(values []float64) *C.double {
	if len(values) == 0 {
		return nil
	}
	p := (*C.double)(cmalloc(uintptr(len(values)) * unsafe.Sizeof(C.double(0))))
	dst := unsafe.Slice(p, len(values))
	for i, v := range values {
		dst[i] = C.double(v)
	}
	a.frees = append(a.frees, func() { cfree(unsafe.Pointer(p)) })
	return p
}

func (a *arena) release() {
	for i := len(a.frees) - 1; i >= 0; i-- {
		a.frees[i]()
	}
	a.frees = nil
}

// goString lifts a NUL-terminated UTF-8 string owned by libpostal.
func goString(p *C.char, path ...string) (string, error) {
	if p == nil {
		return "", errors.New(errors.PhaseDecode, errors.KindNilPointer).
			Path(path...).
			Detail("NULL string").
			Build()
	}
	s := C.GoString(p)
	if !utf8.ValidString(s) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, path, []byte(s))
	}
	return s, nil
}

// goStrings lifts a char** of n elements owned by libpostal.
func goStrings(arr **C.char, n C.size_t, path ...string) ([]string, error) {
	if n == 0 {
		return nil, nil
	}
	if arr == nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindNilPointer).
			Path(path...).
			Detail("NULL array with %d elements", int(n)).
			Build()
	}
	elems := unsafe.Slice(arr, int(n))
	out := make([]string, len(elems))
	for i, p := range elems {
		s, err := goString(p, append(append([]string(nil), path...), strconv.Itoa(i))...)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// freeStrings releases a libpostal-returned char** element by element and
// then the block itself.
func freeStrings(arr **C.char, n C.size_t) {
	if arr == nil {
		return
	}
	for _, p := range unsafe.Slice(arr, int(n)) {
		C.free(unsafe.Pointer(p))
	}
	C.free(unsafe.Pointer(arr))
}
