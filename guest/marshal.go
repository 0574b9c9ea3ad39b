package guest

import (
	"bytes"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/wippyai/postal/errors"
)

// arena scopes the guest allocations made to lower one call. release frees
// everything it handed out, whichever way the call ends.
type arena struct {
	mem   Memory
	alloc Allocator
	list  *AllocationList
}

func newArena(mem Memory, alloc Allocator) *arena {
	return &arena{mem: mem, alloc: alloc, list: NewAllocationList()}
}

func (a *arena) release() {
	if a.list == nil {
		return
	}
	a.list.FreeAndRelease(a.alloc)
	a.list = nil
}

// reserve allocates size zeroed bytes.
func (a *arena) reserve(size, align uint32) (uint32, error) {
	ptr, err := a.alloc.Alloc(size, align)
	if err != nil {
		return 0, err
	}
	a.list.Add(ptr, size, align)
	if err := a.mem.Write(ptr, make([]byte, size)); err != nil {
		return 0, errors.OutOfBounds(errors.PhaseEncode, nil, ptr, size)
	}
	return ptr, nil
}

// cstring copies s into guest memory with a trailing NUL.
func (a *arena) cstring(s string) (uint32, error) {
	size := uint32(len(s) + 1)
	ptr, err := a.alloc.Alloc(size, 1)
	if err != nil {
		return 0, err
	}
	a.list.Add(ptr, size, 1)
	buf := make([]byte, size)
	copy(buf, s)
	if err := a.mem.Write(ptr, buf); err != nil {
		return 0, errors.OutOfBounds(errors.PhaseEncode, nil, ptr, size)
	}
	return ptr, nil
}

// optionalCString lowers "" to NULL.
func (a *arena) optionalCString(s string) (uint32, error) {
	if s == "" {
		return 0, nil
	}
	return a.cstring(s)
}

// cstrings lowers values to a char** whose elements are allocated
// independently. An empty slice lowers to NULL.
func (a *arena) cstrings(values []string) (uint32, error) {
	if len(values) == 0 {
		return 0, nil
	}
	arr, err := a.reserve(uint32(len(values))*ptrSize, ptrSize)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		p, err := a.cstring(v)
		if err != nil {
			return 0, err
		}
		off := arr + uint32(i)*ptrSize
		if err := a.mem.WriteU32(off, p); err != nil {
			return 0, errors.OutOfBounds(errors.PhaseEncode, []string{strconv.Itoa(i)}, off, ptrSize)
		}
	}
	return arr, nil
}

// float64s lowers values to a double*. An empty slice lowers to NULL.
func (a *arena) float64s(values []float64) (uint32, error) {
	if len(values) == 0 {
		return 0, nil
	}
	arr, err := a.reserve(uint32(len(values))*8, 8)
	if err != nil {
		return 0, err
	}
	for i, v := range values {
		off := arr + uint32(i)*8
		if err := a.mem.WriteU64(off, math.Float64bits(v)); err != nil {
			return 0, errors.OutOfBounds(errors.PhaseEncode, []string{strconv.Itoa(i)}, off, 8)
		}
	}
	return arr, nil
}

// out reserves a size_t out-parameter.
func (a *arena) out() (uint32, error) {
	return a.reserve(ptrSize, ptrSize)
}

func (a *arena) putU8(off uint32, v uint8) error {
	if err := a.mem.WriteU8(off, v); err != nil {
		return errors.OutOfBounds(errors.PhaseEncode, nil, off, 1)
	}
	return nil
}

func (a *arena) putBool(off uint32, v bool) error {
	if v {
		return a.putU8(off, 1)
	}
	return a.putU8(off, 0)
}

func (a *arena) putU16(off uint32, v uint16) error {
	if err := a.mem.WriteU16(off, v); err != nil {
		return errors.OutOfBounds(errors.PhaseEncode, nil, off, 2)
	}
	return nil
}

func (a *arena) putU32(off uint32, v uint32) error {
	if err := a.mem.WriteU32(off, v); err != nil {
		return errors.OutOfBounds(errors.PhaseEncode, nil, off, 4)
	}
	return nil
}

func (a *arena) putF64(off uint32, v float64) error {
	if err := a.mem.WriteU64(off, math.Float64bits(v)); err != nil {
		return errors.OutOfBounds(errors.PhaseEncode, nil, off, 8)
	}
	return nil
}

const cstringChunk = 256

// readCString lifts a NUL-terminated UTF-8 string.
func readCString(mem Memory, ptr uint32, path ...string) (string, error) {
	if ptr == 0 {
		return "", errors.New(errors.PhaseDecode, errors.KindNilPointer).
			Path(path...).
			Detail("NULL string").
			Build()
	}
	size := mem.Size()
	var buf []byte
	for off := ptr; ; {
		if off >= size {
			return "", errors.OutOfBounds(errors.PhaseDecode, path, ptr, off-ptr)
		}
		n := uint32(cstringChunk)
		if size-off < n {
			n = size - off
		}
		chunk, err := mem.Read(off, n)
		if err != nil {
			return "", errors.OutOfBounds(errors.PhaseDecode, path, off, n)
		}
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			buf = append(buf, chunk[:i]...)
			break
		}
		buf = append(buf, chunk...)
		off += n
	}
	if !utf8.Valid(buf) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, path, buf)
	}
	return string(buf), nil
}

func readU32(mem Memory, off uint32, path ...string) (uint32, error) {
	v, err := mem.ReadU32(off)
	if err != nil {
		return 0, errors.OutOfBounds(errors.PhaseDecode, path, off, 4)
	}
	return v, nil
}

func readU16(mem Memory, off uint32, path ...string) (uint16, error) {
	v, err := mem.ReadU16(off)
	if err != nil {
		return 0, errors.OutOfBounds(errors.PhaseDecode, path, off, 2)
	}
	return v, nil
}

func readF64(mem Memory, off uint32, path ...string) (float64, error) {
	v, err := mem.ReadU64(off)
	if err != nil {
		return 0, errors.OutOfBounds(errors.PhaseDecode, path, off, 8)
	}
	return math.Float64frombits(v), nil
}

// readCStrings lifts a char** of n elements.
func readCStrings(mem Memory, arr, n uint32, path ...string) ([]string, error) {
	if n == 0 {
		return nil, nil
	}
	if arr == 0 {
		return nil, errors.New(errors.PhaseDecode, errors.KindNilPointer).
			Path(path...).
			Detail("NULL array with %d elements", n).
			Build()
	}
	out := make([]string, n)
	for i := uint32(0); i < n; i++ {
		elemPath := append(append([]string(nil), path...), strconv.Itoa(int(i)))
		p, err := readU32(mem, arr+i*ptrSize, elemPath...)
		if err != nil {
			return nil, err
		}
		s, err := readCString(mem, p, elemPath...)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

// freeStringArray releases a guest-returned char** element by element and
// then the block itself. Unreadable element slots are skipped.
func freeStringArray(mem Memory, alloc Allocator, arr, n uint32) {
	if arr == 0 {
		return
	}
	for i := uint32(0); i < n; i++ {
		p, err := mem.ReadU32(arr + i*ptrSize)
		if err != nil {
			break
		}
		alloc.Free(p, 0, 1)
	}
	alloc.Free(arr, n*ptrSize, ptrSize)
}
