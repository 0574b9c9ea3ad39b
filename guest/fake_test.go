package guest

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"testing"
)

// fakeMemory is a flat little-endian byte slice.
type fakeMemory struct {
	data []byte
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{data: make([]byte, size)}
}

func (m *fakeMemory) Size() uint32 { return uint32(len(m.data)) }

func (m *fakeMemory) check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(m.data)) {
		return fmt.Errorf("out of bounds: offset=%d length=%d", offset, length)
	}
	return nil
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, error) {
	if err := m.check(offset, length); err != nil {
		return nil, err
	}
	return m.data[offset : offset+length], nil
}

func (m *fakeMemory) Write(offset uint32, data []byte) error {
	if err := m.check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[offset:], data)
	return nil
}

func (m *fakeMemory) ReadU8(offset uint32) (uint8, error) {
	if err := m.check(offset, 1); err != nil {
		return 0, err
	}
	return m.data[offset], nil
}

func (m *fakeMemory) ReadU16(offset uint32) (uint16, error) {
	if err := m.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(m.data[offset:]), nil
}

func (m *fakeMemory) ReadU32(offset uint32) (uint32, error) {
	if err := m.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(m.data[offset:]), nil
}

func (m *fakeMemory) ReadU64(offset uint32) (uint64, error) {
	if err := m.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(m.data[offset:]), nil
}

func (m *fakeMemory) WriteU8(offset uint32, v uint8) error {
	if err := m.check(offset, 1); err != nil {
		return err
	}
	m.data[offset] = v
	return nil
}

func (m *fakeMemory) WriteU16(offset uint32, v uint16) error {
	if err := m.check(offset, 2); err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(m.data[offset:], v)
	return nil
}

func (m *fakeMemory) WriteU32(offset uint32, v uint32) error {
	if err := m.check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(m.data[offset:], v)
	return nil
}

func (m *fakeMemory) WriteU64(offset uint32, v uint64) error {
	if err := m.check(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(m.data[offset:], v)
	return nil
}

type guestFunc func(g *fakeGuest, params []uint64) []uint64

// fakeGuest stands in for a libpostal guest: a bump-allocated heap that
// tracks every live block, plus canned exports. It computes nothing.
type fakeGuest struct {
	t     *testing.T
	mem   *fakeMemory
	next  uint32
	live  map[uint32]uint32
	funcs map[string]guestFunc
	calls []string

	// failMallocAt makes the n-th malloc (1-based) return NULL; 0 disables.
	failMallocAt int
	mallocs      int

	badFrees int
	closed   bool
}

func newFakeGuest(t *testing.T) *fakeGuest {
	t.Helper()
	return &fakeGuest{
		t:     t,
		mem:   newFakeMemory(1 << 20),
		next:  64,
		live:  make(map[uint32]uint32),
		funcs: make(map[string]guestFunc),
	}
}

func (g *fakeGuest) Memory() Memory {
	if g.mem == nil {
		return nil
	}
	return g.mem
}

func (g *fakeGuest) Close(context.Context) error {
	g.closed = true
	return nil
}

func (g *fakeGuest) Call(_ context.Context, name string, params ...uint64) ([]uint64, error) {
	switch name {
	case exportMalloc:
		return []uint64{uint64(g.malloc(uint32(params[0])))}, nil
	case exportFree:
		g.free(uint32(params[0]))
		return nil, nil
	}
	g.calls = append(g.calls, name)
	fn, ok := g.funcs[name]
	if !ok {
		return nil, fmt.Errorf("unexpected call to %s", name)
	}
	return fn(g, params), nil
}

func (g *fakeGuest) malloc(size uint32) uint32 {
	g.mallocs++
	if g.failMallocAt > 0 && g.mallocs == g.failMallocAt {
		return 0
	}
	ptr := (g.next + 15) &^ 15
	g.next = ptr + size
	g.live[ptr] = size
	return ptr
}

func (g *fakeGuest) free(ptr uint32) {
	if ptr == 0 {
		return
	}
	if _, ok := g.live[ptr]; !ok {
		g.badFrees++
		return
	}
	delete(g.live, ptr)
}

func (g *fakeGuest) called(name string) int {
	n := 0
	for _, c := range g.calls {
		if c == name {
			n++
		}
	}
	return n
}

// assertNoLeaks fails when any guest block is still live or a free missed.
func (g *fakeGuest) assertNoLeaks(t *testing.T) {
	t.Helper()
	if len(g.live) != 0 {
		ptrs := make([]int, 0, len(g.live))
		for p := range g.live {
			ptrs = append(ptrs, int(p))
		}
		sort.Ints(ptrs)
		t.Errorf("%d guest allocations leaked at %v", len(g.live), ptrs)
	}
	if g.badFrees != 0 {
		t.Errorf("%d frees of unknown pointers", g.badFrees)
	}
}

// Guest-side helpers used by canned exports.

func (g *fakeGuest) str(ptr uint64) string {
	if ptr == 0 {
		return ""
	}
	data := g.mem.data[uint32(ptr):]
	return string(data[:bytes.IndexByte(data, 0)])
}

func (g *fakeGuest) strs(arr, n uint64) []string {
	out := make([]string, n)
	for i := range out {
		p, _ := g.mem.ReadU32(uint32(arr) + uint32(i)*4)
		out[i] = g.str(uint64(p))
	}
	return out
}

func (g *fakeGuest) u8(off uint32) uint8 {
	v, _ := g.mem.ReadU8(off)
	return v
}

func (g *fakeGuest) u16(off uint32) uint16 {
	v, _ := g.mem.ReadU16(off)
	return v
}

func (g *fakeGuest) u32(off uint32) uint32 {
	v, _ := g.mem.ReadU32(off)
	return v
}

func (g *fakeGuest) f64(off uint32) float64 {
	v, _ := g.mem.ReadU64(off)
	return math.Float64frombits(v)
}

func (g *fakeGuest) putU32(off, v uint32) {
	_ = g.mem.WriteU32(off, v)
}

func (g *fakeGuest) putF64(off uint32, v float64) {
	_ = g.mem.WriteU64(off, math.Float64bits(v))
}

func (g *fakeGuest) newStr(s string) uint32 {
	p := g.malloc(uint32(len(s) + 1))
	copy(g.mem.data[p:], s)
	g.mem.data[p+uint32(len(s))] = 0
	return p
}

func (g *fakeGuest) newStrs(values []string) uint32 {
	arr := g.malloc(uint32(len(values)) * 4)
	for i, v := range values {
		g.putU32(arr+uint32(i)*4, g.newStr(v))
	}
	return arr
}

func (g *fakeGuest) freeStrs(arr, n uint32) {
	for i := uint32(0); i < n; i++ {
		g.free(g.u32(arr + i*4))
	}
	g.free(arr)
}

// withSetup registers successful setup and teardown exports.
func (g *fakeGuest) withSetup() *fakeGuest {
	ok := func(*fakeGuest, []uint64) []uint64 { return []uint64{1} }
	void := func(*fakeGuest, []uint64) []uint64 { return nil }
	for _, s := range []setupStep{stepCore, stepParser, stepClassifier} {
		g.funcs[s.setup] = ok
		g.funcs[s.setupDatadir] = ok
		g.funcs[s.teardown] = void
	}
	return g
}

// withStringArray registers a char** returning export whose result is
// freed element by element, optionally through a libpostal destructor.
func (g *fakeGuest) withStringArray(name string, nParam int, result []string, destroy string) *fakeGuest {
	g.funcs[name] = func(g *fakeGuest, params []uint64) []uint64 {
		if result == nil {
			return []uint64{0}
		}
		g.putU32(uint32(params[nParam]), uint32(len(result)))
		return []uint64{uint64(g.newStrs(result))}
	}
	if destroy != "" {
		g.funcs[destroy] = func(g *fakeGuest, params []uint64) []uint64 {
			g.freeStrs(uint32(params[0]), uint32(params[1]))
			return nil
		}
	}
	return g
}
