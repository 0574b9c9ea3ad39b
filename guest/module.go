package guest

import (
	"context"

	"go.uber.org/zap"

	"github.com/wippyai/postal/errors"
)

// Module is an instantiated libpostal guest. Call invokes one export with
// core wasm parameters and returns its results.
type Module interface {
	Memory() Memory
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	Close(ctx context.Context) error
}

// Guest heap exports every libpostal build must provide.
const (
	exportMalloc = "malloc"
	exportFree   = "free"
)

// heapAllocator allocates through the guest's malloc/free exports. libc
// malloc on wasm32 returns 16-byte aligned blocks, which covers every
// struct libpostal takes.
type heapAllocator struct {
	ctx context.Context
	mod Module
}

func newHeapAllocator(ctx context.Context, mod Module) *heapAllocator {
	return &heapAllocator{ctx: ctx, mod: mod}
}

func (a *heapAllocator) Alloc(size, align uint32) (uint32, error) {
	if size == 0 {
		size = 1
	}
	results, err := a.mod.Call(a.ctx, exportMalloc, uint64(size))
	if err != nil {
		return 0, errors.New(errors.PhaseEncode, errors.KindAllocation).
			Entry(exportMalloc).
			Cause(err).
			Detail("failed to allocate %d bytes (align %d)", size, align).
			Build()
	}
	if len(results) == 0 || uint32(results[0]) == 0 {
		return 0, errors.AllocationFailed(errors.PhaseEncode, size, align)
	}
	return uint32(results[0]), nil
}

func (a *heapAllocator) Free(ptr, size, _ uint32) {
	if ptr == 0 {
		return
	}
	if _, err := a.mod.Call(a.ctx, exportFree, uint64(ptr)); err != nil {
		Logger().Warn("guest free failed",
			zap.Uint32("ptr", ptr),
			zap.Uint32("size", size),
			zap.Error(err))
	}
}
