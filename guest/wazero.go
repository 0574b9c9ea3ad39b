package guest

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/postal/errors"
)

// wrapMemory adapts a wazero api.Memory to Memory.
func wrapMemory(mem api.Memory) Memory {
	if mem == nil {
		return nil
	}
	return &memoryWrapper{mem: mem}
}

type memoryWrapper struct {
	mem api.Memory
}

func (m *memoryWrapper) Size() uint32 {
	return m.mem.Size()
}

func (m *memoryWrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

func (m *memoryWrapper) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

func (m *memoryWrapper) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.mem.ReadByte(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

func (m *memoryWrapper) ReadU16(offset uint32) (uint16, error) {
	v, ok := m.mem.ReadUint16Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

func (m *memoryWrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

func (m *memoryWrapper) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

func (m *memoryWrapper) WriteU8(offset uint32, value uint8) error {
	if !m.mem.WriteByte(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *memoryWrapper) WriteU16(offset uint32, value uint16) error {
	if !m.mem.WriteUint16Le(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *memoryWrapper) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

func (m *memoryWrapper) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

// wazeroModule is a Module backed by a wazero instance that owns its runtime.
type wazeroModule struct {
	runtime   wazero.Runtime
	instance  api.Module
	memory    Memory
	funcCache map[string]api.Function
	cacheMu   sync.Mutex
}

func (m *wazeroModule) Memory() Memory {
	return m.memory
}

func (m *wazeroModule) function(name string) api.Function {
	m.cacheMu.Lock()
	defer m.cacheMu.Unlock()
	if fn, ok := m.funcCache[name]; ok {
		return fn
	}
	fn := m.instance.ExportedFunction(name)
	if fn != nil {
		m.funcCache[name] = fn
	}
	return fn
}

func (m *wazeroModule) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn := m.function(name)
	if fn == nil {
		return nil, errors.MissingExport(name)
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return nil, errors.Native(name, err)
	}
	return results, nil
}

func (m *wazeroModule) Close(ctx context.Context) error {
	var firstErr error
	if m.instance != nil {
		if err := m.instance.Close(ctx); err != nil {
			firstErr = err
		}
		m.instance = nil
	}
	if m.runtime != nil {
		if err := m.runtime.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		m.runtime = nil
	}
	m.funcCache = nil
	m.memory = nil
	return firstErr
}

// instantiate compiles wasmBytes into a fresh runtime with WASI preview1
// and the data directory mounted read-only at GuestDataDir. Reactor modules
// are initialized through _initialize.
func instantiate(ctx context.Context, wasmBytes []byte, cfg Config) (*wazeroModule, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	if cfg.CompilationCache != nil {
		runtimeCfg = runtimeCfg.WithCompilationCache(cfg.CompilationCache)
	}
	rt := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	fail := func(err error) (*wazeroModule, error) {
		if cerr := rt.Close(ctx); cerr != nil {
			Logger().Warn("failed to close runtime during cleanup", zap.Error(cerr))
		}
		return nil, err
	}

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		return fail(errors.Wrap(errors.PhaseLoad, errors.KindSetupFailed, err, "instantiate WASI"))
	}

	compiled, err := rt.CompileModule(ctx, wasmBytes)
	if err != nil {
		return fail(errors.Wrap(errors.PhaseLoad, errors.KindInvalidInput, err, "compile guest module"))
	}

	exports := compiled.ExportedFunctions()
	for _, name := range requiredExports(cfg) {
		if _, ok := exports[name]; !ok {
			return fail(errors.MissingExport(name))
		}
	}
	if _, ok := compiled.ExportedMemories()["memory"]; !ok {
		return fail(errors.MissingExport("memory"))
	}

	fsCfg := wazero.NewFSConfig()
	if cfg.DataDir != "" {
		fsCfg = fsCfg.WithReadOnlyDirMount(cfg.DataDir, GuestDataDir)
	}
	modCfg := wazero.NewModuleConfig().
		WithName("").
		WithFSConfig(fsCfg).
		WithStartFunctions("_initialize")
	if cfg.Stdout != nil {
		modCfg = modCfg.WithStdout(cfg.Stdout)
	}
	if cfg.Stderr != nil {
		modCfg = modCfg.WithStderr(cfg.Stderr)
	}

	instance, err := rt.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		return fail(errors.Wrap(errors.PhaseLoad, errors.KindSetupFailed, err, "instantiate guest module"))
	}

	return &wazeroModule{
		runtime:   rt,
		instance:  instance,
		memory:    wrapMemory(instance.Memory()),
		funcCache: make(map[string]api.Function),
	}, nil
}
