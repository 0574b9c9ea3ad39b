//go:build cgo && libpostal

package libpostal

/*
#cgo pkg-config: libpostal
#include <stdlib.h>
#include <libpostal/libpostal.h>
*/
import "C"

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
)

// Available reports whether the native backend was compiled in.
const Available = true

// setupStep is one libpostal setup/teardown pair.
type setupStep struct {
	name         string
	setup        func() bool
	setupDatadir func(dir *C.char) bool
	teardown     func()
}

var (
	stepCore = &setupStep{
		name:         "libpostal_setup",
		setup:        func() bool { return bool(C.libpostal_setup()) },
		setupDatadir: func(dir *C.char) bool { return bool(C.libpostal_setup_datadir(dir)) },
		teardown:     func() { C.libpostal_teardown() },
	}
	stepParser = &setupStep{
		name:         "libpostal_setup_parser",
		setup:        func() bool { return bool(C.libpostal_setup_parser()) },
		setupDatadir: func(dir *C.char) bool { return bool(C.libpostal_setup_parser_datadir(dir)) },
		teardown:     func() { C.libpostal_teardown_parser() },
	}
	stepClassifier = &setupStep{
		name:         "libpostal_setup_language_classifier",
		setup:        func() bool { return bool(C.libpostal_setup_language_classifier()) },
		setupDatadir: func(dir *C.char) bool { return bool(C.libpostal_setup_language_classifier_datadir(dir)) },
		teardown:     func() { C.libpostal_teardown_language_classifier() },
	}
)

func (c Config) steps() []*setupStep {
	steps := []*setupStep{stepCore}
	if c.Parser {
		steps = append(steps, stepParser)
	}
	if c.LanguageClassifier {
		steps = append(steps, stepClassifier)
	}
	return steps
}

// native is libpostal's process-wide setup, shared by every open Backend.
// Its lock also serializes every native call: the parser keeps scratch state
// between calls.
var native struct {
	sync.Mutex
	refs    int
	dataDir string
	steps   []*setupStep
}

func nativeHas(step *setupStep) bool {
	for _, s := range native.steps {
		if s == step {
			return true
		}
	}
	return false
}

func runSetup(step *setupStep, dir string) error {
	var ok bool
	if dir != "" {
		cdir := newCString(dir)
		ok = step.setupDatadir(cdir)
		freeCString(cdir)
	} else {
		ok = step.setup()
	}
	if !ok {
		return errors.SetupFailed(step.name, "libpostal reported failure; check the data directory")
	}
	return nil
}

// teardownFrom undoes native.steps[mark:] in reverse order.
func teardownFrom(mark int) {
	for i := len(native.steps) - 1; i >= mark; i-- {
		native.steps[i].teardown()
	}
	native.steps = native.steps[:mark]
}

// Backend calls libpostal in-process. Calls from every handle in the process
// run one at a time; Close waits for calls in flight.
type Backend struct {
	mu     sync.RWMutex
	closed bool
}

var _ postal.Backend = (*Backend)(nil)

// Open sets libpostal up for cfg, or joins the setup already live in the
// process, adding the parser and classifier models when cfg asks for them.
func Open(cfg Config) (postal.Backend, error) {
	native.Lock()
	defer native.Unlock()

	dir := cfg.dataDir()
	if native.refs > 0 && dir != native.dataDir {
		return nil, errors.New(errors.PhaseSetup, errors.KindSetupFailed).
			Detail("libpostal already set up with data directory %q, requested %q", native.dataDir, dir).
			Build()
	}

	mark := len(native.steps)
	for _, step := range cfg.steps() {
		if nativeHas(step) {
			continue
		}
		if err := runSetup(step, dir); err != nil {
			teardownFrom(mark)
			return nil, err
		}
		native.steps = append(native.steps, step)
	}
	native.dataDir = dir
	native.refs++

	Logger().Debug("libpostal ready",
		zap.String("data_dir", dir),
		zap.Int("setups", len(native.steps)),
		zap.Int("handles", native.refs))
	return &Backend{}, nil
}

// Close releases this handle; the last handle tears libpostal down.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	native.Lock()
	defer native.Unlock()
	native.refs--
	if native.refs == 0 {
		teardownFrom(0)
		native.dataDir = ""
		Logger().Debug("libpostal torn down")
	}
	return nil
}

// with runs fn with a fresh arena while holding the handle open.
func (b *Backend) with(ctx context.Context, fn func(a *arena) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return errors.NotInitialized("libpostal backend")
	}
	native.Lock()
	defer native.Unlock()
	a := &arena{}
	defer a.release()
	return fn(a)
}
