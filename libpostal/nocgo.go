//go:build !(cgo && libpostal)

package libpostal

import (
	"github.com/wippyai/postal"
	"github.com/wippyai/postal/errors"
)

// Available reports whether the native backend was compiled in.
const Available = false

// Open is unavailable in this build.
func Open(Config) (postal.Backend, error) {
	return nil, errors.Unsupported(errors.PhaseSetup,
		"libpostal backend not compiled in; rebuild with cgo enabled and -tags libpostal")
}

// LiveAllocations is always 0 without the native backend.
func LiveAllocations() int64 { return 0 }
