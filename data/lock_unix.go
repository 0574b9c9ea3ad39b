//go:build unix

package data

import (
	"context"
	stderrors "errors"
	"os"
	"syscall"
	"time"

	"github.com/wippyai/postal/errors"
)

const lockPollInterval = 200 * time.Millisecond

// lockFile takes an exclusive flock on path, waiting until it is free or
// ctx is done.
func lockFile(ctx context.Context, path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "open lock file")
	}

	ticker := time.NewTicker(lockPollInterval)
	defer ticker.Stop()
	for {
		err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
		if err == nil {
			return func() {
				_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
				_ = f.Close()
			}, nil
		}
		if !stderrors.Is(err, syscall.EWOULDBLOCK) {
			f.Close()
			return nil, errors.Wrap(errors.PhaseSetup, errors.KindSetupFailed, err, "lock data root")
		}
		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
