//go:build !unix

package data

import "context"

// lockFile only checks ctx; installs are serialized within the process.
// TODO: use LockFileEx on windows.
func lockFile(ctx context.Context, _ string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return func() {}, nil
}
