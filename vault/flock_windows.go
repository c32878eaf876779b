//go:build windows

package vault

import (
	"fmt"
	"os"
)

// Windows has no syscall.Flock. The lock file is still created so the data
// directory layout matches, but two processes are not kept apart.

func acquireLock(path string) (*os.File, error) {
	return tryLock(path)
}

func tryLock(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	return f, nil
}

func releaseLock(f *os.File) {
	if f == nil {
		return
	}
	_ = f.Close()
}
