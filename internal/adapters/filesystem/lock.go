package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
)

const lockFile = "run.lock"

// ErrRunLocked is returned when another process holds the run lock.
var ErrRunLocked = errors.New("another scrape run is in progress")

// RunLock is the advisory lock that keeps two batches from running at once.
// The kernel drops it when the holding process dies, so a crashed run never
// blocks the next one.
type RunLock struct {
	file *os.File
}

// AcquireRunLock takes the lock in dir without waiting.
func AcquireRunLock(dir string) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create run directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, lockFile), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run lock: %w", err)
	}
	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, ErrRunLocked
		}
		return nil, fmt.Errorf("failed to lock run: %w", err)
	}

	// The pid is informational only.
	if err := f.Truncate(0); err == nil {
		f.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}
	return &RunLock{file: f}, nil
}

// Release unlocks. Calling it twice is harmless.
func (l *RunLock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	err := syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	if cerr := l.file.Close(); err == nil {
		err = cerr
	}
	l.file = nil
	return err
}
