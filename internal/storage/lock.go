package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sys/unix"
)

// locksDirName holds lock files so acquiring a lock never touches the data files.
const locksDirName = ".locks"

// LockTimeout bounds how long File waits for another process to release a key.
const LockTimeout = 2 * time.Second

type fileLock struct {
	path string
	file *os.File
}

// release removes the lock file while still holding the lock, then unlocks.
func (l *fileLock) release() {
	if l.file == nil {
		return
	}

	_ = os.Remove(l.path)
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	_ = l.file.Close()
	l.file = nil
}

// acquireLock takes an exclusive flock on dir/.locks/<key>.lock.
//
// A waiter can win the flock on a file that the previous holder already
// unlinked, so after locking the inode is compared with what is on disk and
// the attempt repeats on mismatch.
func acquireLock(dir, key string, timeout time.Duration) (*fileLock, error) {
	locksDir := filepath.Join(dir, locksDirName)
	lockPath := filepath.Join(locksDir, key+".lock")
	deadline := time.Now().Add(timeout)

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}

		err := os.MkdirAll(locksDir, dirPerms)
		if err != nil {
			return nil, fmt.Errorf("creating locks dir: %w", err)
		}

		file, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, filePerms)
		if err != nil {
			return nil, fmt.Errorf("opening lock file: %w", err)
		}

		var opened unix.Stat_t

		err = unix.Fstat(int(file.Fd()), &opened)
		if err != nil {
			_ = file.Close()

			return nil, fmt.Errorf("fstat lock file: %w", err)
		}

		fd := int(file.Fd())
		done := make(chan error, 1)

		go func() {
			done <- unix.Flock(fd, unix.LOCK_EX)
		}()

		select {
		case err := <-done:
			if err != nil {
				_ = file.Close()

				return nil, fmt.Errorf("flock: %w", err)
			}

			var onDisk unix.Stat_t

			statErr := unix.Stat(lockPath, &onDisk)
			if statErr != nil || onDisk.Ino != opened.Ino {
				_ = unix.Flock(fd, unix.LOCK_UN)
				_ = file.Close()

				continue
			}

			return &fileLock{path: lockPath, file: file}, nil

		case <-time.After(remaining):
			// Closing the descriptor releases the flock if the goroutine wins late.
			_ = file.Close()

			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, key)
		}
	}
}
