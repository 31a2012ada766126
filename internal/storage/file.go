package storage

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
)

const (
	dirPerms  = 0o755
	filePerms = 0o600

	fileExt = ".json"
)

// File stores each key as dir/<key>.json. Writes replace the file atomically
// while holding a cross-process lock on the key.
type File struct {
	dir         string
	lockTimeout time.Duration
}

// NewFile creates dir if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, errors.New("file storage: empty directory")
	}

	err := os.MkdirAll(dir, dirPerms)
	if err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}

	return &File{dir: dir, lockTimeout: LockTimeout}, nil
}

// Dir returns the directory holding the stored files.
func (f *File) Dir() string {
	return f.dir
}

func (f *File) Get(key string) ([]byte, error) {
	err := validateKey(key)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}

		return nil, fmt.Errorf("reading %s: %w", key, err)
	}

	return data, nil
}

func (f *File) Set(key string, value []byte) error {
	err := validateKey(key)
	if err != nil {
		return err
	}

	lock, err := acquireLock(f.dir, key, f.lockTimeout)
	if err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}

	defer lock.release()

	err = atomic.WriteFile(f.path(key), bytes.NewReader(value))
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}

	return nil
}

// Close is a no-op; File holds no open handles between calls.
func (f *File) Close() error {
	return nil
}

func (f *File) path(key string) string {
	return filepath.Join(f.dir, key+fileExt)
}
