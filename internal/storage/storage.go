// Package storage provides small key/value stores for client-side state such
// as the shopping cart.
package storage

import (
	"errors"
	"fmt"
	"strings"
)

// Storage kinds accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

var (
	ErrNotFound    = errors.New("key not found")
	ErrInvalidKey  = errors.New("invalid storage key")
	ErrUnknownKind = errors.New("unknown storage kind")
	ErrClosed      = errors.New("storage closed")
	ErrLockTimeout = errors.New("lock timeout")
)

// Storage is a durable byte store keyed by short names.
//
// Get returns ErrNotFound when nothing has been stored under key.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Close() error
}

// Open returns the backend named by kind. For KindFile path is a directory;
// for KindSQLite it is the database file. KindMemory ignores path.
func Open(kind, path string) (Storage, error) {
	switch kind {
	case KindFile:
		return NewFile(path)
	case KindSQLite:
		return NewSQLite(path)
	case KindMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s, %s or %s)", ErrUnknownKind, kind, KindFile, KindSQLite, KindMemory)
	}
}

// Kinds lists the values Open accepts.
func Kinds() []string {
	return []string{KindFile, KindSQLite, KindMemory}
}

func validateKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return nil
}
