package store

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrCorrupt      = errors.New("stored data is corrupt")
	ErrWriteFailure = errors.New("failed to persist data")
)

// DefaultKey is the single key the whole document lives under.
const DefaultKey = "comptia-security-quiz-data"

// Backend is a key-value store holding whole documents. Get returns
// ErrNotFound for a missing key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
