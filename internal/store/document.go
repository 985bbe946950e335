package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/secplus-trainer/backend/internal/domain/progress"
)

// errUnchanged lets an Update callback skip the save when it changed nothing.
var errUnchanged = errors.New("unchanged")

type Options struct {
	Key string           // defaults to DefaultKey
	Now func() time.Time // defaults to time.Now
}

// Store owns the in-memory document and writes it through to a Backend.
// Every mutation runs as one load-mutate-recompute-save cycle under a
// mutex. Two processes sharing a backend can still overwrite each other's
// changes; there is no cross-process locking.
type Store struct {
	backend Backend
	key     string
	agg     *progress.Aggregator
	log     *zap.Logger
	now     func() time.Time

	mu   sync.Mutex
	data Data
}

// Open loads the document under the configured key. A missing document
// starts from defaults; an unreadable one is logged and replaced by
// whatever Migrate could recover.
func Open(ctx context.Context, backend Backend, agg *progress.Aggregator, log *zap.Logger, opts Options) *Store {
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Store{
		backend: backend,
		key:     opts.Key,
		agg:     agg,
		log:     log,
		now:     opts.Now,
	}
	s.data = s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) Data {
	raw, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, ErrNotFound) {
		return Default()
	}
	if err != nil {
		s.log.Error("failed to read stored data, starting from defaults", zap.String("key", s.key), zap.Error(err))
		return Default()
	}

	d, err := Migrate(raw, s.agg)
	if err != nil {
		s.log.Warn("stored data was partially unreadable", zap.String("key", s.key), zap.Error(err))
	}
	return d
}

// Snapshot returns a deep copy of the current document.
func (s *Store) Snapshot() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Clone()
}

// View runs fn against the live document under the lock. fn must not keep
// references into d or modify it.
func (s *Store) View(fn func(d *Data)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.data)
}

// Update applies fn to a copy of the document and, if fn succeeds, makes the
// copy current and saves it. A failed save keeps the new state in memory
// and returns an error wrapping ErrWriteFailure.
func (s *Store) Update(ctx context.Context, fn func(d *Data) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.Clone()
	if err := fn(&work); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	work.SchemaVersion = SchemaVersion
	s.data = work
	return s.persist(ctx)
}

func (s *Store) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		s.log.Error("failed to encode data", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	if err := s.backend.Set(ctx, s.key, raw); err != nil {
		s.log.Error("failed to save data", zap.String("key", s.key), zap.Int("bytes", len(raw)), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	return nil
}

// Clear resets to defaults and deletes the stored document.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = Default()
	if err := s.backend.Delete(ctx, s.key); err != nil {
		s.log.Error("failed to delete stored data", zap.String("key", s.key), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrWriteFailure, err)
	}
	return nil
}

// Export encodes the current document for download.
func (s *Store) Export() ([]byte, error) {
	return json.MarshalIndent(s.Snapshot(), "", "  ")
}

// Import replaces the whole document with raw after migrating it. Input
// that is not a JSON object is rejected; damaged fields inside an object
// are dropped and logged.
func (s *Store) Import(ctx context.Context, raw []byte) error {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil || probe == nil {
		return fmt.Errorf("%w: import is not a JSON object", ErrCorrupt)
	}

	d, err := Migrate(raw, s.agg)
	if err != nil {
		s.log.Warn("imported data was partially unreadable", zap.Error(err))
	}
	return s.Update(ctx, func(cur *Data) error {
		*cur = d
		return nil
	})
}
