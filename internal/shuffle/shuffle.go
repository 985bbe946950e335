// Package shuffle provides the single random source used by question
// selection, so that selection policies can run on a seeded source in tests.
package shuffle

import (
	"math/rand/v2"
	"sync"
)

// Source is the randomness needed by selection: permutations and bounded ints.
type Source interface {
	Shuffle(n int, swap func(i, j int))
	IntN(n int) int
}

// lockedSource makes a *rand.Rand safe for use by concurrent HTTP handlers.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.r.Shuffle(n, swap)
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

// New returns a Source seeded from the runtime's entropy.
func New() Source {
	return &lockedSource{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a deterministic Source.
func NewSeeded(seed uint64) Source {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Shuffled returns a shuffled copy of in. The input is never modified.
func Shuffled[T any](src Source, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	src.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}

// Sample returns up to n elements of in, drawn uniformly without replacement.
func Sample[T any](src Source, in []T, n int) []T {
	if n <= 0 {
		return nil
	}
	out := Shuffled(src, in)
	if n < len(out) {
		out = out[:n]
	}
	return out
}
