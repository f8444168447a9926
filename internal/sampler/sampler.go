// Package sampler draws bounded, duplicate-free random subsets from content pools.
package sampler

import (
	"math/rand/v2"
	"sync"
)

// Sampler shuffles with its own random source. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Sampler seeded from the runtime's random source.
func New() *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeeded returns a Sampler with a reproducible sequence.
func NewSeeded(seed uint64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Sampler) shuffle(n int, swap func(i, j int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng.Shuffle(n, swap)
}

// Sample returns min(count, len(pool)) elements of pool in uniformly random
// order. Every position of pool appears at most once. The whole pool is
// shuffled before truncation so the order of the result is unbiased too.
// pool is never modified; a negative count is treated as zero.
func Sample[T any](s *Sampler, pool []T, count int) []T {
	shuffled := make([]T, len(pool))
	copy(shuffled, pool)

	s.shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	n := max(0, min(count, len(shuffled)))
	return shuffled[:n:n]
}
