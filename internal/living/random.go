package living

import (
	"math/rand/v2"
	"sync"
)

// Rand is the random source used by the deviator, exit symbol selection and
// silence responses. *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRand returns a source backed by the runtime-seeded global generator.
func DefaultRand() Rand { return globalRand{} }

// lockedRand makes a seeded generator safe to share between agents.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewSeededRand returns a deterministic, goroutine-safe source.
func NewSeededRand(seed uint64) Rand {
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func pick(r Rand, options []string) string {
	return options[r.IntN(len(options))]
}
