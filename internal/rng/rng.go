package rng

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// RandomSource abstracts where spawn ranks and merge impulses get their randomness.
type RandomSource interface {
	Float64() float64 // [0, 1)
}

// crypto random: default generation method
type cryptoRNG struct{}

func (cryptoRNG) Float64() float64 {
	// Read 53bit random => [0, 1)
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to math/rand/v2
		return rand.Float64()
	}

	u := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 bits
	return float64(u) / (1 << 53)
}

func Default() RandomSource { return cryptoRNG{} }

// Replicable RNG (tests, balance runs)
type seededRNG struct{ r *rand.Rand }

func NewSeeded(seed uint64) RandomSource {
	return &seededRNG{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seededRNG) Float64() float64 { return s.r.Float64() }

// Sequence replays a fixed list of values, cycling when exhausted.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewSequence returns a scripted source. Values are clamped into [0, 1).
// An empty sequence always yields 0.
func NewSequence(values ...float64) *Sequence {
	vs := make([]float64, len(values))
	for i, v := range values {
		switch {
		case v < 0:
			v = 0
		case v >= 1:
			v = 0.999999999999
		}
		vs[i] = v
	}
	return &Sequence{values: vs}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.pos%len(s.values)]
	s.pos++
	return v
}

// IntN maps one draw from src onto [0, n). n <= 0 yields 0.
func IntN(src RandomSource, n int) int {
	if n <= 0 {
		return 0
	}
	if src == nil {
		src = Default()
	}
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Symmetric maps one draw from src onto [-span, span).
func Symmetric(src RandomSource, span float64) float64 {
	if src == nil {
		src = Default()
	}
	return (src.Float64()*2 - 1) * span
}
