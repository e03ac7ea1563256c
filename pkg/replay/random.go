package replay

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the random source behind every draw the engine makes.
// *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// NewRand returns a goroutine-safe source seeded with seed, or with the
// current time when seed is zero.
func NewRand(seed int64) Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedRand{r: rand.New(rand.NewSource(seed))}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func uniform(r Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

func chance(r Rand, p float64) bool {
	return r.Float64() < p
}

// intBetween draws an integer in [lo, hi].
func intBetween(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	v := lo + int(r.Float64()*float64(hi-lo+1))
	if v > hi {
		v = hi
	}
	return v
}

func uniformDuration(r Rand, lo, hi time.Duration) time.Duration {
	return time.Duration(uniform(r, float64(lo), float64(hi)))
}
