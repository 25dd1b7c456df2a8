package support

import (
	"math/rand"
	"sync"
	"time"

	"github.com/corpix/uarand"
)

// Rand is the randomness source used for every non-cryptographic random
// decision in the process (file pick, jitter, sampling, header rotation).
// Tests inject a deterministic implementation.
type Rand interface {
	Intn(n int) int
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Intn(n)
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rng.Float64()
}

func (r *lockedRand) Shuffle(n int, swap func(i, j int)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rng.Shuffle(n, swap)
}

// NewRand returns a time-seeded source that is safe for concurrent use.
func NewRand() Rand {
	return &lockedRand{rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

var referers = []string{
	"https://www.google.com/",
	"https://www.bing.com/",
	"https://duckduckgo.com/",
	"https://www.reddit.com/r/feedthebeast/",
	"https://modrinth.com/mods",
}

func UserAgent() string {
	return uarand.GetRandom()
}

func Referer(rng Rand) string {
	return referers[rng.Intn(len(referers))]
}

// Sample returns up to max elements of items in random order. The input
// slice is not modified.
func Sample[T any](rng Rand, items []T, max int) []T {
	out := make([]T, len(items))
	copy(out, items)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	if max >= 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// Jitter scales base by a uniform random factor in [1-spread, 1+spread].
func Jitter(rng Rand, base time.Duration, spread float64) time.Duration {
	if spread <= 0 {
		return base
	}
	factor := 1 + spread*(2*rng.Float64()-1)
	return time.Duration(float64(base) * factor)
}

// DelayBetween picks a uniform random duration in [min, max].
func DelayBetween(rng Rand, min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rng.Float64()*float64(max-min))
}
