package refresher

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"

	"github.com/APPLEPIE6969/Automodrinth/internal/domain"
	"github.com/APPLEPIE6969/Automodrinth/internal/proxypool"
	"github.com/APPLEPIE6969/Automodrinth/internal/stats"
	"github.com/APPLEPIE6969/Automodrinth/internal/support"
)

type CandidateCollector interface {
	Collect(ctx context.Context) []domain.Proxy
}

type HealthChecker interface {
	Check(ctx context.Context, candidate domain.Proxy) bool
}

// Refresher rebuilds the proxy pool: collect candidates, sample them down,
// health-test in bounded batches, then atomically swap the pool. A broken
// refresh never clears a working pool.
type Refresher struct {
	collector CandidateCollector
	checker   HealthChecker
	pool      *proxypool.Pool
	stats     *stats.Stats
	rng       support.Rand

	targetSize int
	sampleCap  int
	batchSize  int

	inProgress atomic.Bool
}

func New(collector CandidateCollector, checker HealthChecker, pool *proxypool.Pool, st *stats.Stats, rng support.Rand, targetSize, sampleCap, batchSize int) *Refresher {
	if batchSize < 1 {
		batchSize = 1
	}
	return &Refresher{
		collector:  collector,
		checker:    checker,
		pool:       pool,
		stats:      st,
		rng:        rng,
		targetSize: targetSize,
		sampleCap:  sampleCap,
		batchSize:  batchSize,
	}
}

// Refresh runs one full collect-test-replace pass. If a refresh is already
// in flight the call is a no-op and returns false immediately.
func (r *Refresher) Refresh(ctx context.Context) bool {
	if !r.inProgress.CompareAndSwap(false, true) {
		log.Debug("Pool refresh already in progress, skipping")
		return false
	}
	defer r.inProgress.Store(false)

	// Fail open: whatever goes wrong mid-pass, the previous pool survives.
	defer func() {
		if recovered := recover(); recovered != nil {
			log.Error("Pool refresh aborted, keeping previous pool", "panic", recovered)
		}
	}()

	started := time.Now()
	candidates := r.collector.Collect(ctx)
	log.Info("Collected proxy candidates", "count", len(candidates))

	sample := support.Sample(r.rng, candidates, r.sampleCap)
	working := r.testSample(ctx, sample)

	if len(working) > r.targetSize {
		working = working[:r.targetSize]
	}

	r.pool.Replace(working)
	r.stats.RefreshCompleted(len(candidates), len(sample), len(working), time.Now())

	log.Info("Pool refresh finished",
		"candidates", len(candidates),
		"tested", len(sample),
		"working", len(working),
		"took", time.Since(started).Round(time.Millisecond))
	return true
}

// testSample health-tests the sampled candidates in sequential batches with
// full parallelism inside each batch, stopping once enough working proxies
// have been secured.
func (r *Refresher) testSample(ctx context.Context, sample []domain.Proxy) []domain.Proxy {
	var (
		mu      sync.Mutex
		working []domain.Proxy
	)
	sem := semaphore.NewWeighted(int64(r.batchSize))

	// drain waits for every in-flight check of the current batch. It uses a
	// background context so cancellation still lets running checks land.
	drain := func() {
		_ = sem.Acquire(context.Background(), int64(r.batchSize))
		sem.Release(int64(r.batchSize))
	}

launch:
	for start := 0; start < len(sample); start += r.batchSize {
		end := start + r.batchSize
		if end > len(sample) {
			end = len(sample)
		}

		for _, candidate := range sample[start:end] {
			if err := sem.Acquire(ctx, 1); err != nil {
				break launch
			}
			go func(candidate domain.Proxy) {
				defer sem.Release(1)
				if r.checker.Check(ctx, candidate) {
					mu.Lock()
					working = append(working, candidate)
					mu.Unlock()
				}
			}(candidate)
		}

		// Batches run sequentially: settle this one before deciding
		// whether enough proxies are secured to stop early.
		drain()
		mu.Lock()
		secured := len(working)
		mu.Unlock()
		if secured >= r.targetSize {
			break
		}
	}

	drain()
	return working
}

// InProgress reports whether a refresh pass is currently running.
func (r *Refresher) InProgress() bool {
	return r.inProgress.Load()
}
