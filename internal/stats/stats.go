package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/APPLEPIE6969/Automodrinth/internal/domain"
)

var (
	cyclesMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automodrinth_cycles_total",
		Help: "Completed cycle iterations.",
	})
	viewsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automodrinth_views_total",
		Help: "Simulated page views.",
	})
	downloadsMetric = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "automodrinth_downloads_total",
		Help: "Download attempts by outcome.",
	}, []string{"outcome"})
	errorsMetric = promauto.NewCounter(prometheus.CounterOpts{
		Name: "automodrinth_cycle_errors_total",
		Help: "Cycle-level errors.",
	})
	poolSizeMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "automodrinth_pool_size",
		Help: "Verified proxies currently in the pool.",
	})
	lastRefreshMetric = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "automodrinth_last_refresh_timestamp_seconds",
		Help: "Unix time of the last completed pool refresh.",
	})
)

// Stats carries every process-lifetime counter plus the last-download
// snapshot. Counters only ever go up; they reset with the process.
type Stats struct {
	cycles          atomic.Uint64
	views           atomic.Uint64
	downloadsOK     atomic.Uint64
	downloadsFailed atomic.Uint64
	errors          atomic.Uint64

	mu            sync.RWMutex
	lastDownload  *domain.DownloadRecord
	lastRefresh   time.Time
	lastTested    int
	lastWorking   int
	lastCandidate int
}

type Snapshot struct {
	Cycles          uint64                 `json:"cycles"`
	Views           uint64                 `json:"views"`
	DownloadsOK     uint64                 `json:"downloads_ok"`
	DownloadsFailed uint64                 `json:"downloads_failed"`
	Errors          uint64                 `json:"errors"`
	LastDownload    *domain.DownloadRecord `json:"last_download,omitempty"`
	LastRefresh     time.Time              `json:"last_refresh"`
	LastCandidates  int                    `json:"last_refresh_candidates"`
	LastTested      int                    `json:"last_refresh_tested"`
	LastWorking     int                    `json:"last_refresh_working"`
}

func New() *Stats {
	return &Stats{}
}

func (s *Stats) CycleStarted() uint64 {
	cyclesMetric.Inc()
	return s.cycles.Add(1)
}

func (s *Stats) ViewCompleted() {
	viewsMetric.Inc()
	s.views.Add(1)
}

func (s *Stats) DownloadSucceeded(record domain.DownloadRecord) {
	downloadsMetric.WithLabelValues("success").Inc()
	s.downloadsOK.Add(1)

	s.mu.Lock()
	s.lastDownload = &record
	s.mu.Unlock()
}

func (s *Stats) DownloadFailed() {
	downloadsMetric.WithLabelValues("failure").Inc()
	s.downloadsFailed.Add(1)
}

func (s *Stats) CycleErrored() {
	errorsMetric.Inc()
	s.errors.Add(1)
}

func (s *Stats) RefreshCompleted(candidates, tested, working int, at time.Time) {
	lastRefreshMetric.Set(float64(at.Unix()))
	poolSizeMetric.Set(float64(working))

	s.mu.Lock()
	s.lastRefresh = at
	s.lastCandidate = candidates
	s.lastTested = tested
	s.lastWorking = working
	s.mu.Unlock()
}

// PoolShrunk keeps the gauge in step when the cycle evicts a dead member.
func (s *Stats) PoolShrunk(size int) {
	poolSizeMetric.Set(float64(size))
}

func (s *Stats) Cycles() uint64          { return s.cycles.Load() }
func (s *Stats) Views() uint64           { return s.views.Load() }
func (s *Stats) DownloadsOK() uint64     { return s.downloadsOK.Load() }
func (s *Stats) DownloadsFailed() uint64 { return s.downloadsFailed.Load() }
func (s *Stats) Errors() uint64          { return s.errors.Load() }

func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Cycles:          s.cycles.Load(),
		Views:           s.views.Load(),
		DownloadsOK:     s.downloadsOK.Load(),
		DownloadsFailed: s.downloadsFailed.Load(),
		Errors:          s.errors.Load(),
		LastDownload:    s.lastDownload,
		LastRefresh:     s.lastRefresh,
		LastCandidates:  s.lastCandidate,
		LastTested:      s.lastTested,
		LastWorking:     s.lastWorking,
	}
}
