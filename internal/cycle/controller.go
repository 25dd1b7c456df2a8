package cycle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/APPLEPIE6969/Automodrinth/internal/config"
	"github.com/APPLEPIE6969/Automodrinth/internal/domain"
	"github.com/APPLEPIE6969/Automodrinth/internal/modrinth"
	"github.com/APPLEPIE6969/Automodrinth/internal/proxypool"
	"github.com/APPLEPIE6969/Automodrinth/internal/stats"
	"github.com/APPLEPIE6969/Automodrinth/internal/support"
)

// MetadataSource is the version-list collaborator. Loaded once, cached for
// the process lifetime.
type MetadataSource interface {
	Ensure(ctx context.Context) error
	PageURL() string
	RandomTarget(rng support.Rand) (modrinth.Target, error)
}

var (
	newProxyClientFunc  = support.CreateProxyClient
	newDirectClientFunc = support.CreateDirectClient
)

// Controller drives the perpetual view/download loop. One logical actor:
// it is the only caller of Checkout and Evict on the pool.
type Controller struct {
	pool    *proxypool.Pool
	refresh func(ctx context.Context)
	meta    MetadataSource
	stats   *stats.Stats
	rng     support.Rand
	cfg     *config.Config

	// sleep is injected so tests can run cycles without real delays. It
	// returns false when the context was cancelled mid-wait.
	sleep func(ctx context.Context, d time.Duration) bool
	now   func() time.Time
}

func New(pool *proxypool.Pool, refresh func(ctx context.Context), meta MetadataSource, st *stats.Stats, rng support.Rand, cfg *config.Config) *Controller {
	return &Controller{
		pool:    pool,
		refresh: refresh,
		meta:    meta,
		stats:   st,
		rng:     rng,
		cfg:     cfg,
		sleep:   sleepContext,
		now:     time.Now,
	}
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Run loops until the context is cancelled. Each iteration is one cycle
// followed by a jittered wait; no error terminates the loop.
func (c *Controller) Run(ctx context.Context) {
	for ctx.Err() == nil {
		c.RunOnce(ctx)

		wait := support.Jitter(c.rng, c.cfg.Cycle.BaseInterval, c.cfg.Cycle.Jitter)
		if !c.sleep(ctx, wait) {
			return
		}
	}
}

// RunOnce performs a single cycle: cadence-gated refresh trigger, view,
// reading delay, download. A panicking cycle is counted and absorbed so the
// loop reschedules regardless.
func (c *Controller) RunOnce(ctx context.Context) {
	defer func() {
		if recovered := recover(); recovered != nil {
			c.stats.CycleErrored()
			log.Error("Cycle aborted", "panic", recovered)
		}
	}()

	cycleNum := c.stats.CycleStarted()
	log.Debug("Cycle started", "cycle", cycleNum, "pool_size", c.pool.Len())

	if c.refreshDue(cycleNum) {
		go c.refresh(ctx)
		if cycleNum == 1 {
			// Give the very first refresh a chance to populate the pool
			// before the first download goes out.
			c.sleep(ctx, c.cfg.Cycle.FirstCycleGrace)
		}
	}

	if err := c.meta.Ensure(ctx); err != nil {
		c.stats.CycleErrored()
		log.Error("Version metadata unavailable, skipping cycle", "error", err)
		return
	}

	c.view(ctx)

	c.sleep(ctx, support.DelayBetween(c.rng, c.cfg.Cycle.ReadingDelayMin, c.cfg.Cycle.ReadingDelayMax))

	c.download(ctx)
}

func (c *Controller) refreshDue(cycleNum uint64) bool {
	if cycleNum == 1 {
		return true
	}
	cadence := uint64(c.cfg.Cycle.RefreshCadence)
	if cadence == 0 {
		return false
	}
	return (cycleNum-1)%cadence == 0
}

// view fetches the project page directly, reading only a bounded prefix of
// the body before abandoning the connection. The view counts whether or not
// the request cosmetically succeeded; failures are logged and swallowed.
func (c *Controller) view(ctx context.Context) {
	defer c.stats.ViewCompleted()

	client := newDirectClientFunc(c.cfg.Download.Timeout)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.meta.PageURL(), nil)
	if err != nil {
		log.Warn("View request setup failed", "error", err)
		return
	}
	req.Header.Set("User-Agent", support.UserAgent())
	req.Header.Set("Referer", support.Referer(c.rng))

	resp, err := client.Do(req)
	if err != nil {
		log.Warn("View request failed", "error", err)
		return
	}
	defer resp.Body.Close()

	read, _ := io.CopyN(io.Discard, resp.Body, c.cfg.Cycle.ViewPrefixBytes)
	log.Debug("Viewed project page", "status", resp.StatusCode, "bytes", read)
}

// download attempts one file through a checked-out proxy, falling back to a
// direct connection after evicting a failed proxy. At most one
// proxy-then-direct pair per cycle.
func (c *Controller) download(ctx context.Context) {
	target, err := c.meta.RandomTarget(c.rng)
	if err != nil {
		c.stats.DownloadFailed()
		log.Error("No downloadable file available", "error", err)
		return
	}

	proxy, err := c.pool.Checkout()
	if errors.Is(err, proxypool.ErrEmpty) {
		log.Warn("No proxies in pool, downloading direct", "file", target.File.Filename)
	} else {
		client, clientErr := newProxyClientFunc(proxy, c.cfg.ProxyProtocol, c.cfg.Download.Timeout)
		if clientErr == nil {
			size, attemptErr := c.attempt(ctx, client, target.File.URL)
			if attemptErr == nil {
				c.recordSuccess(target, size, proxy.Addr())
				return
			}
			log.Warn("Proxied download failed, evicting proxy",
				"proxy", proxy.Addr(), "file", target.File.Filename, "error", attemptErr)
		} else {
			log.Warn("Proxy client setup failed, evicting proxy", "proxy", proxy.Addr(), "error", clientErr)
		}
		c.pool.Evict(proxy)
		c.stats.PoolShrunk(c.pool.Len())
	}

	size, err := c.attempt(ctx, newDirectClientFunc(c.cfg.Download.Timeout), target.File.URL)
	if err != nil {
		c.stats.DownloadFailed()
		log.Error("Download failed", "file", target.File.Filename, "error", err)
		return
	}
	c.recordSuccess(target, size, domain.ViaDirect)
}

// attempt fully buffers one download and classifies it. An undersized body
// means the proxy served a block or error page instead of the file.
func (c *Controller) attempt(ctx context.Context, client *http.Client, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("User-Agent", support.UserAgent())
	req.Header.Set("Referer", support.Referer(c.rng))

	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	size, err := io.Copy(io.Discard, resp.Body)
	if err != nil {
		return 0, err
	}
	if size < c.cfg.Download.MinBytes {
		return 0, fmt.Errorf("download too small: %d bytes", size)
	}
	return size, nil
}

func (c *Controller) recordSuccess(target modrinth.Target, size int64, via string) {
	record := domain.DownloadRecord{
		Filename:     target.File.Filename,
		VersionName:  target.Version.Name,
		Loaders:      target.Version.Loaders,
		GameVersions: target.Version.GameVersions,
		Size:         size,
		Via:          via,
		CompletedAt:  c.now(),
	}
	c.stats.DownloadSucceeded(record)
	log.Info("Download completed", "file", record.Filename, "bytes", size, "via", via)
}
