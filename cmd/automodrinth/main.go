package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/APPLEPIE6969/Automodrinth/internal/app/server"
	"github.com/APPLEPIE6969/Automodrinth/internal/config"
	"github.com/APPLEPIE6969/Automodrinth/internal/cycle"
	"github.com/APPLEPIE6969/Automodrinth/internal/jobs/checker"
	"github.com/APPLEPIE6969/Automodrinth/internal/jobs/collector"
	"github.com/APPLEPIE6969/Automodrinth/internal/jobs/refresher"
	"github.com/APPLEPIE6969/Automodrinth/internal/modrinth"
	"github.com/APPLEPIE6969/Automodrinth/internal/proxypool"
	"github.com/APPLEPIE6969/Automodrinth/internal/stats"
	"github.com/APPLEPIE6969/Automodrinth/internal/support"
)

func main() {
	cfg := config.GetConfig()
	if cfg.Modrinth.ProjectID == "" {
		log.Fatal("AUTOMODRINTH_PROJECT_ID is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Cycle.StartupDelay > 0 {
		log.Info("Delaying startup", "delay", cfg.Cycle.StartupDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(cfg.Cycle.StartupDelay):
		}
	}

	rng := support.NewRand()
	pool := proxypool.New()
	st := stats.New()

	sources := collector.DefaultSources
	if len(cfg.Refresher.Sources) > 0 {
		sources = collector.FromURLs(cfg.Refresher.Sources)
	}

	poolRefresher := refresher.New(
		collector.New(sources, cfg.Refresher.SourceTimeout),
		checker.New(cfg.Refresher.ProbeURL, cfg.ProxyProtocol, cfg.Refresher.ProbeTimeout),
		pool,
		st,
		rng,
		cfg.Refresher.TargetPoolSize,
		cfg.Refresher.SampleCap,
		cfg.Refresher.BatchSize,
	)

	meta := modrinth.NewClient(cfg.Modrinth.APIBase, cfg.Modrinth.ProjectID, cfg.Modrinth.PageURL, cfg.Download.Timeout)

	controller := cycle.New(
		pool,
		func(ctx context.Context) { poolRefresher.Refresh(ctx) },
		meta,
		st,
		rng,
		cfg,
	)

	statusServer := server.New(pool, st, meta, cfg.Server.Port)
	go func() {
		if err := statusServer.Run(ctx); err != nil && err != http.ErrServerClosed {
			log.Error("Status server stopped", "error", err)
		}
	}()

	log.Info("Starting traffic loop",
		"project", cfg.Modrinth.ProjectID,
		"interval", cfg.Cycle.BaseInterval,
		"refresh_cadence", cfg.Cycle.RefreshCadence,
		"target_pool_size", cfg.Refresher.TargetPoolSize)

	controller.Run(ctx)
	log.Info("Shutting down")
}
