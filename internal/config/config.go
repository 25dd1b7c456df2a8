package config

import (
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/APPLEPIE6969/Automodrinth/internal/support"
)

type ServerConfig struct {
	Port int
}

type ModrinthConfig struct {
	APIBase   string
	ProjectID string
	PageURL   string
}

type CycleConfig struct {
	BaseInterval    time.Duration
	Jitter          float64
	ReadingDelayMin time.Duration
	ReadingDelayMax time.Duration
	RefreshCadence  int
	FirstCycleGrace time.Duration
	StartupDelay    time.Duration
	ViewPrefixBytes int64
}

type DownloadConfig struct {
	Timeout  time.Duration
	MinBytes int64
}

type RefresherConfig struct {
	TargetPoolSize int
	SampleCap      int
	BatchSize      int
	SourceTimeout  time.Duration
	ProbeTimeout   time.Duration
	ProbeURL       string
	Sources        []string
}

type Config struct {
	Server    ServerConfig
	Modrinth  ModrinthConfig
	Cycle     CycleConfig
	Download  DownloadConfig
	Refresher RefresherConfig

	// ProxyProtocol is how pool members are spoken to: "http" forward
	// proxies or "socks5". All configured sources must serve that protocol.
	ProxyProtocol string
}

var (
	loadOnce sync.Once
	loaded   *Config
)

// GetConfig loads the configuration once from the environment (with .env
// support) and returns the same instance afterwards.
func GetConfig() *Config {
	loadOnce.Do(func() {
		if err := godotenv.Load(); err != nil {
			log.Debug("No .env file loaded", "error", err)
		}

		loaded = &Config{
			Server: ServerConfig{
				Port: support.GetEnvInt("AUTOMODRINTH_PORT", 8484),
			},
			Modrinth: ModrinthConfig{
				APIBase:   support.GetEnv("AUTOMODRINTH_API_BASE", "https://api.modrinth.com/v2"),
				ProjectID: support.GetEnv("AUTOMODRINTH_PROJECT_ID", ""),
				PageURL:   support.GetEnv("AUTOMODRINTH_PAGE_URL", ""),
			},
			Cycle: CycleConfig{
				BaseInterval:    support.GetEnvDuration("AUTOMODRINTH_CYCLE_INTERVAL", 45*time.Second),
				Jitter:          support.GetEnvFloat("AUTOMODRINTH_CYCLE_JITTER", 0.25),
				ReadingDelayMin: support.GetEnvDuration("AUTOMODRINTH_READING_DELAY_MIN", 4*time.Second),
				ReadingDelayMax: support.GetEnvDuration("AUTOMODRINTH_READING_DELAY_MAX", 12*time.Second),
				RefreshCadence:  support.GetEnvInt("AUTOMODRINTH_REFRESH_CADENCE", 25),
				FirstCycleGrace: support.GetEnvDuration("AUTOMODRINTH_FIRST_CYCLE_GRACE", 20*time.Second),
				StartupDelay:    support.GetEnvDuration("AUTOMODRINTH_STARTUP_DELAY", 0),
				ViewPrefixBytes: int64(support.GetEnvInt("AUTOMODRINTH_VIEW_PREFIX_BYTES", 64*1024)),
			},
			Download: DownloadConfig{
				Timeout:  support.GetEnvDuration("AUTOMODRINTH_DOWNLOAD_TIMEOUT", 30*time.Second),
				MinBytes: int64(support.GetEnvInt("AUTOMODRINTH_MIN_DOWNLOAD_BYTES", 1024)),
			},
			Refresher: RefresherConfig{
				TargetPoolSize: support.GetEnvInt("AUTOMODRINTH_TARGET_POOL_SIZE", 35),
				SampleCap:      support.GetEnvInt("AUTOMODRINTH_SAMPLE_CAP", 80),
				BatchSize:      support.GetEnvInt("AUTOMODRINTH_TEST_BATCH_SIZE", 15),
				SourceTimeout:  support.GetEnvDuration("AUTOMODRINTH_SOURCE_TIMEOUT", 10*time.Second),
				ProbeTimeout:   support.GetEnvDuration("AUTOMODRINTH_PROBE_TIMEOUT", 6*time.Second),
				ProbeURL:       support.GetEnv("AUTOMODRINTH_PROBE_URL", "https://httpbin.org/ip"),
				Sources:        splitSources(support.GetEnv("AUTOMODRINTH_PROXY_SOURCES", "")),
			},
			ProxyProtocol: strings.ToLower(support.GetEnv("AUTOMODRINTH_PROXY_PROTOCOL", "http")),
		}
	})
	return loaded
}

func splitSources(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	sources := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			sources = append(sources, trimmed)
		}
	}
	return sources
}
