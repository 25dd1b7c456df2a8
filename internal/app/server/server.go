package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/APPLEPIE6969/Automodrinth/internal/modrinth"
	"github.com/APPLEPIE6969/Automodrinth/internal/proxypool"
	"github.com/APPLEPIE6969/Automodrinth/internal/stats"
)

// Server exposes the read-only status surface: an HTML dashboard, a JSON
// snapshot and Prometheus metrics.
type Server struct {
	pool  *proxypool.Pool
	stats *stats.Stats
	meta  *modrinth.Client
	port  int
}

func New(pool *proxypool.Pool, st *stats.Stats, meta *modrinth.Client, port int) *Server {
	return &Server{pool: pool, stats: st, meta: meta, port: port}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.routes(),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Status server listening", "port", s.port)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

type statusPayload struct {
	Project  string         `json:"project"`
	PoolSize int            `json:"pool_size"`
	Pool     []string       `json:"pool"`
	Stats    stats.Snapshot `json:"stats"`
}

func (s *Server) statusPayload() statusPayload {
	members := s.pool.Snapshot()
	addrs := make([]string, 0, len(members))
	for _, member := range members {
		addrs = append(addrs, member.Addr())
	}

	return statusPayload{
		Project:  s.meta.Project().Title,
		PoolSize: len(addrs),
		Pool:     addrs,
		Stats:    s.stats.Snapshot(),
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.statusPayload())
}

var dashboardTemplate = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html>
<head><title>Automodrinth</title>
<style>
body { font-family: monospace; background: #1b1b1f; color: #d4d4d8; margin: 2em; }
h1 { color: #30b27b; }
table { border-collapse: collapse; }
td, th { padding: 4px 12px; border: 1px solid #3f3f46; text-align: left; }
</style></head>
<body>
<h1>Automodrinth — {{.Project}}</h1>
<table>
<tr><th>Cycles</th><td>{{.Stats.Cycles}}</td></tr>
<tr><th>Views</th><td>{{.Stats.Views}}</td></tr>
<tr><th>Downloads OK</th><td>{{.Stats.DownloadsOK}}</td></tr>
<tr><th>Downloads failed</th><td>{{.Stats.DownloadsFailed}}</td></tr>
<tr><th>Errors</th><td>{{.Stats.Errors}}</td></tr>
<tr><th>Pool size</th><td>{{.PoolSize}}</td></tr>
<tr><th>Last refresh</th><td>{{.Stats.LastRefresh}}</td></tr>
<tr><th>Refresh tested / working</th><td>{{.Stats.LastTested}} / {{.Stats.LastWorking}}</td></tr>
</table>
{{if .Stats.LastDownload}}
<h1>Last download</h1>
<table>
<tr><th>File</th><td>{{.Stats.LastDownload.Filename}}</td></tr>
<tr><th>Version</th><td>{{.Stats.LastDownload.VersionName}}</td></tr>
<tr><th>Bytes</th><td>{{.Stats.LastDownload.Size}}</td></tr>
<tr><th>Via</th><td>{{.Stats.LastDownload.Via}}</td></tr>
<tr><th>At</th><td>{{.Stats.LastDownload.CompletedAt}}</td></tr>
</table>
{{end}}
</body>
</html>
`))

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTemplate.Execute(w, s.statusPayload()); err != nil {
		log.Error("Dashboard render failed", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
