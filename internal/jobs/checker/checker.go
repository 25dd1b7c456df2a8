package checker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/APPLEPIE6969/Automodrinth/internal/domain"
	"github.com/APPLEPIE6969/Automodrinth/internal/support"
)

const maxProbeBody = 64 << 10

// Checker classifies candidate proxies with a single probe request against
// an echo endpoint. It holds no mutable state; Check may be called from any
// number of goroutines at once.
type Checker struct {
	probeURL string
	protocol string
	timeout  time.Duration
}

func New(probeURL, protocol string, timeout time.Duration) *Checker {
	return &Checker{probeURL: probeURL, protocol: protocol, timeout: timeout}
}

type probeResponse struct {
	Origin string `json:"origin"`
}

// Check routes one GET through the candidate and requires a 2xx response
// whose JSON body carries a non-empty "origin" string. That field proves
// the request actually egressed through the proxy instead of failing in a
// way the transport silently papered over.
func (c *Checker) Check(ctx context.Context, candidate domain.Proxy) bool {
	client, err := support.CreateProxyClient(candidate, c.protocol, c.timeout)
	if err != nil {
		log.Debug("Probe transport setup failed", "proxy", candidate.Addr(), "error", err)
		return false
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.probeURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", support.UserAgent())

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxProbeBody))
	if err != nil {
		return false
	}

	var probe probeResponse
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}

	return strings.TrimSpace(probe.Origin) != ""
}
