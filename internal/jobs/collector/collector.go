package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"

	"github.com/APPLEPIE6969/Automodrinth/internal/domain"
	"github.com/APPLEPIE6969/Automodrinth/internal/support"
)

const (
	FormatText = "text"
	FormatJSON = "json"
	FormatHTML = "html"

	maxSourceBody = 4 << 20
)

type Source struct {
	URL    string
	Format string
}

// DefaultSources are the public list endpoints polled when no override is
// configured. A failing source contributes nothing; it never aborts a pass.
var DefaultSources = []Source{
	{URL: "https://api.proxyscrape.com/v2/?request=displayproxies&protocol=http&timeout=5000&country=all&ssl=all&anonymity=all", Format: FormatText},
	{URL: "https://www.proxy-list.download/api/v1/get?type=http", Format: FormatText},
	{URL: "https://raw.githubusercontent.com/TheSpeedX/PROXY-List/master/http.txt", Format: FormatText},
	{URL: "https://raw.githubusercontent.com/monosans/proxy-list/main/proxies/http.txt", Format: FormatText},
	{URL: "https://proxylist.geonode.com/api/proxy-list?limit=200&page=1&sort_by=lastChecked&sort_type=desc&protocols=http", Format: FormatJSON},
	{URL: "https://free-proxy-list.net/", Format: FormatHTML},
}

type Collector struct {
	sources []Source
	client  *http.Client
	timeout time.Duration
}

// New builds a collector over the given sources. Text sources may be passed
// as bare URLs (config override); format is inferred from the extensionless
// default of text.
func New(sources []Source, perSourceTimeout time.Duration) *Collector {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	return &Collector{
		sources: sources,
		client:  support.CreateDirectClient(perSourceTimeout),
		timeout: perSourceTimeout,
	}
}

// FromURLs wraps plain URL strings as text sources, used for the
// environment override where no format metadata is available.
func FromURLs(urls []string) []Source {
	sources := make([]Source, 0, len(urls))
	for _, u := range urls {
		sources = append(sources, Source{URL: u, Format: FormatText})
	}
	return sources
}

// Collect fetches every source concurrently and aggregates the candidates
// into one deduplicated set. It never fails as a whole.
func (c *Collector) Collect(ctx context.Context) []domain.Proxy {
	var wg sync.WaitGroup
	results := make(chan []domain.Proxy, len(c.sources))

	for _, source := range c.sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			candidates, err := c.fetchSource(ctx, src)
			if err != nil {
				log.Warn("Proxy source failed", "url", src.URL, "error", err)
				return
			}
			results <- candidates
		}(source)
	}

	wg.Wait()
	close(results)

	seen := make(map[string]struct{})
	var deduped []domain.Proxy
	for candidates := range results {
		for _, candidate := range candidates {
			addr := candidate.Addr()
			if _, dup := seen[addr]; dup {
				continue
			}
			seen[addr] = struct{}{}
			deduped = append(deduped, candidate)
		}
	}

	return deduped
}

func (c *Collector) fetchSource(ctx context.Context, source Source) ([]domain.Proxy, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, source.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", support.UserAgent())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("source returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBody))
	if err != nil {
		return nil, err
	}

	switch source.Format {
	case FormatJSON:
		return parseJSON(body), nil
	case FormatHTML:
		return parseHTML(body)
	default:
		return parseText(body), nil
	}
}

// parseText handles newline-delimited host:port lists. Trailing comments
// after a '#' are stripped before validation.
func parseText(body []byte) []domain.Proxy {
	var proxies []domain.Proxy
	for _, line := range strings.Split(string(body), "\n") {
		if idx := strings.Index(line, "#"); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if proxy, err := domain.ParseProxy(line); err == nil {
			proxies = append(proxies, proxy)
		}
	}
	return proxies
}

type jsonEntry struct {
	IP   string          `json:"ip"`
	Port json.RawMessage `json:"port"`
}

type jsonListing struct {
	Data    []jsonEntry `json:"data"`
	Proxies []jsonEntry `json:"proxies"`
}

// parseJSON handles both a bare array of "host:port" strings and the
// {"data":[{"ip","port"}]} listing shape used by geonode-style APIs.
func parseJSON(body []byte) []domain.Proxy {
	var proxies []domain.Proxy

	var plain []string
	if err := json.Unmarshal(body, &plain); err == nil {
		for _, entry := range plain {
			if proxy, parseErr := domain.ParseProxy(entry); parseErr == nil {
				proxies = append(proxies, proxy)
			}
		}
		return proxies
	}

	var listing jsonListing
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil
	}
	entries := listing.Data
	if len(entries) == 0 {
		entries = listing.Proxies
	}
	for _, entry := range entries {
		port := strings.Trim(string(entry.Port), `"`)
		if proxy, err := domain.ParseProxy(entry.IP + ":" + port); err == nil {
			proxies = append(proxies, proxy)
		}
	}
	return proxies
}

// parseHTML extracts ip/port pairs from the first-two-columns table layout
// free-proxy-list style pages use.
func parseHTML(body []byte) ([]domain.Proxy, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	var proxies []domain.Proxy
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return
		}
		ip := strings.TrimSpace(cells.Eq(0).Text())
		port := strings.TrimSpace(cells.Eq(1).Text())
		if _, err := strconv.Atoi(port); err != nil {
			return
		}
		if proxy, err := domain.ParseProxy(ip + ":" + port); err == nil {
			proxies = append(proxies, proxy)
		}
	})
	return proxies, nil
}
