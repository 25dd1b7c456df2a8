package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestParseText_StripsCommentsAndRejectsMalformed(t *testing.T) {
	body := []byte("1.2.3.4:8080 # fast one\n" +
		"999.1.2.3:80\n" +
		"1.2.3.4\n" +
		"1.2.3.4:\n" +
		"# whole line comment\n" +
		"   5.6.7.8:3128   \n" +
		"\n")

	proxies := parseText(body)
	if len(proxies) != 2 {
		t.Fatalf("parseText returned %d proxies, want 2: %v", len(proxies), proxies)
	}
	if proxies[0].Addr() != "1.2.3.4:8080" || proxies[1].Addr() != "5.6.7.8:3128" {
		t.Fatalf("parseText returned unexpected proxies: %v", proxies)
	}
}

func TestParseJSON_BareStringArray(t *testing.T) {
	body := []byte(`["1.2.3.4:8080", "not-a-proxy", "5.6.7.8:80"]`)

	proxies := parseJSON(body)
	if len(proxies) != 2 {
		t.Fatalf("parseJSON returned %d proxies, want 2", len(proxies))
	}
}

func TestParseJSON_ListingShape(t *testing.T) {
	body := []byte(`{"data":[{"ip":"1.2.3.4","port":"8080"},{"ip":"5.6.7.8","port":3128},{"ip":"300.0.0.1","port":"80"}]}`)

	proxies := parseJSON(body)
	if len(proxies) != 2 {
		t.Fatalf("parseJSON returned %d proxies, want 2: %v", len(proxies), proxies)
	}
	if proxies[1].Addr() != "5.6.7.8:3128" {
		t.Fatalf("parseJSON mishandled numeric port: %v", proxies[1])
	}
}

func TestParseHTML_TableRows(t *testing.T) {
	body := []byte(`<html><body><table><tbody>
		<tr><td>1.2.3.4</td><td>8080</td><td>US</td></tr>
		<tr><td>bad-host</td><td>80</td></tr>
		<tr><td>5.6.7.8</td><td>not-a-port</td></tr>
		<tr><td>9.9.9.9</td><td>3128</td></tr>
	</tbody></table></body></html>`)

	proxies, err := parseHTML(body)
	if err != nil {
		t.Fatalf("parseHTML returned error: %v", err)
	}
	if len(proxies) != 2 {
		t.Fatalf("parseHTML returned %d proxies, want 2: %v", len(proxies), proxies)
	}
}

func TestCollect_DeduplicatesAcrossSourcesAndAbsorbsFailures(t *testing.T) {
	sourceA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("1.2.3.4:8080\n5.6.7.8:80\n"))
	}))
	defer sourceA.Close()

	sourceB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("1.2.3.4:8080\n9.9.9.9:3128\n"))
	}))
	defer sourceB.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	c := New([]Source{
		{URL: sourceA.URL, Format: FormatText},
		{URL: sourceB.URL, Format: FormatText},
		{URL: broken.URL, Format: FormatText},
		{URL: "http://127.0.0.1:1/unreachable", Format: FormatText},
	}, 2*time.Second)

	proxies := c.Collect(context.Background())
	if len(proxies) != 3 {
		t.Fatalf("Collect returned %d proxies, want 3 deduplicated: %v", len(proxies), proxies)
	}

	seen := make(map[string]struct{})
	for _, proxy := range proxies {
		if _, dup := seen[proxy.Addr()]; dup {
			t.Fatalf("Collect returned duplicate %s", proxy.Addr())
		}
		seen[proxy.Addr()] = struct{}{}
	}
}

func TestCollect_EmptyOnTotalFailure(t *testing.T) {
	c := New([]Source{{URL: "http://127.0.0.1:1/nope", Format: FormatText}}, time.Second)

	if proxies := c.Collect(context.Background()); len(proxies) != 0 {
		t.Fatalf("Collect returned %d proxies from dead source, want 0", len(proxies))
	}
}
