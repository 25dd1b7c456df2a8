package checker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/APPLEPIE6969/Automodrinth/internal/domain"
)

// fakeForwardProxy stands in for a candidate: an HTTP server that answers
// the absolute-URI GET a forward proxy would receive.
func fakeForwardProxy(t *testing.T, handler http.HandlerFunc) domain.Proxy {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	proxy, err := domain.ParseProxy(server.Listener.Addr().String())
	if err != nil {
		t.Fatalf("failed to parse test server address: %v", err)
	}
	return proxy
}

func TestCheck_UsableProxy(t *testing.T) {
	candidate := fakeForwardProxy(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"origin": "93.184.216.34"}`))
	})

	c := New("http://probe.invalid/ip", "http", 2*time.Second)
	if !c.Check(context.Background(), candidate) {
		t.Fatal("Check classified a working proxy as dead")
	}
}

func TestCheck_NonSuccessStatus(t *testing.T) {
	candidate := fakeForwardProxy(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	c := New("http://probe.invalid/ip", "http", 2*time.Second)
	if c.Check(context.Background(), candidate) {
		t.Fatal("Check classified a 403-answering proxy as usable")
	}
}

func TestCheck_MalformedBody(t *testing.T) {
	candidate := fakeForwardProxy(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>blocked</html>"))
	})

	c := New("http://probe.invalid/ip", "http", 2*time.Second)
	if c.Check(context.Background(), candidate) {
		t.Fatal("Check classified a non-JSON answer as usable")
	}
}

func TestCheck_MissingOriginField(t *testing.T) {
	candidate := fakeForwardProxy(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ip": "1.2.3.4"}`))
	})

	c := New("http://probe.invalid/ip", "http", 2*time.Second)
	if c.Check(context.Background(), candidate) {
		t.Fatal("Check accepted a body without an origin field")
	}
}

func TestCheck_UnreachableProxy(t *testing.T) {
	c := New("http://probe.invalid/ip", "http", 500*time.Millisecond)
	if c.Check(context.Background(), domain.Proxy{IP: "127.0.0.1", Port: 1}) {
		t.Fatal("Check classified an unreachable proxy as usable")
	}
}

func TestCheck_UnsupportedProtocol(t *testing.T) {
	c := New("http://probe.invalid/ip", "carrier-pigeon", time.Second)
	if c.Check(context.Background(), domain.Proxy{IP: "127.0.0.1", Port: 1080}) {
		t.Fatal("Check accepted an unsupported proxy protocol")
	}
}
