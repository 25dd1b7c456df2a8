package support

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"

	"github.com/APPLEPIE6969/Automodrinth/internal/domain"
)

const (
	ProtocolHTTP   = "http"
	ProtocolSOCKS5 = "socks5"
)

// CreateProxyTransport builds a one-shot transport that routes requests
// through the given upstream proxy. Keep-alives are disabled so every
// request opens a fresh connection through the current pool member.
func CreateProxyTransport(upstream domain.Proxy, protocol string, timeout time.Duration) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 0,
		}).DialContext,
		DisableKeepAlives:     true,
		MaxIdleConns:          0,
		MaxIdleConnsPerHost:   0,
		IdleConnTimeout:       0,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	switch protocol {
	case ProtocolHTTP, "":
		transport.Proxy = http.ProxyURL(upstream.URL())

	case ProtocolSOCKS5:
		socksDialer, err := proxy.SOCKS5("tcp", upstream.Addr(), nil, &net.Dialer{Timeout: timeout})
		if err != nil {
			return nil, err
		}
		transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			if contextDialer, ok := socksDialer.(proxy.ContextDialer); ok {
				return contextDialer.DialContext(ctx, network, addr)
			}
			return socksDialer.Dial(network, addr)
		}

	default:
		return nil, fmt.Errorf("unsupported proxy protocol %q", protocol)
	}

	return transport, nil
}

// CreateProxyClient wraps CreateProxyTransport in a client with an overall
// request deadline.
func CreateProxyClient(upstream domain.Proxy, protocol string, timeout time.Duration) (*http.Client, error) {
	transport, err := CreateProxyTransport(upstream, protocol, timeout)
	if err != nil {
		return nil, err
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// CreateDirectClient builds a client that bypasses the pool entirely.
func CreateDirectClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   timeout,
				KeepAlive: 0,
			}).DialContext,
			DisableKeepAlives:   true,
			TLSHandshakeTimeout: 10 * time.Second,
		},
		Timeout: timeout,
	}
}
