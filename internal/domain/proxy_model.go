package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// candidatePattern matches the only address shape the collector accepts:
// IPv4 dotted quad, colon, 1-5 digit port. Octet and port ranges are
// validated separately in ParseProxy.
var candidatePattern = regexp.MustCompile(`^(\d{1,3})\.(\d{1,3})\.(\d{1,3})\.(\d{1,3}):(\d{1,5})$`)

type Proxy struct {
	IP   string
	Port uint16
}

func (p Proxy) Addr() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

// URL returns the proxy as an http-scheme forward proxy URL.
func (p Proxy) URL() *url.URL {
	return &url.URL{Scheme: "http", Host: p.Addr()}
}

func (p Proxy) IsZero() bool {
	return p.IP == "" && p.Port == 0
}

// ParseProxy validates and parses a host:port candidate line. Entries that
// are not a plain IPv4:port pair are rejected.
func ParseProxy(raw string) (Proxy, error) {
	raw = strings.TrimSpace(raw)
	match := candidatePattern.FindStringSubmatch(raw)
	if match == nil {
		return Proxy{}, fmt.Errorf("invalid proxy candidate %q", raw)
	}

	for _, octet := range match[1:5] {
		value, err := strconv.Atoi(octet)
		if err != nil || value > 255 {
			return Proxy{}, fmt.Errorf("invalid proxy candidate %q: octet out of range", raw)
		}
	}

	port, err := strconv.Atoi(match[5])
	if err != nil || port < 1 || port > 65535 {
		return Proxy{}, fmt.Errorf("invalid proxy candidate %q: port out of range", raw)
	}

	host := strings.Join(match[1:5], ".")
	return Proxy{IP: host, Port: uint16(port)}, nil
}
