package proxypool

import (
	"errors"
	"sync"

	"github.com/APPLEPIE6969/Automodrinth/internal/domain"
)

// ErrEmpty is returned by Checkout when no verified proxies are available.
var ErrEmpty = errors.New("proxy pool is empty")

// Pool holds the verified-working proxies in rotation order. Checkout and
// Evict are called by the cycle controller, Replace by the refresher, so
// every mutation is serialized behind the mutex.
type Pool struct {
	mu      sync.Mutex
	proxies []domain.Proxy
}

func New() *Pool {
	return &Pool{}
}

// Checkout returns the head proxy and rotates it to the tail.
func (p *Pool) Checkout() (domain.Proxy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return domain.Proxy{}, ErrEmpty
	}

	head := p.proxies[0]
	p.proxies = append(p.proxies[1:], head)
	return head, nil
}

// Evict removes every occurrence of the given proxy. Evicting a proxy that
// is not in the pool is a no-op.
func (p *Pool) Evict(proxy domain.Proxy) {
	p.mu.Lock()
	defer p.mu.Unlock()

	kept := p.proxies[:0]
	for _, member := range p.proxies {
		if member != proxy {
			kept = append(kept, member)
		}
	}
	p.proxies = kept
}

// Replace swaps the whole pool for a freshly verified set.
func (p *Pool) Replace(proxies []domain.Proxy) {
	replacement := make([]domain.Proxy, len(proxies))
	copy(replacement, proxies)

	p.mu.Lock()
	p.proxies = replacement
	p.mu.Unlock()
}

func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.proxies)
}

// Snapshot returns a copy of the current rotation order.
func (p *Pool) Snapshot() []domain.Proxy {
	p.mu.Lock()
	defer p.mu.Unlock()

	snapshot := make([]domain.Proxy, len(p.proxies))
	copy(snapshot, p.proxies)
	return snapshot
}
