package memory

import (
	"context"
	"sync"
	"time"

	"github.com/DMarby/stockphotos/internal/cache"
)

type entry struct {
	data    []byte
	expires time.Time
}

// Provider implements a simple in-memory cache with per-key expiry
type Provider struct {
	cache map[string]entry
	mutex sync.RWMutex
	now   func() time.Time
}

// New returns a new Provider instance
func New() *Provider {
	return NewWithClock(time.Now)
}

// NewWithClock returns a new Provider instance that uses the given clock for expiry
func NewWithClock(now func() time.Time) *Provider {
	return &Provider{
		cache: make(map[string]entry),
		now:   now,
	}
}

// Get returns an object from the cache if it exists and hasn't expired
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	p.mutex.RLock()
	e, exists := p.cache[key]
	p.mutex.RUnlock()

	if !exists {
		return nil, cache.ErrNotFound
	}

	if !p.now().Before(e.expires) {
		p.mutex.Lock()
		// Only drop it if it hasn't been replaced in the meantime
		if current, ok := p.cache[key]; ok && current.expires.Equal(e.expires) {
			delete(p.cache, key)
		}
		p.mutex.Unlock()

		return nil, cache.ErrNotFound
	}

	return e.data, nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte, ttl time.Duration) (err error) {
	p.mutex.Lock()
	p.cache[key] = entry{
		data:    data,
		expires: p.now().Add(ttl),
	}
	p.mutex.Unlock()

	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
