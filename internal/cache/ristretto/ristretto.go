package ristretto

import (
	"context"
	"errors"
	"time"

	"github.com/DMarby/stockphotos/internal/cache"
	"github.com/dgraph-io/ristretto/v2"
)

// ErrRejected is returned when ristretto drops a write, either due to contention or its admission policy
var ErrRejected = errors.New("rejected by the cache")

// Provider implements an in-process cache backed by ristretto
type Provider struct {
	cache *ristretto.Cache[string, []byte]
}

// New returns a new Provider instance holding up to maxCost bytes of data
func New(maxCost int64) (*Provider, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters:        maxCost / 100 * 10, // ~10x the expected number of items
		MaxCost:            maxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}

	return &Provider{
		cache: c,
	}, nil
}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	data, found := p.cache.Get(key)
	if !found {
		return nil, cache.ErrNotFound
	}

	return data, nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte, ttl time.Duration) (err error) {
	if !p.cache.SetWithTTL(key, data, int64(len(data)), ttl) {
		return ErrRejected
	}

	// Writes are buffered, wait for it to be visible to readers
	p.cache.Wait()
	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {
	p.cache.Close()
}
