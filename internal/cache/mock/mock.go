package mock

import (
	"context"
	"fmt"
	"time"

	"github.com/DMarby/stockphotos/internal/cache"
)

// Provider is a mock cache. "notfound" and "seterror" miss, "error" fails, "seterror" can't be stored
// and every other key returns its own name.
type Provider struct{}

// Get returns an object from the cache if it exists
func (p *Provider) Get(ctx context.Context, key string) (data []byte, err error) {
	switch key {
	case "notfound", "seterror":
		return nil, cache.ErrNotFound
	case "error":
		return nil, fmt.Errorf("error")
	}

	return []byte(key), nil
}

// Set adds an object to the cache
func (p *Provider) Set(ctx context.Context, key string, data []byte, ttl time.Duration) (err error) {
	if key == "seterror" {
		return fmt.Errorf("seterror")
	}

	return nil
}

// Shutdown shuts down the cache
func (p *Provider) Shutdown() {}
