package cache

import (
	"context"
	"errors"
	"time"

	"github.com/DMarby/stockphotos/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/singleflight"
)

// Provider is an interface for getting and setting cached objects with an expiry
type Provider interface {
	Get(ctx context.Context, key string) (data []byte, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) (err error)
	Shutdown()
}

// LoaderFunc is a function for loading data into a cache
type LoaderFunc func(ctx context.Context) (data []byte, err error)

var cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "stockphotos",
	Name:      "cache_requests_total",
	Help:      "Cache lookups, partitioned by result (hit, miss, error).",
}, []string{"result"})

// Auto is a read-through cache that loads and stores objects that don't exist
type Auto struct {
	Provider    Provider
	Log         *logger.Logger
	lookupGroup singleflight.Group
}

// Get returns an object from the cache if it exists, otherwise it loads it, stores it for ttl and returns it.
// Loader errors are returned as-is and nothing is stored.
func (a *Auto) Get(ctx context.Context, key string, ttl time.Duration, load LoaderFunc) (data []byte, err error) {
	data, err = a.Provider.Get(ctx, key)
	switch {
	case err == nil:
		cacheRequests.WithLabelValues("hit").Inc()
		return data, nil
	case errors.Is(err, ErrNotFound):
		cacheRequests.WithLabelValues("miss").Inc()
	default:
		// A broken cache shouldn't take the upstream down with it, treat it as a miss
		cacheRequests.WithLabelValues("error").Inc()
		a.Log.Warnw("error reading from cache", "key", key, "error", err)
	}

	// Use singleflight to avoid concurrent loads of the same key
	v, err, _ := a.lookupGroup.Do(key, func() (interface{}, error) {
		data, err := load(ctx)
		if err != nil {
			return nil, err
		}

		if err := a.Provider.Set(ctx, key, data, ttl); err != nil {
			a.Log.Warnw("error writing to cache", "key", key, "error", err)
		}

		return data, nil
	})
	if err != nil {
		return nil, err
	}

	data, _ = v.([]byte)
	return data, nil
}

// Errors
var (
	ErrNotFound = errors.New("not found in cache")
)
