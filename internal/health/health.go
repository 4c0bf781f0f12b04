package health

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/DMarby/stockphotos/internal/cache"
	"github.com/DMarby/stockphotos/internal/logger"
	"github.com/DMarby/stockphotos/internal/stockphoto"
)

const checkInterval = 10 * time.Second
const checkTimeout = 8 * time.Second

// Upstream is the stock photo API, as seen through the lookup service
type Upstream interface {
	ProviderCategories(ctx context.Context) (map[string]stockphoto.Category, error)
}

// Checker is a periodic health checker
type Checker struct {
	Ctx      context.Context
	Cache    cache.Provider
	Upstream Upstream
	status   Status
	mutex    sync.RWMutex
	Log      *logger.Logger
}

// Status contains the healtcheck status
type Status struct {
	Healthy  bool   `json:"healthy"`
	Cache    string `json:"cache,omitempty"`
	Upstream string `json:"upstream,omitempty"`
}

// Run starts the health checker
func (c *Checker) Run() {
	ticker := time.NewTicker(checkInterval)
	go func() {
		for {
			select {
			case <-ticker.C:
				c.runCheck()
			case <-c.Ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()

	c.runCheck()
}

// Status returns the status of the health checks
func (c *Checker) Status() Status {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return c.status
}

func (c *Checker) unknownStatus() Status {
	status := Status{
		Healthy: false,
	}
	if c.Cache != nil {
		status.Cache = "unknown"
	}
	if c.Upstream != nil {
		status.Upstream = "unknown"
	}

	return status
}

func (c *Checker) runCheck() {
	ctx, cancel := context.WithTimeout(c.Ctx, checkTimeout)
	defer cancel()

	channel := make(chan Status, 1)
	go func() {
		c.check(ctx, channel)
	}()

	select {
	case <-ctx.Done():
		c.mutex.Lock()
		c.status = c.unknownStatus()
		c.mutex.Unlock()
		c.Log.Errorw("healthcheck timed out")
	case status, ok := <-channel:
		if !ok {
			return
		}

		c.mutex.Lock()
		c.status = status
		c.mutex.Unlock()
		if !status.Healthy {
			c.Log.Errorw("healthcheck error",
				"status", status,
			)
		}
	}
}

func (c *Checker) check(ctx context.Context, channel chan Status) {
	defer close(channel)

	if ctx.Err() != nil {
		return
	}

	status := c.unknownStatus()
	status.Healthy = true

	if c.Cache != nil {
		if _, err := c.Cache.Get(ctx, "healthcheck"); !errors.Is(err, cache.ErrNotFound) {
			status.Healthy = false
			status.Cache = "unhealthy"
		} else {
			status.Cache = "healthy"
		}
	}

	if ctx.Err() != nil {
		return
	}

	// The category list is cached for a day, so this only reaches the API when it's due for a refresh anyway
	if c.Upstream != nil {
		if _, err := c.Upstream.ProviderCategories(ctx); err != nil {
			status.Healthy = false
			status.Upstream = "unhealthy"
		} else {
			status.Upstream = "healthy"
		}
	}

	channel <- status
}
