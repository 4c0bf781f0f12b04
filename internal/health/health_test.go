package health_test

import (
	"context"
	"fmt"
	"reflect"
	"testing"

	"github.com/DMarby/stockphotos/internal/health"
	"github.com/DMarby/stockphotos/internal/logger"
	"github.com/DMarby/stockphotos/internal/stockphoto"
	"go.uber.org/zap"

	memoryCache "github.com/DMarby/stockphotos/internal/cache/memory"
	mockCache "github.com/DMarby/stockphotos/internal/cache/mock"
)

type upstream struct {
	err error
}

func (u *upstream) ProviderCategories(ctx context.Context) (map[string]stockphoto.Category, error) {
	if u.err != nil {
		return nil, u.err
	}

	return map[string]stockphoto.Category{"health": {ID: "health"}}, nil
}

func TestHealth(t *testing.T) {
	log := logger.New(zap.FatalLevel)
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache := memoryCache.New()
	healthyUpstream := &upstream{}
	brokenUpstream := &upstream{err: fmt.Errorf("connection refused")}

	tests := []struct {
		Name           string
		ExpectedStatus health.Status
		Checker        *health.Checker
	}{
		{
			Name: "runs checks and returns correct status",
			ExpectedStatus: health.Status{
				Healthy:  true,
				Cache:    "healthy",
				Upstream: "healthy",
			},
			Checker: &health.Checker{Ctx: ctx, Cache: cache, Upstream: healthyUpstream, Log: log},
		},
		{
			Name: "runs checks and returns correct status with broken upstream",
			ExpectedStatus: health.Status{
				Healthy:  false,
				Cache:    "healthy",
				Upstream: "unhealthy",
			},
			Checker: &health.Checker{Ctx: ctx, Cache: cache, Upstream: brokenUpstream, Log: log},
		},
		{
			Name: "runs checks and returns correct status with broken cache",
			ExpectedStatus: health.Status{
				Healthy:  false,
				Cache:    "unhealthy",
				Upstream: "healthy",
			},
			Checker: &health.Checker{Ctx: ctx, Cache: &mockCache.Provider{}, Upstream: healthyUpstream, Log: log},
		},
		{
			Name: "runs checks and returns correct status with only a cache",
			ExpectedStatus: health.Status{
				Healthy: true,
				Cache:   "healthy",
			},
			Checker: &health.Checker{Ctx: ctx, Cache: cache, Log: log},
		},
	}

	for _, test := range tests {
		test.Checker.Run()
		status := test.Checker.Status()

		if !reflect.DeepEqual(status, test.ExpectedStatus) {
			t.Errorf("%s: wrong status %+v", test.Name, status)
		}
	}
}
