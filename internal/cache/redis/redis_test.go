//go:build integration
// +build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/DMarby/stockphotos/internal/cache"
	"github.com/DMarby/stockphotos/internal/cache/redis"
	"github.com/DMarby/stockphotos/internal/logger"
	"github.com/DMarby/stockphotos/internal/tracing/test"
	"github.com/mediocregopher/radix/v4"
	"go.uber.org/zap"
)

const (
	address  = "127.0.0.1:6380"
	poolSize = 10
)

func TestRedis(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log := logger.New(zap.ErrorLevel)
	defer log.Sync()

	tracer := test.Tracer(log)

	provider, err := redis.New(ctx, tracer, address, poolSize)
	if err != nil {
		t.Fatal(err)
	}

	cfg := radix.PoolConfig{}
	client, err := cfg.New(ctx, "tcp", address)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	t.Run("get item", func(t *testing.T) {
		if err := provider.Set(ctx, "foo", []byte("bar"), time.Hour); err != nil {
			t.Fatal(err)
		}

		data, err := provider.Get(ctx, "foo")
		if err != nil {
			t.Fatal(err)
		}

		if string(data) != "bar" {
			t.Fatal("wrong data")
		}
	})

	t.Run("sets an expiry", func(t *testing.T) {
		if err := provider.Set(ctx, "expiring", []byte("bar"), time.Hour); err != nil {
			t.Fatal(err)
		}

		var ttl int
		if err := client.Do(ctx, radix.Cmd(&ttl, "TTL", "expiring")); err != nil {
			t.Fatal(err)
		}

		if ttl <= 0 || ttl > 3600 {
			t.Fatalf("wrong ttl %d", ttl)
		}
	})

	t.Run("get expired item", func(t *testing.T) {
		if err := provider.Set(ctx, "short", []byte("bar"), 50*time.Millisecond); err != nil {
			t.Fatal(err)
		}

		time.Sleep(100 * time.Millisecond)

		if _, err := provider.Get(ctx, "short"); err != cache.ErrNotFound {
			t.Fatalf("wrong error %v", err)
		}
	})

	t.Run("get nonexistant item", func(t *testing.T) {
		_, err := provider.Get(ctx, "notfound")
		if err == nil {
			t.Fatal("no error")
		}

		if err != cache.ErrNotFound {
			t.Fatalf("wrong error %s", err)
		}
	})

	// Clean up
	client.Do(ctx, radix.Cmd(nil, "FLUSHALL"))

	t.Run("get error", func(t *testing.T) {
		provider.Shutdown()
		_, err := provider.Get(ctx, "notfound")
		if err == nil {
			t.Fatal("no error")
		}
	})
}

func TestNew(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := redis.New(ctx, nil, "", 10)
	if err == nil {
		t.Fatal("no error")
	}
}
