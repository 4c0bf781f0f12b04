package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/DMarby/stockphotos/internal/alias"
	aliasFile "github.com/DMarby/stockphotos/internal/alias/file"
	"github.com/DMarby/stockphotos/internal/alias/spaces"
	"github.com/DMarby/stockphotos/internal/api"
	"github.com/DMarby/stockphotos/internal/cache"
	"github.com/DMarby/stockphotos/internal/cache/memory"
	"github.com/DMarby/stockphotos/internal/cache/redis"
	"github.com/DMarby/stockphotos/internal/cache/ristretto"
	"github.com/DMarby/stockphotos/internal/cmd"
	"github.com/DMarby/stockphotos/internal/health"
	"github.com/DMarby/stockphotos/internal/imagelookup"
	"github.com/DMarby/stockphotos/internal/logger"
	"github.com/DMarby/stockphotos/internal/metrics"
	"github.com/DMarby/stockphotos/internal/stockphoto"
	"github.com/DMarby/stockphotos/internal/tracing"

	"github.com/jamiealquiza/envy"
	"go.uber.org/automaxprocs/maxprocs"
	"go.uber.org/zap"
)

const serviceName = "stockphotos"

// Comandline flags
var (
	// Global
	listen        = flag.String("listen", ":8080", "listen address")
	metricsListen = flag.String("metrics-listen", "127.0.0.1:8082", "metrics listen address")
	loglevel      = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")
	tracingOTLP   = flag.Bool("tracing", false, "export traces over otlp, configured with the OTEL_EXPORTER_OTLP_* environment variables")

	// Stock photo API
	apiBaseURL           = flag.String("api-base-url", "https://d3.godaddy.com/api/v1/", "stock photo api base url")
	apiImageEndpoint     = flag.String("api-image-endpoint", stockphoto.DefaultImageEndpoint, "stock photo api image endpoint, relative to the base url")
	apiCategoryEndpoint  = flag.String("api-category-endpoint", stockphoto.DefaultCategoryEndpoint, "stock photo api category endpoint, relative to the base url")
	apiToken             = flag.String("api-token", "", "stock photo api token")
	apiRequestsPerSecond = flag.Float64("api-requests-per-second", 0, "max requests per second to the stock photo api, 0 for no limit")
	apiTimeout           = flag.Duration("api-timeout", 10*time.Second, "timeout for requests to the stock photo api")

	// Lookup
	imagesTTL     = flag.Duration("images-ttl", time.Hour, "how long to cache image lists")
	categoriesTTL = flag.Duration("categories-ttl", 24*time.Hour, "how long to cache the category list")
	maxParentHops = flag.Int("max-parent-hops", 10, "how many parent categories to walk up when a category has no images")

	// Aliases
	aliasBackend = flag.String("aliases", "file", "where to load category aliases from (none, file, spaces)")

	// Aliases - File
	aliasFilePath = flag.String("aliases-file-path", "./test/fixtures/aliases.yaml", "path to the alias file")

	// Aliases - Spaces
	aliasSpacesSpace          = flag.String("aliases-spaces-space", "", "digitalocean space to use")
	aliasSpacesEndpoint       = flag.String("aliases-spaces-endpoint", "", "spaces endpoint")
	aliasSpacesAccessKey      = flag.String("aliases-spaces-access-key", "", "spaces access key")
	aliasSpacesSecretKey      = flag.String("aliases-spaces-secret-key", "", "spaces secret key")
	aliasSpacesKey            = flag.String("aliases-spaces-key", "aliases.yaml", "key of the alias file in the space")
	aliasSpacesForcePathStyle = flag.Bool("aliases-spaces-force-path-style", false, "use path style addressing, for S3 compatible servers other than spaces")

	// Cache
	cacheBackend = flag.String("cache", "memory", "which cache backend to use (memory, ristretto, redis)")

	// Cache - Ristretto
	cacheRistrettoMaxCost = flag.Int64("cache-ristretto-max-cost", 64<<20, "max size of the ristretto cache in bytes")

	// Cache - Redis
	cacheRedisAddress  = flag.String("cache-redis-address", "redis://127.0.0.1:6379", "redis address, may contain authentication details")
	cacheRedisPoolSize = flag.Int("cache-redis-pool-size", 10, "redis connection pool size")
)

func main() {
	// Parse environment variables
	envy.Parse("STOCKPHOTOS")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	log := logger.New(*loglevel)
	defer log.Sync()

	// Set GOMAXPROCS
	maxprocs.Set(maxprocs.Logger(log.Infof))

	// Set up context for shutting down
	shutdownCtx, shutdown := context.WithCancel(context.Background())
	defer shutdown()

	// Initialize tracing
	tracer := tracing.Noop(log, serviceName)
	if *tracingOTLP {
		var err error
		tracer, err = tracing.New(shutdownCtx, log, serviceName)
		if err != nil {
			log.Fatalf("error initializing tracing: %s", err)
		}
	}
	defer tracer.Shutdown(context.Background())

	// Initialize the aliases and cache
	aliases, cache, err := setupBackends(shutdownCtx, tracer)
	if err != nil {
		log.Fatalf("error initializing backends: %s", err)
	}
	defer cache.Shutdown()

	// Initialize the lookup service
	if *apiToken == "" {
		log.Warnf("no stock photo api token configured")
	}

	client := stockphoto.New(stockphoto.Config{
		BaseURL:           *apiBaseURL,
		ImageEndpoint:     *apiImageEndpoint,
		CategoryEndpoint:  *apiCategoryEndpoint,
		Token:             *apiToken,
		RequestsPerSecond: *apiRequestsPerSecond,
		Timeout:           *apiTimeout,
	}, tracer)

	lookupConfig := imagelookup.DefaultConfig()
	lookupConfig.ImagesTTL = *imagesTTL
	lookupConfig.CategoriesTTL = *categoriesTTL
	lookupConfig.MaxParentHops = *maxParentHops

	lookup := imagelookup.New(lookupConfig, client, aliases, cache, log.Named("imagelookup"), tracer)

	// Initialize and start the health checker
	checkerCtx, checkerCancel := context.WithCancel(context.Background())
	defer checkerCancel()

	checker := &health.Checker{
		Ctx:      checkerCtx,
		Cache:    cache,
		Upstream: lookup,
		Log:      log,
	}
	go checker.Run()

	// Start the metrics http server
	go metrics.Serve(shutdownCtx, log, checker, *metricsListen)

	// Start and listen on http
	api := &api.API{
		Lookup:         lookup,
		HealthChecker:  checker,
		Log:            log,
		Tracer:         tracer,
		HandlerTimeout: cmd.HandlerTimeout,
	}
	server := &http.Server{
		Addr:         *listen,
		Handler:      api.Router(),
		ReadTimeout:  cmd.ReadTimeout,
		WriteTimeout: cmd.WriteTimeout,
		ErrorLog:     logger.NewHTTPErrorLog(log),
	}

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Infof("shutting down the http server: %s", err)
			shutdown()
		}
	}()

	log.Infof("http server listening on %s", *listen)

	// Wait for shutdown or error
	err = cmd.WaitForInterrupt(shutdownCtx)
	log.Infof("shutting down: %s", err)

	// Shut down http server
	cmd.Shutdown(log, server)
}

func setupBackends(ctx context.Context, tracer *tracing.Tracer) (aliases alias.Table, cacheProvider cache.Provider, err error) {
	// Aliases
	switch *aliasBackend {
	case "none":
		aliases = alias.Map{}
	case "file":
		aliases, err = aliasFile.New(*aliasFilePath)
	case "spaces":
		aliases, err = spaces.New(ctx, spaces.Config{
			Space:          *aliasSpacesSpace,
			Endpoint:       *aliasSpacesEndpoint,
			AccessKey:      *aliasSpacesAccessKey,
			SecretKey:      *aliasSpacesSecretKey,
			Key:            *aliasSpacesKey,
			ForcePathStyle: *aliasSpacesForcePathStyle,
		})
	default:
		err = fmt.Errorf("invalid alias backend")
	}

	if err != nil {
		return
	}

	// Cache
	switch *cacheBackend {
	case "memory":
		cacheProvider = memory.New()
	case "ristretto":
		cacheProvider, err = ristretto.New(*cacheRistrettoMaxCost)
	case "redis":
		cacheProvider, err = redis.New(ctx, tracer, *cacheRedisAddress, *cacheRedisPoolSize)
	default:
		err = fmt.Errorf("invalid cache backend")
	}

	return
}
