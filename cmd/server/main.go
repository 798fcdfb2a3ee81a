// Command server runs the BIN directory resolution service. main wires the
// store and cache collaborators, mounts the HTTP surface, and keeps the
// server lifecycle small; business logic lives in internal/directory.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"bindirectory/internal/directory/cache"
	"bindirectory/internal/directory/handler"
	"bindirectory/internal/directory/metrics"
	"bindirectory/internal/directory/service"
	"bindirectory/internal/directory/store"
	memorystore "bindirectory/internal/directory/store/memory"
	postgresstore "bindirectory/internal/directory/store/postgres"
	"bindirectory/internal/platform/config"
	"bindirectory/internal/platform/httpserver"
	"bindirectory/internal/platform/logger"
	"bindirectory/internal/platform/postgres"
	platformredis "bindirectory/internal/platform/redis"
	"bindirectory/pkg/platform/httputil"
	"bindirectory/pkg/platform/middleware/originsecret"
	"bindirectory/pkg/platform/middleware/requestid"
	"bindirectory/pkg/platform/middleware/requesttime"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Store backend: PostgreSQL when configured, in-memory otherwise.
	var (
		st          store.Store
		healthStore func(context.Context) error
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := postgresstore.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}
		st = postgresstore.New(db)
		healthStore = db.PingContext
		log.Info("using postgres store")
	} else {
		st = memorystore.New()
		healthStore = func(context.Context) error { return nil }
		log.Info("using in-memory store, records will not survive a restart")
	}

	// Cache backend: Redis when configured. A nil KV degrades the engine
	// to always resolving from the store.
	var kv cache.KV
	healthCache := func(context.Context) error { return nil }
	if cfg.RedisURL != "" {
		redisClient, err := platformredis.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Error("redis connection failed", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
		kv = cache.NewRedisKV(redisClient.Client)
		healthCache = redisClient.Health
		log.Info("using redis lookup cache")
	} else {
		log.Info("no redis configured, resolving every BIN from the store")
	}

	m := metrics.New()
	lookup := cache.NewLookup(kv, cache.WithLogger(log), cache.WithMetrics(m))
	svc := service.New(st, lookup, service.WithLogger(log), service.WithMetrics(m))

	router := chi.NewRouter()
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestid.Middleware)
	router.Use(requesttime.Middleware)
	router.Use(originsecret.Middleware(cfg.OriginSecret, cfg.OriginSecretEnabled, log))

	handler.New(svc, log).Register(router)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/health", healthHandler(healthStore, healthCache))

	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting bindirectory", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

// healthHandler reports the liveness of both collaborators. The cache being
// down is reported but never fatal, matching the engine's degradation
// policy.
func healthHandler(store, cache func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		body := map[string]string{"status": "ok", "store": "ok", "cache": "ok"}

		if err := store(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["store"] = err.Error()
		}
		if err := cache(r.Context()); err != nil {
			body["cache"] = err.Error()
		}

		httputil.WriteJSON(w, status, body)
	}
}
