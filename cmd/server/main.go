package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"veritrail/internal/audit"
	auditmetrics "veritrail/internal/audit/metrics"
	"veritrail/internal/audit/store/fallback"
	auditpg "veritrail/internal/audit/store/postgres"
	"veritrail/internal/audit/worker"
	"veritrail/internal/platform/config"
	"veritrail/internal/platform/httpserver"
	"veritrail/internal/platform/logger"
	platformmetrics "veritrail/internal/platform/metrics"
	"veritrail/internal/platform/postgres"
	"veritrail/internal/platform/redis"
	rlconfig "veritrail/internal/ratelimit/config"
	rlmetrics "veritrail/internal/ratelimit/metrics"
	rlmiddleware "veritrail/internal/ratelimit/middleware"
	rlservice "veritrail/internal/ratelimit/service"
	"veritrail/internal/ratelimit/store/bucket"
	httptransport "veritrail/internal/transport/http"
)

// main wires dependencies and owns the process lifecycle. Business logic lives
// in the internal services.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := redis.New(cfg.RedisURL, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Ranked sink list: remote primary first when configured, the capped local
	// fallback always last.
	var sinks []audit.Sink
	if db != nil {
		pgSink := auditpg.New(db)
		if err := pgSink.EnsureSchema(ctx); err != nil {
			log.Error("audit schema setup failed", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, pgSink)
	}

	var kv fallback.KV = fallback.NewInMemoryKV()
	if redisClient != nil {
		kv = fallback.NewRedisKV(redisClient.Client)
	}
	sinks = append(sinks, fallback.New(kv, fallback.WithCap(cfg.Audit.FallbackCap)))

	auditSvc, err := audit.NewService(sinks,
		audit.WithLogger(log),
		audit.WithMetrics(auditmetrics.New()),
		audit.WithFlushThreshold(cfg.Audit.BufferFlushAt),
		audit.WithExportCap(cfg.Audit.ExportQueryCap),
		audit.WithRemoteTimeout(cfg.Audit.RemoteTimeout),
	)
	if err != nil {
		log.Error("audit service setup failed", "error", err)
		os.Exit(1)
	}

	limiterOpts := []rlservice.Option{
		rlservice.WithLogger(log),
		rlservice.WithMetrics(rlmetrics.New()),
	}
	if redisClient != nil {
		limiterOpts = append(limiterOpts, rlservice.WithStore(bucket.NewRedisStore(redisClient.Client)))
	}
	limiter, err := rlservice.New(rlconfig.DefaultProfiles(), limiterOpts...)
	if err != nil {
		log.Error("rate limiter setup failed", "error", err)
		os.Exit(1)
	}

	limit := rlmiddleware.New(limiter, log, rlmiddleware.WithSecurityRecorder(auditSvc))

	handler := httptransport.NewHandler(auditSvc, limiter)
	router := httptransport.NewRouter(handler, limit, platformmetrics.NewHTTP())
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.New(auditSvc,
			worker.WithInterval(cfg.Audit.FlushInterval),
			worker.WithLogger(log),
		).Run(gctx)
	})

	g.Go(func() error {
		log.Info("starting veritrail", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
