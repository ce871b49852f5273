// Package main 索引 worker 入口，消费重建索引任务流
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"catalog-search-api/internal/application/search"
	"catalog-search-api/internal/config"
	"catalog-search-api/internal/infrastructure/messaging"
	"catalog-search-api/internal/wire"
	"catalog-search-api/pkg/logger"
	"catalog-search-api/pkg/tracer"
)

// dlqAlertThreshold 死信队列长度告警阈值
const dlqAlertThreshold = 100

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	if err := run(cfg); err != nil {
		logger.Error(context.Background(), "index-worker stopped with error", err)
		os.Exit(1)
	}
	logger.Info(context.Background(), "index-worker exited")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "index-worker",
		Version:     cfg.App.Version,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		Insecure:    cfg.Observability.Tracing.Insecure,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracer: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	w, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize worker: %w", err)
	}
	defer cleanup()

	if w.Elasticsearch != nil {
		if err := w.Elasticsearch.EnsureIndices(ctx, wire.AllIndexNames(w.Names)); err != nil {
			logger.Warn(ctx, "failed to ensure indices, jobs will retry until the index is reachable", "error", err.Error())
		}
	} else {
		logger.Warn(ctx, "elasticsearch disabled, reindex jobs will be retried and dead-lettered")
	}

	w.Consumer.RegisterHandler(messaging.MessageTypeReindex, messaging.NewReindexHandler(w.Indexer,
		func(ctx context.Context, job search.ReindexJob) {
			if err := w.Cache.InvalidateSearchMetadata(ctx); err != nil {
				logger.Warn(ctx, "failed to invalidate search metadata", "type", job.Type, "error", err.Error())
			}
		},
	))

	logger.Info(ctx, "index-worker started", "stream", messaging.StreamCatalogReindex)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.Consumer.Run(gctx) })
	g.Go(func() error { return w.Health.Run(gctx) })
	g.Go(func() error {
		w.Consumer.MonitorDLQ(gctx, time.Minute, dlqAlertThreshold)
		return nil
	})

	return g.Wait()
}
