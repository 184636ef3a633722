package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nsqio/go-nsq"

	"corpusmap/backend/internal/app"
	"corpusmap/backend/internal/config"
	"corpusmap/backend/internal/logger"
)

func main() {
	// Structured logger with correlation-id injection
	base := slog.NewJSONHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(logger.NewContextHandler(base)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	deps, err := app.Bootstrap(cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	a, err := app.New(cfg, deps.DB, deps.NSQProducer, slog.Default())
	if err != nil {
		slog.Error("failed to build app", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Queue reconciler: sweeps entries stranded by crashed workers
	go a.EnrichmentService.RunReconciler(ctx, time.Duration(cfg.ReconcileIntervalSeconds)*time.Second)

	// Projection model version watcher
	go a.ModelCache.Watch(ctx, time.Duration(cfg.ModelCheckIntervalSeconds)*time.Second)

	// Signal consumer: folds NSQ enrichment signals into the durable queue
	nsqCfg := nsq.NewConfig()
	consumer, err := nsq.NewConsumer(config.TopicEnrichSignal, "backend", nsqCfg)
	if err != nil {
		slog.Error("failed to create NSQ signal consumer", "error", err)
	} else {
		consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
			return a.SignalConsumer.HandleMessage(m)
		}))
		if err := consumer.ConnectToNSQLookupd(cfg.NSQLookupd); err != nil {
			slog.Error("failed to connect to NSQLookupd", "error", err)
		} else {
			slog.Info("NSQ signal consumer connected")
		}
		defer consumer.Stop()
	}

	// Worker pools
	if cfg.EnableEmbedWorker {
		go a.EmbedPool.Run(ctx)
	}
	if cfg.EnableProjectionWorker {
		go a.ProjectionPool.Run(ctx)
	}

	if cfg.EnableAPI {
		if err := a.Run(ctx); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
		return
	}

	<-ctx.Done()
	slog.Info("shutting down")
}
