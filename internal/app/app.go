package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"corpusmap/backend/features/enrichment"
	exploreapi "corpusmap/backend/features/explore"
	"corpusmap/backend/features/record"
	"corpusmap/backend/features/stats"
	"corpusmap/backend/internal/adapter/gemini"
	"corpusmap/backend/internal/cluster"
	"corpusmap/backend/internal/config"
	"corpusmap/backend/internal/explore"
	"corpusmap/backend/internal/middleware"
	"corpusmap/backend/internal/projection"
	"corpusmap/backend/internal/settings"
	"corpusmap/backend/internal/worker"
)

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type App struct {
	Handler           http.Handler
	EnrichmentService *enrichment.Service
	SignalConsumer    *worker.SignalConsumer
	EmbedPool         *worker.Pool
	ProjectionPool    *worker.Pool
	ModelCache        *projection.Cache
	port              int
}

func New(cfg *config.Config, db *sql.DB, taskPub TaskPublisher, logger *slog.Logger) (*App, error) {
	// Feature: Settings
	settingsRepo := settings.NewPostgresRepo(db)
	settingsService := settings.NewService(settingsRepo)

	// Seed Gemini API key from config
	if cfg.GeminiAPIKey != "" {
		ctx := context.Background()
		set, err := settingsService.Get(ctx)
		if err == nil {
			if set.GeminiAPIKey == "" {
				set.GeminiAPIKey = cfg.GeminiAPIKey
				if err := settingsService.Update(ctx, set); err != nil {
					slog.Warn("failed to seed gemini api key", "error", err)
				} else {
					slog.Info("seeded gemini api key from environment")
				}
			}
		} else {
			slog.Warn("failed to fetch settings for seeding", "error", err)
		}
	}

	settingsHandler := settings.NewHandler(settingsService)

	// Feature: Record
	recordRepo := record.NewPostgresRepo(db)
	recordService := record.NewService(recordRepo, taskPub)
	recordHandler := record.NewHandler(recordService)

	// Feature: Enrichment queue
	queueRepo := enrichment.NewPostgresRepo(db, enrichment.RetryPolicy{
		MaxAttempts:    cfg.EnrichMaxAttempts,
		BackoffSeconds: cfg.RetryBackoffSeconds,
	})
	enrichmentService := enrichment.NewService(queueRepo, time.Duration(cfg.StaleThresholdSeconds)*time.Second)
	enrichmentHandler := enrichment.NewHandler(enrichmentService)

	// Adapters
	embedder := gemini.NewDynamicEmbedder(settingsService, cfg.EmbedModel, cfg.EmbedDim)
	labeler := gemini.NewLabeler(settingsService, cfg.LabelModel)

	// Projection model cache: a missing artifact degrades the projection
	// pool, it does not block startup.
	modelCache := projection.NewCache(cfg.ProjectionModelPath)
	if err := modelCache.Load(); err != nil {
		slog.Warn("projection model unavailable at startup, pool will idle", "error", err)
	}

	// Workers
	signalConsumer := worker.NewSignalConsumer(enrichmentService)
	idle := time.Duration(cfg.WorkerIdleSeconds) * time.Second
	embedPool := worker.NewPool(queueRepo,
		worker.NewEmbedProcessor(embedder, recordRepo, enrichmentService),
		cfg.EmbedWorkers, cfg.ClaimBatchSize, idle)
	projectionPool := worker.NewPool(queueRepo,
		worker.NewProjectProcessor(modelCache, recordRepo),
		cfg.ProjectionWorkers, cfg.ClaimBatchSize, idle)

	// Feature: Explore (query + clusters)
	queryLogger, err := explore.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = explore.NewQueryLogger(os.Stdout)
	}

	engine := explore.NewEngine(db)
	exploreService := explore.NewService(embedder, engine, settingsService, queryLogger,
		time.Duration(cfg.QueryTimeoutSeconds)*time.Second, cfg.MaxCap)
	analyzer := cluster.NewAnalyzer(labeler)
	exploreHandler := exploreapi.NewHandler(exploreService, analyzer)

	// Feature: Stats
	statsHandler := stats.NewHandler(recordRepo, queueRepo, modelCache)

	// Middleware: CORS
	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	// Routes
	mux := http.NewServeMux()

	mux.Handle("POST /records", middleware.CorrelationID(enableCORS(recordHandler.Create)))
	mux.Handle("POST /records/bulk", middleware.CorrelationID(enableCORS(recordHandler.BulkCreate)))
	mux.Handle("GET /records/{id}", middleware.CorrelationID(enableCORS(recordHandler.Get)))

	mux.Handle("POST /query", middleware.CorrelationID(enableCORS(exploreHandler.Query)))
	mux.Handle("POST /clusters", middleware.CorrelationID(enableCORS(exploreHandler.Clusters)))

	mux.Handle("GET /enrichment/failed", middleware.CorrelationID(enableCORS(enrichmentHandler.ListFailed)))
	mux.Handle("POST /enrichment/{id}/requeue", middleware.CorrelationID(enableCORS(enrichmentHandler.Requeue)))

	mux.Handle("GET /settings", middleware.CorrelationID(enableCORS(settingsHandler.GetSettings)))
	mux.Handle("PUT /settings", middleware.CorrelationID(enableCORS(settingsHandler.UpdateSettings)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(statsHandler.GetStats)))

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	mux.HandleFunc("GET /health/projection", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !modelCache.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded","reason":"projection model unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","model_version":%q}`, modelCache.Version())
	})

	return &App{
		Handler:           mux,
		EnrichmentService: enrichmentService,
		SignalConsumer:    signalConsumer,
		EmbedPool:         embedPool,
		ProjectionPool:    projectionPool,
		ModelCache:        modelCache,
		port:              cfg.ServerPort,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.port),
		Handler: a.Handler,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		if err := srv.Shutdown(context.Background()); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", a.port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
