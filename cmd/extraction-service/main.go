package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/synaptica-ai/cardio-extract/pkg/common/config"
	"github.com/synaptica-ai/cardio-extract/pkg/common/database"
	"github.com/synaptica-ai/cardio-extract/pkg/common/kafka"
	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/gateway/middleware"
	"github.com/synaptica-ai/cardio-extract/pkg/narrative"
	"github.com/synaptica-ai/cardio-extract/pkg/observability/metrics"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	logger.Init()
	cfg := config.Load()

	engine, catalog, err := narrative.NewEngineFromConfig(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to build extraction engine")
	}

	opts := []narrative.Option{}
	checks := map[string]pinger{}

	if cfg.ExtractionPersist {
		db, err := database.GetPostgres(cfg)
		if err != nil {
			logger.Log.WithError(err).Fatal("failed to connect to postgres")
		}
		defer database.ClosePostgres()

		repo := narrative.NewRepository(db)
		if err := repo.AutoMigrate(); err != nil {
			logger.Log.WithError(err).Fatal("failed to migrate extraction tables")
		}
		opts = append(opts, narrative.WithStore(repo))
		checks["postgres"] = repo
	}

	if cfg.ExtractionCacheEnabled {
		client, err := database.GetRedis(cfg)
		if err != nil {
			logger.Log.WithError(err).Warn("redis unavailable, cache reads will miss")
		}
		defer database.CloseRedis()

		cache := narrative.NewRedisCache(client, cfg.ExtractionCacheTTL)
		opts = append(opts, narrative.WithCache(cache))
		checks["redis"] = cache
	}

	if cfg.ExtractionResultTopic != "" {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.ExtractionResultTopic)
		defer producer.Close()
		opts = append(opts, narrative.WithPublisher(producer))
	}

	svc := narrative.NewService(engine, narrative.NewValidator(cfg.ExtractionAllowedSource), opts...)
	handler := narrative.NewHTTPHandler(svc, catalog)

	router := mux.NewRouter()
	router.Use(middleware.Recovery, middleware.Logging, middleware.CORS)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, check := range checks {
			if err := check.Ping(ctx); err != nil {
				logger.Log.WithError(err).WithField("dependency", name).Warn("readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprintf(w, `{"status":"unavailable","dependency":%q}`, name)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	router.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w)
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst), middleware.BodyLimit(cfg.MaxRequestBody))
	handler.Register(api)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ExtractionPort),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Log.WithFields(map[string]interface{}{
			"host": cfg.ServerHost,
			"port": cfg.ExtractionPort,
		}).Info("Extraction Service started")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.WithError(err).Fatal("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down Extraction Service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Log.WithError(err).Error("server forced to shutdown")
	}

	logger.Log.Info("Extraction Service stopped")
}
