package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/synaptica-ai/cardio-extract/pkg/common/config"
	"github.com/synaptica-ai/cardio-extract/pkg/common/database"
	"github.com/synaptica-ai/cardio-extract/pkg/common/kafka"
	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/narrative"
)

func main() {
	logger.Init()
	cfg := config.Load()

	engine, _, err := narrative.NewEngineFromConfig(cfg)
	if err != nil {
		logger.Log.WithError(err).Fatal("failed to build extraction engine")
	}

	opts := []narrative.Option{}
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
	}

	if cfg.ExtractionCacheEnabled {
		client, err := database.GetRedis(cfg)
		if err != nil {
			logger.Log.WithError(err).Warn("redis unavailable, cache reads will miss")
		}
		defer database.CloseRedis()
		opts = append(opts, narrative.WithCache(narrative.NewRedisCache(client, cfg.ExtractionCacheTTL)))
	}

	producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.ExtractionResultTopic)
	defer producer.Close()
	opts = append(opts, narrative.WithPublisher(producer))

	svc := narrative.NewService(engine, narrative.NewValidator(cfg.ExtractionAllowedSource), opts...)

	consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.ExtractionRequestTopic, cfg.KafkaGroupID)
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Log.WithFields(map[string]interface{}{
		"topic":    cfg.ExtractionRequestTopic,
		"group_id": cfg.KafkaGroupID,
		"results":  cfg.ExtractionResultTopic,
	}).Info("Extraction Worker started")

	if err := consumer.Consume(ctx, svc.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
		logger.Log.WithError(err).Error("consumer stopped")
	}

	logger.Log.Info("Extraction Worker stopped")
}
