package main

import (
	"os"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/noah-isme/backend-pos/internal/config"
	"github.com/noah-isme/backend-pos/internal/notify"
	"github.com/noah-isme/backend-pos/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logLevel := envOrDefault("LOG_LEVEL", "info")
	logger := obs.NewLogger(cfg.LogFormat, logLevel).With().Str("component", "worker").Logger()

	asynqOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	concurrency := cfg.WorkerConcurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	srv := asynq.NewServer(asynqOpt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			notify.QueueWebhooks: 1,
		},
	})

	deliverer := notify.Deliverer{
		Endpoint: cfg.WebhookEndpoint,
		Secret:   cfg.WebhookSecret,
		Client:   notify.HTTPClient(5 * time.Second),
		Logger:   logger,
	}

	mux := asynq.NewServeMux()
	mux.HandleFunc(notify.TaskTypeWebhookDelivery, deliverer.HandleWebhookDelivery)

	logger.Info().Int("concurrency", concurrency).Msg("worker starting")
	if err := srv.Run(mux); err != nil {
		logger.Fatal().Err(err).Msg("worker stopped with error")
	}
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
