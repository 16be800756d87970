/**
 * @description
 * Entry point for the traslados service.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lovetofly/traslados-service/internal/api"
	"github.com/lovetofly/traslados-service/internal/app"
	"github.com/lovetofly/traslados-service/internal/config"
	"github.com/lovetofly/traslados-service/internal/store"
	trasladosrabbit "github.com/lovetofly/traslados-service/pkg/rabbitmq"
	"github.com/lovetofly/traslados-service/pkg/stripeclient"
)

const eventsExchange = "lovetofly.events"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pgConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = 100
	pgConfig.MinConns = 20
	pgConfig.MaxConnLifetime = 30 * time.Minute
	pgConfig.MaxConnIdleTime = 5 * time.Minute
	pgConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewRepository(dbpool)
	gateway := stripeclient.NewClient(cfg.StripeAPIURL, cfg.StripeSecretKey)

	var publisher app.EventPublisher = &trasladosrabbit.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		if producer, err := trasladosrabbit.NewEventProducer(cfg.RabbitMQURL, eventsExchange); err == nil {
			publisher = producer
			defer producer.Close()
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}

	service := app.NewService(repository, gateway, publisher, app.FeeConfig{
		BaseAmountCents: cfg.BaseFeeCents,
		Currency:        cfg.FeeCurrency,
		SessionTTL:      time.Duration(cfg.SessionTTLMinutes) * time.Minute,
		ReconcileMinAge: time.Duration(cfg.ReconcileMinAgeSeconds) * time.Second,
		ReconcileLimit:  cfg.ReconcileBatchLimit,
	})

	if cfg.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("unable to parse Redis URL", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(redisOpts)
		defer redisClient.Close()
		service.SetMessageRateLimiter(app.NewRedisMessageRateLimiter(
			redisClient,
			"traslados:rate_limit",
			cfg.MessageRateLimit,
			time.Duration(cfg.MessageRateWindowSeconds)*time.Second,
		))
		logger.Info("message rate limiter enabled")
	}

	scheduler := app.NewScheduler(service, logger, cfg.ReconcileSchedule)
	scheduler.Start()
	defer func() { <-scheduler.Stop().Done() }()

	handler := api.NewHandler(service)
	webhook := api.NewWebhookHandler(service, cfg.StripeWebhookSecret)
	router := api.NewRouter(handler, webhook, cfg.JWTSecret, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
