package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/camfleet/fleetnotify/internal/config"
	"github.com/camfleet/fleetnotify/internal/dispatch"
	"github.com/camfleet/fleetnotify/pkg/database"
	"github.com/camfleet/fleetnotify/pkg/messaging"
	"github.com/camfleet/fleetnotify/pkg/observability"
)

func main() {
	log := observability.NewLogger("dispatcher")

	v, err := config.Load()
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Parse(v)
	if err != nil {
		log.Error("failed to parse config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.ApplySecrets(ctx, cfg); err != nil {
		log.Error("failed to apply secrets", "error", err)
		os.Exit(1)
	}

	db, err := database.Connect(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns, cfg.Database.ConnMaxLifetime)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	rabbit, err := messaging.NewRabbitClient(messaging.RabbitConfig{URL: cfg.Rabbit.URL}, log.Logger)
	if err != nil {
		log.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer rabbit.Close()

	queue, err := rabbit.DeclareQueue(cfg.Rabbit.DrainQueue)
	if err != nil {
		log.Error("failed to declare drain queue", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Warn("redis unavailable, idempotency keys disabled", "error", err)
		redisClient = nil
	}

	var sender dispatch.Sender
	if cfg.Mail.Driver == "log" || cfg.Mail.ResendAPIKey == "" {
		log.Info("using log mail driver")
		sender = &dispatch.LogSender{Log: log.Logger}
	} else {
		sender = dispatch.NewResendSender(cfg.Mail.ResendAPIKey, cfg.Mail.FromAddress)
	}

	worker := dispatch.NewWorker(
		dispatch.NewOutbox(db),
		sender,
		redisClient,
		log.Logger,
		cfg.Worker.BatchSize,
		cfg.Worker.MaxAttempts,
		cfg.Worker.IdempotencyTTL,
	)

	// Drain once at startup to pick up anything left over from a crash,
	// then on every drain signal and on the poll interval.
	if err := worker.Drain(ctx); err != nil {
		log.Error("initial outbox drain failed", "error", err)
	}

	go worker.RunPoller(ctx, cfg.Worker.PollInterval)

	log.Info("dispatcher started, waiting for drain signals", "queue", queue.Name)
	if err := rabbit.Consume(ctx, queue.Name, func(_ []byte) error {
		return worker.Drain(ctx)
	}); err != nil {
		log.Error("consumer stopped", "error", err)
	}

	log.Info("dispatcher shut down")
}
