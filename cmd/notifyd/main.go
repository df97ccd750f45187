package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/camfleet/fleetnotify/internal/config"
	"github.com/camfleet/fleetnotify/internal/dispatch"
	"github.com/camfleet/fleetnotify/internal/notification"
	"github.com/camfleet/fleetnotify/pkg/database"
	"github.com/camfleet/fleetnotify/pkg/jsonutil"
	"github.com/camfleet/fleetnotify/pkg/messaging"
	"github.com/camfleet/fleetnotify/pkg/observability"
)

func main() {
	log := observability.NewLogger("notifyd")

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

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName: "notifyd",
		Endpoint:    cfg.Tracing.Endpoint,
		Environment: cfg.Server.Env,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer shutdownTracer(context.Background())

	if cfg.Database.MigrationsURL != "" {
		if err := database.Migrate(cfg.Database.MigrationsURL, cfg.Database.DSN); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
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

	if _, err := rabbit.DeclareQueue(cfg.Rabbit.DrainQueue); err != nil {
		log.Error("failed to declare drain queue", "error", err)
		os.Exit(1)
	}

	var events notification.EventPublisher
	if cfg.Kafka.Enabled {
		producer := messaging.NewKafkaProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic)
		defer producer.Close()
		events = producer
	}

	store := notification.NewStore(db, cfg.Database.QueryTimeout)
	resolver := notification.NewResolver(db)
	signer := notification.NewLinkSigner(cfg.ReadLink.BaseURL, []byte(cfg.ReadLink.SigningKey), cfg.ReadLink.TTL)
	signaler := dispatch.NewSignaler(rabbit, cfg.Rabbit.DrainQueue)
	composer := notification.NewComposer(resolver, store, signaler, events, signer, log.Logger)
	tracker := notification.NewTracker(store, events, log.Logger)

	handler := NewNotificationHandler(composer, tracker, store, resolver, signer, log.Logger)

	r := mux.NewRouter()
	r.HandleFunc("/api/notifications", handler.Compose).Methods(http.MethodPost)
	r.HandleFunc("/api/notifications", handler.List).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/read", handler.MarkReadLink).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/read", handler.MarkRead).Methods(http.MethodPost)
	r.HandleFunc("/api/notifications/{id}", handler.Detail).Methods(http.MethodGet)
	r.HandleFunc("/api/bases", handler.Bases).Methods(http.MethodGet)
	r.HandleFunc("/api/recipients", handler.Recipients).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := db.Ping(); err != nil || !rabbit.IsHealthy() {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		jsonutil.WriteJSON(w, code, map[string]string{"status": status, "service": "notifyd"})
	}).Methods(http.MethodGet)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("notifyd listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
