package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tundeajala/bookhaven-payments/api/controllers"
	webhookcontrollers "github.com/tundeajala/bookhaven-payments/api/controllers/webhooks"
	"github.com/tundeajala/bookhaven-payments/api/routes"
	"github.com/tundeajala/bookhaven-payments/internal/audit"
	"github.com/tundeajala/bookhaven-payments/internal/bookings"
	"github.com/tundeajala/bookhaven-payments/internal/fulfillment"
	"github.com/tundeajala/bookhaven-payments/internal/notify"
	"github.com/tundeajala/bookhaven-payments/internal/payments"
	"github.com/tundeajala/bookhaven-payments/internal/payouts"
	"github.com/tundeajala/bookhaven-payments/internal/webhooks"
	"github.com/tundeajala/bookhaven-payments/pkg/bigquery"
	"github.com/tundeajala/bookhaven-payments/pkg/config"
	"github.com/tundeajala/bookhaven-payments/pkg/db"
	"github.com/tundeajala/bookhaven-payments/pkg/logger"
	"github.com/tundeajala/bookhaven-payments/pkg/metrics"
	"github.com/tundeajala/bookhaven-payments/pkg/migrate"
	"github.com/tundeajala/bookhaven-payments/pkg/pubsub"
	"github.com/tundeajala/bookhaven-payments/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap pubsub", err)
		os.Exit(1)
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery", err)
		}
	}()

	payoutClient, err := payouts.NewClient(cfg.Payout)
	if err != nil {
		logg.Error(context.Background(), "failed to create payout client", err)
		os.Exit(1)
	}

	fulfillmentService, err := fulfillment.NewService(fulfillment.ServiceParams{
		Records:           payments.NewRepository(dbClient.DB()),
		Bookings:          bookings.NewRepository(dbClient.DB()),
		TransactionRunner: dbClient,
		Logger:            logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create fulfillment service", err)
		os.Exit(1)
	}

	notifier, err := notify.NewPubSubNotifier(pubsubClient.NotificationPublisher())
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier", err)
		os.Exit(1)
	}

	auditSink, err := audit.NewBigQuerySink(bqClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit sink", err)
		os.Exit(1)
	}

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)
	payoutRepo := payouts.NewRepository(dbClient.DB())

	dispatcher, err := fulfillment.NewDispatcher(fulfillment.DispatcherParams{
		Payouts:     payoutClient,
		PayoutStore: payoutRepo,
		Notifier:    notifier,
		Audit:       auditSink,
		Metrics:     webhookMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create side effect dispatcher", err)
		os.Exit(1)
	}

	cryptoGuard, err := webhooks.NewDedupeGuard(redisClient, cfg.Webhook.DedupeTTL, "crypto")
	if err != nil {
		logg.Error(context.Background(), "failed to create crypto dedupe guard", err)
		os.Exit(1)
	}
	cardGuard, err := webhooks.NewDedupeGuard(redisClient, cfg.Webhook.DedupeTTL, "card")
	if err != nil {
		logg.Error(context.Background(), "failed to create card dedupe guard", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config: cfg,
		Logger: logg,
		HealthDeps: map[string]controllers.Pinger{
			"postgres": dbClient,
			"redis":    redisClient,
			"pubsub":   pubsubClient,
			"bigquery": bqClient,
		},
		Payouts: payoutRepo,
		NOWPayments: webhookcontrollers.Deps{
			Service:    fulfillmentService,
			Dispatcher: dispatcher,
			Guard:      cryptoGuard,
			Secret:     cfg.NOWPayments.IPNSecret,
			Metrics:    webhookMetrics,
			Logger:     logg,
		},
		Paystack: webhookcontrollers.Deps{
			Service:    fulfillmentService,
			Dispatcher: dispatcher,
			Guard:      cardGuard,
			Secret:     cfg.Paystack.SecretKey,
			Metrics:    webhookMetrics,
			Logger:     logg,
		},
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
