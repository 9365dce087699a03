package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avilaworks/tenantry-backend/internal/billing"
	"github.com/avilaworks/tenantry-backend/internal/cron"
	"github.com/avilaworks/tenantry-backend/internal/invoices"
	"github.com/avilaworks/tenantry-backend/internal/leases"
	"github.com/avilaworks/tenantry-backend/internal/notifier"
	"github.com/avilaworks/tenantry-backend/pkg/config"
	"github.com/avilaworks/tenantry-backend/pkg/db"
	"github.com/avilaworks/tenantry-backend/pkg/logger"
	"github.com/avilaworks/tenantry-backend/pkg/mailer"
	"github.com/avilaworks/tenantry-backend/pkg/metrics"
	"github.com/avilaworks/tenantry-backend/pkg/migrate"
	"github.com/avilaworks/tenantry-backend/pkg/pubsub"
	"github.com/avilaworks/tenantry-backend/pkg/redis"
)

const lockKeyFormat = "tn:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	sender, err := mailer.NewPostmarkSender(cfg.Notifier)
	if err != nil {
		logg.Error(context.Background(), "failed to create mail sender", err)
		os.Exit(1)
	}

	// The audit trail is optional; the worker runs without Pub/Sub when no
	// project is configured.
	var audit notifier.AuditPublisher
	if cfg.GCP.ProjectID != "" {
		pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to bootstrap pubsub", err)
			os.Exit(1)
		}
		defer pubsubClient.Close()
		audit = pubsubClient
	}

	notifierService, err := notifier.NewService(notifier.ServiceParams{
		Repo:        notifier.NewRepository(dbClient.DB()),
		Mailer:      sender,
		Audit:       audit,
		Logger:      logg,
		SendTimeout: cfg.Notifier.SendTimeout,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifier service", err)
		os.Exit(1)
	}

	subscriptionJob, err := cron.NewSubscriptionLifecycleJob(cron.SubscriptionLifecycleJobParams{
		Logger:   logg,
		Repo:     billing.NewRepository(dbClient.DB()),
		Notifier: notifierService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create subscription lifecycle job", err)
		os.Exit(1)
	}

	leaseJob, err := cron.NewLeaseLifecycleJob(cron.LeaseLifecycleJobParams{
		Logger:   logg,
		Repo:     leases.NewRepository(dbClient.DB()),
		Notifier: notifierService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create lease lifecycle job", err)
		os.Exit(1)
	}

	invoiceJob, err := cron.NewInvoiceLifecycleJob(cron.InvoiceLifecycleJobParams{
		Logger:   logg,
		Repo:     invoices.NewRepository(dbClient.DB()),
		Notifier: notifierService,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create invoice lifecycle job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry(subscriptionJob, leaseJob, invoiceJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
