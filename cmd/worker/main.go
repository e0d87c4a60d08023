package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercadero/auction-engine/internal/catalog"
	"github.com/mercadero/auction-engine/internal/notifier"
	"github.com/mercadero/auction-engine/internal/wishes"
	"github.com/mercadero/auction-engine/pkg/config"
	"github.com/mercadero/auction-engine/pkg/db"
	"github.com/mercadero/auction-engine/pkg/logger"
	"github.com/mercadero/auction-engine/pkg/metrics"
	"github.com/mercadero/auction-engine/pkg/outbox/idempotency"
	"github.com/mercadero/auction-engine/pkg/pubsub"
	"github.com/mercadero/auction-engine/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "listings-worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: "listings-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer redisClient.Close()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer pubsubClient.Close()

	wishRepo := wishes.NewRepository(dbClient.DB())
	matcher, err := wishes.NewMatcher(wishRepo, logg)
	requireResource(ctx, logg, "wish matcher", err)

	emitter, err := notifier.NewEmitter(dbClient, wishRepo, notifier.NewRepository(dbClient.DB()), logg)
	requireResource(ctx, logg, "notification emitter", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.IdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	consumerMetrics := metrics.NewConsumerMetrics(prometheus.DefaultRegisterer)

	consumer, err := notifier.NewConsumer(
		catalog.NewRepository(dbClient.DB()),
		matcher,
		emitter,
		pubsubClient.ListingsSubscription(),
		manager,
		consumerMetrics,
		logg,
	)
	requireResource(ctx, logg, "listings consumer", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{"env": cfg.App.Env})
	logg.Info(runCtx, "listings worker ready")

	if err := consumer.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "listings worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "listings worker shut down")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
