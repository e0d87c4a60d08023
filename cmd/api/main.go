package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mercadero/auction-engine/api/controllers"
	"github.com/mercadero/auction-engine/api/routes"
	"github.com/mercadero/auction-engine/internal/broadcast"
	"github.com/mercadero/auction-engine/internal/catalog"
	"github.com/mercadero/auction-engine/internal/ledger"
	"github.com/mercadero/auction-engine/internal/listings"
	"github.com/mercadero/auction-engine/internal/notifier"
	"github.com/mercadero/auction-engine/internal/wishes"
	"github.com/mercadero/auction-engine/pkg/config"
	"github.com/mercadero/auction-engine/pkg/db"
	"github.com/mercadero/auction-engine/pkg/logger"
	"github.com/mercadero/auction-engine/pkg/metrics"
	"github.com/mercadero/auction-engine/pkg/migrate"
	"github.com/mercadero/auction-engine/pkg/outbox"
	"github.com/mercadero/auction-engine/pkg/redis"
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

	biddingMetrics := metrics.NewBiddingMetrics(prometheus.DefaultRegisterer)
	streamMetrics := metrics.NewStreamMetrics(prometheus.DefaultRegisterer)
	registry := broadcast.NewRegistry(cfg.Stream.SendBuffer, streamMetrics)

	catalogRepo := catalog.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())
	outboxSvc := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	ledgerSvc, err := ledger.NewService(ledger.ServiceParams{
		Tx:          dbClient,
		LedgerRepo:  ledgerRepo,
		CatalogRepo: catalogRepo,
		Registry:    registry,
		Metrics:     biddingMetrics,
		Logger:      logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create bidding service", err)
		os.Exit(1)
	}

	listingsSvc, err := listings.NewService(listings.ServiceParams{
		Tx:           dbClient,
		ListingsRepo: listings.NewRepository(dbClient.DB()),
		LedgerRepo:   ledgerRepo,
		Outbox:       outboxSvc,
		Logger:       logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create listings service", err)
		os.Exit(1)
	}

	wishesSvc, err := wishes.NewService(wishes.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create wishes service", err)
		os.Exit(1)
	}

	notifierSvc, err := notifier.NewService(notifier.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:     cfg,
		Logger:     logg,
		BidLimiter: redisClient,
		Registry:   registry,
		Deps: map[string]controllers.Pinger{
			"database": dbClient,
			"redis":    redisClient,
		},
		LedgerSvc:   ledgerSvc,
		LedgerRepo:  ledgerRepo,
		ListingsSvc: listingsSvc,
		WishesSvc:   wishesSvc,
		NotifierSvc: notifierSvc,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(drainCtx); err != nil {
			logg.Error(ctx, "error during server shutdown", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}
