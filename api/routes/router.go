package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mercadero/auction-engine/api/controllers"
	"github.com/mercadero/auction-engine/api/middleware"
	"github.com/mercadero/auction-engine/internal/broadcast"
	"github.com/mercadero/auction-engine/internal/ledger"
	"github.com/mercadero/auction-engine/internal/listings"
	"github.com/mercadero/auction-engine/internal/notifier"
	"github.com/mercadero/auction-engine/internal/wishes"
	"github.com/mercadero/auction-engine/pkg/config"
	"github.com/mercadero/auction-engine/pkg/logger"
)

// RouterParams carries everything the HTTP surface depends on.
type RouterParams struct {
	Config      *config.Config
	Logger      *logger.Logger
	BidLimiter  middleware.RateLimiterStore
	Registry    *broadcast.Registry
	Deps        map[string]controllers.Pinger
	LedgerSvc   ledger.Service
	LedgerRepo  ledger.Repository
	ListingsSvc listings.Service
	WishesSvc   wishes.Service
	NotifierSvc notifier.Service
}

func NewRouter(params RouterParams) http.Handler {
	cfg := params.Config
	logg := params.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, params.Deps))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/rooms/{roomId}", func(r chi.Router) {
			r.With(middleware.BidRateLimit(cfg.Bidding, params.BidLimiter, logg)).
				Post("/bids", controllers.SubmitBid(params.LedgerSvc, logg))
			r.Get("/bids", controllers.BidHistory(params.LedgerSvc, logg))
			r.Get("/stream", controllers.RoomStream(params.LedgerRepo, params.Registry, cfg.Stream, logg))
		})

		r.Post("/listings", controllers.CreateListing(params.ListingsSvc, logg))

		r.Route("/wishes", func(r chi.Router) {
			r.Post("/", controllers.CreateWish(params.WishesSvc, logg))
			r.Get("/", controllers.ListWishes(params.WishesSvc, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(params.NotifierSvc, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(params.NotifierSvc, logg))
		})
	})

	return r
}
