package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mercadero/auction-engine/api/responses"
	"github.com/mercadero/auction-engine/pkg/config"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/logger"
)

// RateLimiterStore counts requests inside a fixed window.
type RateLimiterStore interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// BidRateLimit throttles bid submissions per authenticated user.
func BidRateLimit(cfg config.BiddingConfig, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || cfg.RateLimitCount <= 0 || cfg.RateLimitWindow <= 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			userID := UserIDFromContext(ctx)
			if userID == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			scope := fmt.Sprintf("bid:%s", userID)
			allowed, count, err := store.FixedWindowAllow(ctx, scope, int64(cfg.RateLimitCount), cfg.RateLimitWindow)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
				return
			}
			if !allowed {
				if logg != nil {
					logCtx := logg.WithFields(ctx, map[string]any{
						"attempts":       count,
						"limit":          cfg.RateLimitCount,
						"window_seconds": int(cfg.RateLimitWindow.Seconds()),
					})
					logg.Warn(logCtx, "bid.rate_limit.blocked")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
