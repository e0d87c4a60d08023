package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mercadero/auction-engine/pkg/config"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int64)}
}

func (f *fakeLimiter) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestBidRateLimitAllowsUnderLimit(t *testing.T) {
	cfg := config.BiddingConfig{RateLimitWindow: time.Second, RateLimitCount: 2}
	limiter := newFakeLimiter()
	handler := BidRateLimit(cfg, limiter, nil)(okHandler())

	userID := uuid.NewString()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: expected 204, got %d", i+1, rec.Code)
		}
	}
}

func TestBidRateLimitBlocksOverLimit(t *testing.T) {
	cfg := config.BiddingConfig{RateLimitWindow: time.Second, RateLimitCount: 1}
	limiter := newFakeLimiter()
	handler := BidRateLimit(cfg, limiter, nil)(okHandler())

	userID := uuid.NewString()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithUserID(req.Context(), userID))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if i == 0 && rec.Code != http.StatusNoContent {
			t.Fatalf("first request blocked: %d", rec.Code)
		}
		if i == 1 && rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 on second request, got %d", rec.Code)
		}
	}
}

func TestBidRateLimitSeparateUsers(t *testing.T) {
	cfg := config.BiddingConfig{RateLimitWindow: time.Second, RateLimitCount: 1}
	limiter := newFakeLimiter()
	handler := BidRateLimit(cfg, limiter, nil)(okHandler())

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithUserID(req.Context(), uuid.NewString()))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("expected distinct users to pass, got %d", rec.Code)
		}
	}
}

func TestBidRateLimitRequiresUser(t *testing.T) {
	cfg := config.BiddingConfig{RateLimitWindow: time.Second, RateLimitCount: 1}
	handler := BidRateLimit(cfg, newFakeLimiter(), nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user context, got %d", rec.Code)
	}
}

func TestBidRateLimitDisabledWithoutStore(t *testing.T) {
	cfg := config.BiddingConfig{RateLimitWindow: time.Second, RateLimitCount: 1}
	handler := BidRateLimit(cfg, nil, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected passthrough without store, got %d", rec.Code)
	}
}
