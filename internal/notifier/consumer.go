package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/internal/catalog"
	"github.com/mercadero/auction-engine/internal/wishes"
	"github.com/mercadero/auction-engine/pkg/enums"
	"github.com/mercadero/auction-engine/pkg/logger"
	"github.com/mercadero/auction-engine/pkg/metrics"
	"github.com/mercadero/auction-engine/pkg/outbox"
	"github.com/mercadero/auction-engine/pkg/outbox/idempotency"
	"github.com/mercadero/auction-engine/pkg/outbox/payloads"
)

const listingConsumerName = "listings-worker"

// Consumer watches listing events and turns them into wish matches plus
// notifications.
type Consumer struct {
	catalogRepo  catalog.Repository
	matcher      *wishes.Matcher
	emitter      *Emitter
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	metrics      *metrics.ConsumerMetrics
	logg         *logger.Logger
}

// NewConsumer builds a listing event consumer.
func NewConsumer(
	catalogRepo catalog.Repository,
	matcher *wishes.Matcher,
	emitter *Emitter,
	subscription *pubsub.Subscriber,
	manager *idempotency.Manager,
	consumerMetrics *metrics.ConsumerMetrics,
	logg *logger.Logger,
) (*Consumer, error) {
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if matcher == nil {
		return nil, fmt.Errorf("wish matcher required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("notification emitter required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("listings subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		catalogRepo:  catalogRepo,
		matcher:      matcher,
		emitter:      emitter,
		subscription: subscription,
		idempotency:  manager,
		metrics:      consumerMetrics,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	started := time.Now()
	eventType := msg.Attributes["event_type"]
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	if eventType != string(enums.EventProductListed) {
		c.logg.Info(logCtx, "skipping non-listing event")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, listingConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.ProductListedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		// Poison payload: redelivery cannot fix it, keep the marker and ack.
		c.logg.Error(logCtx, "failed to parse payload", err)
		c.metrics.IncFailed(listingConsumerName)
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"product_id": payload.ProductID.String(),
	})

	if err := c.handleListing(ctx, payload, logCtx); err != nil {
		c.logg.Error(logCtx, "listing handling failed", err)
		c.metrics.IncFailed(listingConsumerName)
		_ = c.idempotency.Delete(ctx, listingConsumerName, eventID)
		return processResult{nack: true}
	}

	c.metrics.IncProcessed(listingConsumerName)
	c.metrics.ObserveHandleDuration(listingConsumerName, time.Since(started))
	return processResult{ack: true}
}

func (c *Consumer) handleListing(ctx context.Context, payload payloads.ProductListedEvent, logCtx context.Context) error {
	if payload.ProductID == uuid.Nil {
		return fmt.Errorf("product id missing")
	}

	result, err := c.matcher.FindMatches(ctx, wishes.MatchTarget{
		ProductID:  payload.ProductID,
		CategoryID: payload.CategoryID,
		ModelID:    payload.ModelID,
		BrandID:    payload.BrandID,
		PriceCents: payload.PriceCents,
	})
	if err != nil {
		return err
	}
	if len(result.WishIDs) == 0 {
		c.logg.Info(logCtx, "no wishes matched listing")
		return nil
	}

	product, err := c.catalogRepo.FindProductWithModel(ctx, payload.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Listing vanished between publish and consume; nothing to notify.
			c.logg.Info(logCtx, "listed product no longer exists")
			return nil
		}
		return err
	}

	c.emitter.Emit(ctx, EmitParams{
		Product: product,
		WishIDs: result.WishIDs,
		UserIDs: result.UserIDs,
	})
	return nil
}
