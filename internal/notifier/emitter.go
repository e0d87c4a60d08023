package notifier

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/internal/wishes"
	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/logger"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EmitParams carries one fulfilled match run.
type EmitParams struct {
	Product *models.Product
	WishIDs []uuid.UUID
	UserIDs []uuid.UUID
}

// Emitter flips matched wishes to available and writes one notification per
// user, all in a single transaction. Delivery is best effort: failures are
// logged and swallowed so the listing trigger never observes them.
type Emitter struct {
	tx        TxRunner
	wishRepo  wishes.Repository
	notifRepo Repository
	logg      *logger.Logger
}

// NewEmitter builds the notification emitter.
func NewEmitter(tx TxRunner, wishRepo wishes.Repository, notifRepo Repository, logg *logger.Logger) (*Emitter, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if wishRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wish repo is required")
	}
	if notifRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "notification repo is required")
	}
	return &Emitter{
		tx:        tx,
		wishRepo:  wishRepo,
		notifRepo: notifRepo,
		logg:      logg,
	}, nil
}

// Emit applies the match result. Returns nothing: errors are logged with the
// product id and both id sets.
func (e *Emitter) Emit(ctx context.Context, params EmitParams) {
	if params.Product == nil || len(params.WishIDs) == 0 || len(params.UserIDs) == 0 {
		return
	}

	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := e.wishRepo.WithTx(tx).MarkAvailable(ctx, params.WishIDs); err != nil {
			return fmt.Errorf("mark wishes available: %w", err)
		}

		notifRepo := e.notifRepo.WithTx(tx)
		var createErr error
		for _, userID := range params.UserIDs {
			notification := buildWishNotification(params.Product, userID)
			if err := notifRepo.Create(ctx, notification); err != nil {
				createErr = multierr.Append(createErr, fmt.Errorf("notify user %s: %w", userID, err))
			}
		}
		return createErr
	})
	if err != nil {
		if e.logg != nil {
			logCtx := e.logg.WithFields(ctx, map[string]any{
				"product_id": params.Product.ID.String(),
				"wish_ids":   uuidStrings(params.WishIDs),
				"user_ids":   uuidStrings(params.UserIDs),
			})
			e.logg.Error(logCtx, "wish notification emit failed", err)
		}
		return
	}

	if e.logg != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"product_id": params.Product.ID.String(),
			"wishes":     len(params.WishIDs),
			"users":      len(params.UserIDs),
		})
		e.logg.Info(logCtx, "wish notifications emitted")
	}
}

func buildWishNotification(product *models.Product, userID uuid.UUID) *models.Notification {
	sellerName := "a seller"
	if product.Seller != nil && product.Seller.Name != "" {
		sellerName = product.Seller.Name
	}
	modelName := product.Title
	if product.Model != nil && product.Model.Name != "" {
		modelName = product.Model.Name
	}
	link := fmt.Sprintf("/listings/%s", product.Slug)
	return &models.Notification{
		UserID:  userID,
		Type:    enums.NotificationTypeWishAvailable,
		Title:   "A wish came true",
		Message: fmt.Sprintf("%s just listed a %s in your price range.", sellerName, modelName),
		Link:    &link,
	}
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}
