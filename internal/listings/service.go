package listings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/internal/ledger"
	dbpkg "github.com/mercadero/auction-engine/pkg/db"
	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/logger"
	"github.com/mercadero/auction-engine/pkg/outbox"
	"github.com/mercadero/auction-engine/pkg/outbox/payloads"
)

// CreateListingParams carries a listing creation request.
type CreateListingParams struct {
	SellerID   uuid.UUID
	ModelID    uuid.UUID
	Title      string
	PriceCents int64
	Tags       []string
	Duration   time.Duration
}

// ListingDTO is the API shape of a created listing.
type ListingDTO struct {
	ProductID  uuid.UUID `json:"productId"`
	RoomID     uuid.UUID `json:"roomId"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"priceCents"`
	ClosesAt   time.Time `json:"closesAt"`
}

// DefaultAuctionDuration is used when the seller does not pick one.
const DefaultAuctionDuration = 72 * time.Hour

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams groups dependencies for the listings service.
type ServiceParams struct {
	Tx           ledger.TxRunner
	ListingsRepo Repository
	LedgerRepo   ledger.Repository
	Outbox       outboxEmitter
	Logger       *logger.Logger
}

// Service creates listings and their bidding rooms.
type Service interface {
	CreateListing(ctx context.Context, params CreateListingParams) (*ListingDTO, error)
}

type service struct {
	tx           ledger.TxRunner
	listingsRepo Repository
	ledgerRepo   ledger.Repository
	outbox       outboxEmitter
	logg         *logger.Logger
}

// NewService builds a listings service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.ListingsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "listings repo is required")
	}
	if params.LedgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger repo is required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "outbox service is required")
	}
	return &service{
		tx:           params.Tx,
		listingsRepo: params.ListingsRepo,
		ledgerRepo:   params.LedgerRepo,
		outbox:       params.Outbox,
		logg:         params.Logger,
	}, nil
}

// CreateListing persists the product, opens its bidding room and queues the
// listing event, all in one transaction.
func (s *service) CreateListing(ctx context.Context, params CreateListingParams) (*ListingDTO, error) {
	if params.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "seller id is required")
	}
	if params.ModelID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "model id is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "title is required")
	}
	if params.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	duration := params.Duration
	if duration <= 0 {
		duration = DefaultAuctionDuration
	}

	var (
		product models.Product
		room    models.Room
		model   *models.ProductModel
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.listingsRepo.WithTx(tx)

		loaded, err := repo.FindModelWithRelations(ctx, params.ModelID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product model not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product model")
		}
		model = loaded

		product = models.Product{
			SellerID:   params.SellerID,
			ModelID:    params.ModelID,
			Slug:       buildSlug(params.Title),
			Title:      strings.TrimSpace(params.Title),
			PriceCents: params.PriceCents,
			Tags:       pq.StringArray(params.Tags),
		}
		if err := repo.CreateProduct(ctx, &product); err != nil {
			if dbpkg.IsUniqueViolation(err, "products_slug_key") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "listing slug already taken")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}

		room = models.Room{
			ProductID: product.ID,
			ClosesAt:  time.Now().Add(duration),
		}
		if err := s.ledgerRepo.WithTx(tx).CreateRoom(ctx, &room); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create room")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventProductListed,
			AggregateType: enums.AggregateProduct,
			AggregateID:   product.ID,
			Actor:         &outbox.ActorRef{UserID: params.SellerID},
			Version:       1,
			Data: payloads.ProductListedEvent{
				ProductID:  product.ID,
				SellerID:   product.SellerID,
				ModelID:    product.ModelID,
				BrandID:    model.BrandID,
				CategoryID: model.CategoryID,
				Slug:       product.Slug,
				Title:      product.Title,
				PriceCents: product.PriceCents,
				ListedAt:   time.Now(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue listing event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id": product.ID.String(),
			"room_id":    room.ID.String(),
		})
		s.logg.Info(logCtx, "listing created")
	}

	return &ListingDTO{
		ProductID:  product.ID,
		RoomID:     room.ID,
		Slug:       product.Slug,
		Title:      product.Title,
		PriceCents: product.PriceCents,
		ClosesAt:   room.ClosesAt,
	}, nil
}

var slugSanitizer = strings.NewReplacer(" ", "-", "_", "-", "/", "-")

func buildSlug(title string) string {
	base := strings.ToLower(strings.TrimSpace(title))
	base = slugSanitizer.Replace(base)
	var b strings.Builder
	for _, r := range base {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "listing"
	}
	return fmt.Sprintf("%s-%s", slug, uuid.NewString()[:8])
}
