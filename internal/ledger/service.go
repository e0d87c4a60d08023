package ledger

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/internal/broadcast"
	"github.com/mercadero/auction-engine/internal/catalog"
	"github.com/mercadero/auction-engine/pkg/db/models"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/logger"
	"github.com/mercadero/auction-engine/pkg/metrics"
)

// TxRunner runs a function inside a database transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the bid ledger service.
type ServiceParams struct {
	Tx          TxRunner
	LedgerRepo  Repository
	CatalogRepo catalog.Repository
	Registry    *broadcast.Registry
	Metrics     *metrics.BiddingMetrics
	Logger      *logger.Logger
}

// Service accepts bids and exposes room bid history.
type Service interface {
	SubmitBid(ctx context.Context, params SubmitBidParams) (*BidDTO, error)
	GetBidHistory(ctx context.Context, roomID uuid.UUID, limit int) (*BidHistoryDTO, error)
}

// roomLockStripes bounds the lock table. Rooms hashing to the same stripe
// share a lock, which only costs contention, never correctness.
const roomLockStripes = 256

type service struct {
	tx          TxRunner
	ledgerRepo  Repository
	catalogRepo catalog.Repository
	registry    *broadcast.Registry
	metrics     *metrics.BiddingMetrics
	logg        *logger.Logger

	// roomLocks serializes commit+publish per room so observers see
	// events in commit order.
	roomLocks [roomLockStripes]sync.Mutex
}

// NewService builds the bid ledger service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tx runner is required")
	}
	if params.LedgerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ledger repo is required")
	}
	if params.CatalogRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog repo is required")
	}
	if params.Registry == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcast registry is required")
	}
	return &service{
		tx:          params.Tx,
		ledgerRepo:  params.LedgerRepo,
		catalogRepo: params.CatalogRepo,
		registry:    params.Registry,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// SubmitBid validates and persists a bid inside a row-locked transaction,
// then hands the accepted bid to the room broadcaster.
func (s *service) SubmitBid(ctx context.Context, params SubmitBidParams) (*BidDTO, error) {
	if params.RoomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id is required")
	}
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if params.PriceCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bid price must be positive")
	}

	started := time.Now()
	lock := s.roomLock(params.RoomID)
	lock.Lock()
	defer lock.Unlock()

	var accepted models.Bid
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ledgerRepo.WithTx(tx)
		catalogRepo := s.catalogRepo.WithTx(tx)

		room, err := repo.FindRoomForUpdate(ctx, params.RoomID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "auction room not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bid not accepted, retry")
		}

		product, err := catalogRepo.FindProductByID(ctx, room.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bid not accepted, retry")
		}

		if product.Sold() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction item already sold")
		}
		if product.SellerID == params.UserID {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot bid on your own listing")
		}
		if room.Closed(time.Now()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "auction closed")
		}

		// Every bid must strictly exceed the floor: the current highest
		// bid, or the listed price when nobody has bid yet.
		floor := product.PriceCents
		if room.HighestBidID != nil {
			highest, err := repo.HighestBid(ctx, room.ID)
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bid not accepted, retry")
			}
			if highest != nil {
				floor = highest.PriceCents
			}
		}
		if params.PriceCents <= floor {
			return pkgerrors.New(pkgerrors.CodeConflict, "bid too low")
		}

		bid := models.Bid{
			RoomID:     room.ID,
			UserID:     params.UserID,
			PriceCents: params.PriceCents,
			IsHighest:  true,
		}
		if err := repo.CreateBid(ctx, &bid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bid not accepted, retry")
		}
		if err := repo.PromoteHighestBid(ctx, room.ID, bid.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bid not accepted, retry")
		}

		accepted = bid
		return nil
	})
	if err != nil {
		s.recordRejection(err)
		return nil, err
	}

	// Publish after commit; the per-room lock keeps publish order aligned
	// with commit order.
	s.registry.Publish(accepted.RoomID, broadcast.BidEvent{
		BidID:      accepted.ID,
		RoomID:     accepted.RoomID,
		UserID:     accepted.UserID,
		PriceCents: accepted.PriceCents,
		CreatedAt:  accepted.CreatedAt,
	})

	s.metrics.IncAccepted(accepted.RoomID.String())
	s.metrics.ObserveSubmitDuration(accepted.RoomID.String(), time.Since(started))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"room_id":     accepted.RoomID.String(),
			"bid_id":      accepted.ID.String(),
			"price_cents": accepted.PriceCents,
		})
		s.logg.Info(logCtx, "bid accepted")
	}

	dto := toBidDTO(accepted)
	return &dto, nil
}

// GetBidHistory lists a room's bids newest first.
func (s *service) GetBidHistory(ctx context.Context, roomID uuid.UUID, limit int) (*BidHistoryDTO, error) {
	if roomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "room id is required")
	}
	if _, err := s.ledgerRepo.FindRoomByID(ctx, roomID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "auction room not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load room")
	}

	bids, err := s.ledgerRepo.ListBidsByRoom(ctx, roomID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bids")
	}

	history := &BidHistoryDTO{RoomID: roomID, Bids: make([]BidDTO, 0, len(bids))}
	for _, bid := range bids {
		history.Bids = append(history.Bids, toBidDTO(bid))
	}
	return history, nil
}

func (s *service) roomLock(roomID uuid.UUID) *sync.Mutex {
	h := fnv.New32a()
	h.Write(roomID[:])
	return &s.roomLocks[h.Sum32()%roomLockStripes]
}

func (s *service) recordRejection(err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		s.metrics.IncRejected("internal")
		return
	}
	switch typed.Code() {
	case pkgerrors.CodeConflict:
		s.metrics.IncRejected("bid_too_low")
	case pkgerrors.CodeStateConflict:
		s.metrics.IncRejected("state_conflict")
	case pkgerrors.CodeNotFound:
		s.metrics.IncRejected("room_not_found")
	case pkgerrors.CodeValidation:
		s.metrics.IncRejected("validation")
	default:
		s.metrics.IncRejected("dependency")
	}
}
