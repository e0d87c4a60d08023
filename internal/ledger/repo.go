package ledger

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mercadero/auction-engine/pkg/db/models"
)

// Repository manages persistence for rooms and their bids.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRoomForUpdate(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	FindRoomByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	FindRoomByProductID(ctx context.Context, productID uuid.UUID) (*models.Room, error)
	HighestBid(ctx context.Context, roomID uuid.UUID) (*models.Bid, error)
	CreateBid(ctx context.Context, bid *models.Bid) error
	PromoteHighestBid(ctx context.Context, roomID, bidID uuid.UUID) error
	CreateRoom(ctx context.Context, room *models.Room) error
	ListBidsByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Bid, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindRoomForUpdate locks the room row so racing bidders serialize on it.
func (r *repository) FindRoomForUpdate(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&room, "id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) FindRoomByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) FindRoomByProductID(ctx context.Context, productID uuid.UUID) (*models.Room, error) {
	var room models.Room
	if err := r.db.WithContext(ctx).First(&room, "product_id = ?", productID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *repository) HighestBid(ctx context.Context, roomID uuid.UUID) (*models.Bid, error) {
	var bid models.Bid
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND is_highest", roomID).
		First(&bid).Error
	if err != nil {
		return nil, err
	}
	return &bid, nil
}

func (r *repository) CreateBid(ctx context.Context, bid *models.Bid) error {
	return r.db.WithContext(ctx).Create(bid).Error
}

// PromoteHighestBid clears the previous highest flag and points the room at
// the new bid.
func (r *repository) PromoteHighestBid(ctx context.Context, roomID, bidID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("room_id = ? AND id <> ? AND is_highest", roomID, bidID).
		Update("is_highest", false).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("highest_bid_id", bidID).Error
}

func (r *repository) CreateRoom(ctx context.Context, room *models.Room) error {
	return r.db.WithContext(ctx).Create(room).Error
}

func (r *repository) ListBidsByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Bid, error) {
	var bids []models.Bid
	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}
