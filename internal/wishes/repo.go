package wishes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
)

// Repository manages persistence for wishes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, wish *models.Wish) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wish, error)
	FindPendingByDimension(ctx context.Context, dimension enums.WishDimension, targetID uuid.UUID, priceCents int64) ([]models.Wish, error)
	MarkAvailable(ctx context.Context, wishIDs []uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wish repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, wish *models.Wish) error {
	return r.db.WithContext(ctx).Create(wish).Error
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wish, error) {
	var wishes []models.Wish
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&wishes).Error; err != nil {
		return nil, err
	}
	return wishes, nil
}

// FindPendingByDimension returns pending wishes on one catalog axis whose
// price range contains priceCents. Bounds are inclusive.
func (r *repository) FindPendingByDimension(ctx context.Context, dimension enums.WishDimension, targetID uuid.UUID, priceCents int64) ([]models.Wish, error) {
	column, err := dimensionColumn(dimension)
	if err != nil {
		return nil, err
	}

	var wishes []models.Wish
	if err := r.db.WithContext(ctx).
		Where(column+" = ?", targetID).
		Where("status = ?", enums.WishStatusPending).
		Where("lower_bound_cents <= ? AND upper_bound_cents >= ?", priceCents, priceCents).
		Find(&wishes).Error; err != nil {
		return nil, err
	}
	return wishes, nil
}

// MarkAvailable flips pending wishes to available and reports how many rows
// actually changed.
func (r *repository) MarkAvailable(ctx context.Context, wishIDs []uuid.UUID) (int64, error) {
	if len(wishIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&models.Wish{}).
		Where("id IN ?", wishIDs).
		Where("status = ?", enums.WishStatusPending).
		Update("status", enums.WishStatusAvailable)
	return result.RowsAffected, result.Error
}

func dimensionColumn(dimension enums.WishDimension) (string, error) {
	switch dimension {
	case enums.WishDimensionCategory:
		return "category_id", nil
	case enums.WishDimensionModel:
		return "model_id", nil
	case enums.WishDimensionBrand:
		return "brand_id", nil
	default:
		return "", gorm.ErrInvalidValue
	}
}
