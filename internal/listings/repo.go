package listings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/pkg/db/models"
)

// Repository manages persistence for product listings.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateProduct(ctx context.Context, product *models.Product) error
	FindModelWithRelations(ctx context.Context, id uuid.UUID) (*models.ProductModel, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a listings repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateProduct(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repository) FindModelWithRelations(ctx context.Context, id uuid.UUID) (*models.ProductModel, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).
		Preload("Brand").
		Preload("Category").
		First(&model, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &model, nil
}
