package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercadero/auction-engine/pkg/enums"
)

// Wish is a standing price-range subscription against exactly one of
// category, model or brand. Flipped to available by the matcher; never
// auto-reverted.
type Wish struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID          uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index:wishes_user_id_idx"`
	CategoryID      *uuid.UUID       `gorm:"column:category_id;type:uuid;index:wishes_category_id_idx"`
	ModelID         *uuid.UUID       `gorm:"column:model_id;type:uuid;index:wishes_model_id_idx"`
	BrandID         *uuid.UUID       `gorm:"column:brand_id;type:uuid;index:wishes_brand_id_idx"`
	LowerBoundCents int64            `gorm:"column:lower_bound_cents;not null"`
	UpperBoundCents int64            `gorm:"column:upper_bound_cents;not null"`
	Status          enums.WishStatus `gorm:"column:status;type:wish_status;not null;default:'pending'"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (Wish) TableName() string { return "wishes" }

// Dimension returns which catalog axis the wish subscribes to.
func (w Wish) Dimension() enums.WishDimension {
	switch {
	case w.CategoryID != nil:
		return enums.WishDimensionCategory
	case w.ModelID != nil:
		return enums.WishDimensionModel
	default:
		return enums.WishDimensionBrand
	}
}
