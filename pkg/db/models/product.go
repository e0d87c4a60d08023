package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Product is the catalog listing an auction room is bound to. The catalog
// admin screens own the full record; this service reads the fields the
// bidding and matching paths need and writes only the buyer reference.
type Product struct {
	ID         uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID   uuid.UUID      `gorm:"column:seller_id;type:uuid;not null"`
	BuyerID    *uuid.UUID     `gorm:"column:buyer_id;type:uuid"`
	ModelID    uuid.UUID      `gorm:"column:model_id;type:uuid;not null;index:products_model_id_idx"`
	Slug       string         `gorm:"column:slug;not null;uniqueIndex:products_slug_key"`
	Title      string         `gorm:"column:title;not null"`
	PriceCents int64          `gorm:"column:price_cents;not null"`
	Tags       pq.StringArray `gorm:"column:tags;type:text[];not null;default:ARRAY[]::text[]"`
	Seller     *User          `gorm:"foreignKey:SellerID"`
	Model      *ProductModel  `gorm:"foreignKey:ModelID"`
	CreatedAt  time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Sold reports whether a buyer has been recorded for the listing.
func (p Product) Sold() bool {
	return p.BuyerID != nil
}
