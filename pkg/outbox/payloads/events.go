package payloads

import (
	"time"

	"github.com/google/uuid"
)

// ProductListedEvent is published when a product goes live with its bidding room.
type ProductListedEvent struct {
	ProductID  uuid.UUID `json:"productId"`
	SellerID   uuid.UUID `json:"sellerId"`
	ModelID    uuid.UUID `json:"modelId"`
	BrandID    uuid.UUID `json:"brandId"`
	CategoryID uuid.UUID `json:"categoryId"`
	Slug       string    `json:"slug"`
	Title      string    `json:"title"`
	PriceCents int64     `json:"priceCents"`
	ListedAt   time.Time `json:"listedAt"`
}
