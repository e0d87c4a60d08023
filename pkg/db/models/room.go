package models

import (
	"time"

	"github.com/google/uuid"
)

// Room is the live auction window binding one product to its bid history.
// At most one bid is referenced as the current highest at any time.
type Room struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID    uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:rooms_product_id_key"`
	HighestBidID *uuid.UUID `gorm:"column:highest_bid_id;type:uuid"`
	ClosesAt     time.Time  `gorm:"column:closes_at;not null"`
	Product      *Product   `gorm:"foreignKey:ProductID"`
	HighestBid   *Bid       `gorm:"foreignKey:HighestBidID"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Closed reports whether the room stopped accepting bids at the given instant.
func (r Room) Closed(now time.Time) bool {
	return !now.Before(r.ClosesAt)
}
