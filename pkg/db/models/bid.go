package models

import (
	"time"

	"github.com/google/uuid"
)

// Bid is one immutable price offer inside a room. Superseded bids are
// never deleted, only unlinked from the room's highest pointer.
type Bid struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RoomID     uuid.UUID `gorm:"column:room_id;type:uuid;not null;index:bids_room_id_idx"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:bids_user_id_idx"`
	PriceCents int64     `gorm:"column:price_cents;not null"`
	IsHighest  bool      `gorm:"column:is_highest;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}
