package broadcast

import (
	"time"

	"github.com/google/uuid"
)

// BidEvent is the payload fanned out to room observers after a bid commits.
type BidEvent struct {
	BidID      uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"roomId"`
	UserID     uuid.UUID `json:"userId"`
	PriceCents int64     `json:"priceCents"`
	CreatedAt  time.Time `json:"createdAt"`
}
