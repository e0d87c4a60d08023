package ledger

import (
	"time"

	"github.com/google/uuid"

	"github.com/mercadero/auction-engine/pkg/db/models"
)

// SubmitBidParams carries a single bid submission.
type SubmitBidParams struct {
	RoomID     uuid.UUID
	UserID     uuid.UUID
	PriceCents int64
}

// BidDTO is the accepted-bid response shape.
type BidDTO struct {
	ID         uuid.UUID `json:"id"`
	RoomID     uuid.UUID `json:"roomId"`
	UserID     uuid.UUID `json:"userId"`
	PriceCents int64     `json:"priceCents"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toBidDTO(bid models.Bid) BidDTO {
	return BidDTO{
		ID:         bid.ID,
		RoomID:     bid.RoomID,
		UserID:     bid.UserID,
		PriceCents: bid.PriceCents,
		CreatedAt:  bid.CreatedAt,
	}
}

// BidHistoryDTO lists a room's bids newest first.
type BidHistoryDTO struct {
	RoomID uuid.UUID `json:"roomId"`
	Bids   []BidDTO  `json:"bids"`
}
