package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/pkg/db/models"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	rooms := `
CREATE TABLE IF NOT EXISTS rooms (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL UNIQUE,
  highest_bid_id TEXT,
  closes_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`
	bids := `
CREATE TABLE IF NOT EXISTS bids (
  id TEXT PRIMARY KEY,
  room_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  is_highest INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(rooms).Error)
	require.NoError(t, db.Exec(bids).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM bids")
		db.Exec("DELETE FROM rooms")
	})
	return db
}

func newRoom(t *testing.T, db *gorm.DB) *models.Room {
	t.Helper()

	room := &models.Room{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		ClosesAt:  time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(room).Error)
	return room
}

func newBid(t *testing.T, db *gorm.DB, roomID uuid.UUID, price int64, highest bool) *models.Bid {
	t.Helper()

	bid := &models.Bid{
		ID:         uuid.New(),
		RoomID:     roomID,
		UserID:     uuid.New(),
		PriceCents: price,
		IsHighest:  highest,
	}
	require.NoError(t, db.Create(bid).Error)
	return bid
}

func TestCreateAndFindRoom(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	room := &models.Room{
		ID:        uuid.New(),
		ProductID: uuid.New(),
		ClosesAt:  time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.CreateRoom(ctx, room))

	found, err := repo.FindRoomByID(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, room.ProductID, found.ProductID)

	byProduct, err := repo.FindRoomByProductID(ctx, room.ProductID)
	require.NoError(t, err)
	require.Equal(t, room.ID, byProduct.ID)

	_, err = repo.FindRoomByID(ctx, uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestPromoteHighestBid(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	room := newRoom(t, db)
	first := newBid(t, db, room.ID, 10000, true)
	second := newBid(t, db, room.ID, 12000, true)

	require.NoError(t, repo.PromoteHighestBid(ctx, room.ID, second.ID))

	highest, err := repo.HighestBid(ctx, room.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, highest.ID)
	require.Equal(t, int64(12000), highest.PriceCents)

	var previous models.Bid
	require.NoError(t, db.First(&previous, "id = ?", first.ID).Error)
	require.False(t, previous.IsHighest)

	updated, err := repo.FindRoomByID(ctx, room.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.HighestBidID)
	require.Equal(t, second.ID, *updated.HighestBidID)
}

func TestListBidsByRoomNewestFirst(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	room := newRoom(t, db)
	base := time.Now().Add(-time.Hour)
	for i, price := range []int64{10000, 11000, 12000} {
		bid := &models.Bid{
			ID:         uuid.New(),
			RoomID:     room.ID,
			UserID:     uuid.New(),
			PriceCents: price,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, db.Create(bid).Error)
	}

	bids, err := repo.ListBidsByRoom(ctx, room.ID, 0)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	require.Equal(t, int64(12000), bids[0].PriceCents)
	require.Equal(t, int64(10000), bids[2].PriceCents)

	limited, err := repo.ListBidsByRoom(ctx, room.ID, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}
