package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/internal/broadcast"
	"github.com/mercadero/auction-engine/internal/catalog"
	"github.com/mercadero/auction-engine/pkg/db/models"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
)

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeLedgerRepo struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*models.Room
	bids  []*models.Bid
}

func newFakeLedgerRepo() *fakeLedgerRepo {
	return &fakeLedgerRepo{rooms: make(map[uuid.UUID]*models.Room)}
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeLedgerRepo) FindRoomForUpdate(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *room
	return &copied, nil
}

func (f *fakeLedgerRepo) FindRoomByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	return f.FindRoomForUpdate(ctx, roomID)
}

func (f *fakeLedgerRepo) FindRoomByProductID(ctx context.Context, productID uuid.UUID) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, room := range f.rooms {
		if room.ProductID == productID {
			copied := *room
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepo) HighestBid(ctx context.Context, roomID uuid.UUID) (*models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bid := range f.bids {
		if bid.RoomID == roomID && bid.IsHighest {
			copied := *bid
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeLedgerRepo) CreateBid(ctx context.Context, bid *models.Bid) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	bid.ID = uuid.New()
	bid.CreatedAt = time.Now()
	stored := *bid
	f.bids = append(f.bids, &stored)
	return nil
}

func (f *fakeLedgerRepo) PromoteHighestBid(ctx context.Context, roomID, bidID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, bid := range f.bids {
		if bid.RoomID == roomID {
			bid.IsHighest = bid.ID == bidID
		}
	}
	room, ok := f.rooms[roomID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	id := bidID
	room.HighestBidID = &id
	return nil
}

func (f *fakeLedgerRepo) CreateRoom(ctx context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room.ID == uuid.Nil {
		room.ID = uuid.New()
	}
	stored := *room
	f.rooms[room.ID] = &stored
	return nil
}

func (f *fakeLedgerRepo) ListBidsByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Bid, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Bid
	for i := len(f.bids) - 1; i >= 0; i-- {
		if f.bids[i].RoomID == roomID {
			out = append(out, *f.bids[i])
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

type fakeCatalogRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
}

func newFakeCatalogRepo() *fakeCatalogRepo {
	return &fakeCatalogRepo{products: make(map[uuid.UUID]*models.Product)}
}

func (f *fakeCatalogRepo) WithTx(tx *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalogRepo) FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	product, ok := f.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (f *fakeCatalogRepo) FindProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, product := range f.products {
		if product.Slug == slug {
			copied := *product
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCatalogRepo) FindProductWithModel(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return f.FindProductByID(ctx, id)
}

func (f *fakeCatalogRepo) FindUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

type ledgerFixture struct {
	service  Service
	registry *broadcast.Registry
	room     *models.Room
	product  *models.Product
	seller   uuid.UUID
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	ledgerRepo := newFakeLedgerRepo()
	catalogRepo := newFakeCatalogRepo()
	registry := broadcast.NewRegistry(64, nil)

	seller := uuid.New()
	product := &models.Product{
		ID:         uuid.New(),
		SellerID:   seller,
		ModelID:    uuid.New(),
		Slug:       "fender-strat-62",
		Title:      "1962 Fender Stratocaster",
		PriceCents: 10000,
	}
	catalogRepo.products[product.ID] = product

	room := &models.Room{
		ID:        uuid.New(),
		ProductID: product.ID,
		ClosesAt:  time.Now().Add(time.Hour),
	}
	if err := ledgerRepo.CreateRoom(context.Background(), room); err != nil {
		t.Fatalf("create room: %v", err)
	}

	svc, err := NewService(ServiceParams{
		Tx:          fakeTxRunner{},
		LedgerRepo:  ledgerRepo,
		CatalogRepo: catalogRepo,
		Registry:    registry,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	return &ledgerFixture{
		service:  svc,
		registry: registry,
		room:     room,
		product:  product,
		seller:   seller,
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error with code %s, got %v", code, err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
}

func TestSubmitBidScenario(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()
	bidder := uuid.New()
	rival := uuid.New()

	observer := fx.registry.Subscribe(fx.room.ID)

	first, err := fx.service.SubmitBid(ctx, SubmitBidParams{RoomID: fx.room.ID, UserID: bidder, PriceCents: 15000})
	if err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if first.PriceCents != 15000 {
		t.Fatalf("unexpected first bid %+v", first)
	}

	_, err = fx.service.SubmitBid(ctx, SubmitBidParams{RoomID: fx.room.ID, UserID: rival, PriceCents: 14000})
	assertCode(t, err, pkgerrors.CodeConflict)

	_, err = fx.service.SubmitBid(ctx, SubmitBidParams{RoomID: fx.room.ID, UserID: rival, PriceCents: 15000})
	assertCode(t, err, pkgerrors.CodeConflict)

	second, err := fx.service.SubmitBid(ctx, SubmitBidParams{RoomID: fx.room.ID, UserID: rival, PriceCents: 20000})
	if err != nil {
		t.Fatalf("second bid: %v", err)
	}

	history, err := fx.service.GetBidHistory(ctx, fx.room.ID, 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history.Bids) != 2 {
		t.Fatalf("expected 2 bids in history, got %d", len(history.Bids))
	}
	if history.Bids[0].ID != second.ID {
		t.Fatalf("expected newest bid first in history")
	}

	prices := []int64{15000, 20000}
	for _, want := range prices {
		select {
		case event := <-observer.C:
			if event.PriceCents != want {
				t.Fatalf("expected published price %d, got %d", want, event.PriceCents)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for published event")
		}
	}
}

func TestSubmitBidBelowListedPrice(t *testing.T) {
	fx := newLedgerFixture(t)

	_, err := fx.service.SubmitBid(context.Background(), SubmitBidParams{
		RoomID:     fx.room.ID,
		UserID:     uuid.New(),
		PriceCents: 9000,
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestSubmitBidAtListedPrice(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()

	// The listed price is the floor; the opening bid must exceed it.
	_, err := fx.service.SubmitBid(ctx, SubmitBidParams{
		RoomID:     fx.room.ID,
		UserID:     uuid.New(),
		PriceCents: fx.product.PriceCents,
	})
	assertCode(t, err, pkgerrors.CodeConflict)

	dto, err := fx.service.SubmitBid(ctx, SubmitBidParams{
		RoomID:     fx.room.ID,
		UserID:     uuid.New(),
		PriceCents: fx.product.PriceCents + 1,
	})
	if err != nil {
		t.Fatalf("bid above listed price: %v", err)
	}
	if dto.PriceCents != fx.product.PriceCents+1 {
		t.Fatalf("unexpected accepted bid %+v", dto)
	}
}

func TestSubmitBidSellerRejected(t *testing.T) {
	fx := newLedgerFixture(t)

	_, err := fx.service.SubmitBid(context.Background(), SubmitBidParams{
		RoomID:     fx.room.ID,
		UserID:     fx.seller,
		PriceCents: 20000,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestSubmitBidSoldProduct(t *testing.T) {
	fx := newLedgerFixture(t)
	buyer := uuid.New()
	fx.product.BuyerID = &buyer

	_, err := fx.service.SubmitBid(context.Background(), SubmitBidParams{
		RoomID:     fx.room.ID,
		UserID:     uuid.New(),
		PriceCents: 20000,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestSubmitBidClosedRoom(t *testing.T) {
	fx := newLedgerFixture(t)
	fx.room.ClosesAt = time.Now().Add(-time.Minute)
	repo := newFakeLedgerRepo()
	repo.rooms[fx.room.ID] = fx.room

	svc, err := NewService(ServiceParams{
		Tx:          fakeTxRunner{},
		LedgerRepo:  repo,
		CatalogRepo: &fakeCatalogRepo{products: map[uuid.UUID]*models.Product{fx.product.ID: fx.product}},
		Registry:    broadcast.NewRegistry(8, nil),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	_, err = svc.SubmitBid(context.Background(), SubmitBidParams{
		RoomID:     fx.room.ID,
		UserID:     uuid.New(),
		PriceCents: 20000,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestSubmitBidUnknownRoom(t *testing.T) {
	fx := newLedgerFixture(t)

	_, err := fx.service.SubmitBid(context.Background(), SubmitBidParams{
		RoomID:     uuid.New(),
		UserID:     uuid.New(),
		PriceCents: 20000,
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestSubmitBidValidation(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()

	_, err := fx.service.SubmitBid(ctx, SubmitBidParams{UserID: uuid.New(), PriceCents: 100})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = fx.service.SubmitBid(ctx, SubmitBidParams{RoomID: fx.room.ID, PriceCents: 100})
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = fx.service.SubmitBid(ctx, SubmitBidParams{RoomID: fx.room.ID, UserID: uuid.New(), PriceCents: 0})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestSubmitBidConcurrentMonotonic(t *testing.T) {
	fx := newLedgerFixture(t)
	ctx := context.Background()
	observer := fx.registry.Subscribe(fx.room.ID)

	const bidders = 20
	var wg sync.WaitGroup
	accepted := make(chan int64, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(offset int64) {
			defer wg.Done()
			dto, err := fx.service.SubmitBid(ctx, SubmitBidParams{
				RoomID:     fx.room.ID,
				UserID:     uuid.New(),
				PriceCents: 10000 + offset*100,
			})
			if err != nil {
				typed := pkgerrors.As(err)
				if typed == nil || typed.Code() != pkgerrors.CodeConflict {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			accepted <- dto.PriceCents
		}(int64(i + 1))
	}
	wg.Wait()
	close(accepted)

	count := 0
	for range accepted {
		count++
	}
	if count == 0 {
		t.Fatal("expected at least one accepted bid")
	}

	// Published events must be strictly increasing in price.
	var last int64
	for i := 0; i < count; i++ {
		select {
		case event := <-observer.C:
			if event.PriceCents <= last {
				t.Fatalf("event prices not strictly increasing: %d after %d", event.PriceCents, last)
			}
			last = event.PriceCents
		case <-time.After(time.Second):
			t.Fatal("timed out draining published events")
		}
	}
}

func TestRoomLockStableAndBounded(t *testing.T) {
	fx := newLedgerFixture(t)
	svc, ok := fx.service.(*service)
	if !ok {
		t.Fatal("expected *service")
	}

	roomID := uuid.New()
	lock := svc.roomLock(roomID)
	if lock == nil {
		t.Fatal("expected a lock")
	}
	// Same room must always map to the same stripe.
	if svc.roomLock(roomID) != lock {
		t.Fatal("lock not stable for the same room")
	}

	// The table is a fixed array; every lock points into it.
	seen := make(map[*sync.Mutex]struct{})
	for i := 0; i < roomLockStripes*4; i++ {
		seen[svc.roomLock(uuid.New())] = struct{}{}
	}
	if len(seen) > roomLockStripes {
		t.Fatalf("expected at most %d stripes, got %d", roomLockStripes, len(seen))
	}
}

func TestGetBidHistoryUnknownRoom(t *testing.T) {
	fx := newLedgerFixture(t)

	_, err := fx.service.GetBidHistory(context.Background(), uuid.New(), 0)
	if !errorsIsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func errorsIsCode(err error, code pkgerrors.Code) bool {
	typed := pkgerrors.As(err)
	return typed != nil && typed.Code() == code
}
