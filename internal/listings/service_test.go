package listings

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/internal/ledger"
	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/outbox"
)

type fakeTxRunner struct{}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeListingsRepo struct {
	mu        sync.Mutex
	models    map[uuid.UUID]*models.ProductModel
	products  []*models.Product
	createErr error
}

func newFakeListingsRepo() *fakeListingsRepo {
	return &fakeListingsRepo{models: make(map[uuid.UUID]*models.ProductModel)}
}

func (f *fakeListingsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeListingsRepo) CreateProduct(ctx context.Context, product *models.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	product.ID = uuid.New()
	f.products = append(f.products, product)
	return nil
}

func (f *fakeListingsRepo) FindModelWithRelations(ctx context.Context, id uuid.UUID) (*models.ProductModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	model, ok := f.models[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return model, nil
}

type fakeRoomRepo struct {
	mu    sync.Mutex
	rooms []*models.Room
}

func (f *fakeRoomRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeRoomRepo) FindRoomForUpdate(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) FindRoomByID(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) FindRoomByProductID(ctx context.Context, productID uuid.UUID) (*models.Room, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) HighestBid(ctx context.Context, roomID uuid.UUID) (*models.Bid, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRoomRepo) CreateBid(ctx context.Context, bid *models.Bid) error { return nil }

func (f *fakeRoomRepo) PromoteHighestBid(ctx context.Context, roomID, bidID uuid.UUID) error {
	return nil
}

func (f *fakeRoomRepo) CreateRoom(ctx context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room.ID = uuid.New()
	f.rooms = append(f.rooms, room)
	return nil
}

func (f *fakeRoomRepo) ListBidsByRoom(ctx context.Context, roomID uuid.UUID, limit int) ([]models.Bid, error) {
	return nil, nil
}

type fakeOutbox struct {
	mu     sync.Mutex
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type listingFixture struct {
	svc      Service
	repo     *fakeListingsRepo
	roomRepo *fakeRoomRepo
	outbox   *fakeOutbox
	modelID  uuid.UUID
	brandID  uuid.UUID
	catID    uuid.UUID
}

func newListingFixture(t *testing.T) *listingFixture {
	t.Helper()

	repo := newFakeListingsRepo()
	modelID, brandID, catID := uuid.New(), uuid.New(), uuid.New()
	repo.models[modelID] = &models.ProductModel{
		ID:         modelID,
		BrandID:    brandID,
		CategoryID: catID,
		Name:       "Stratocaster",
	}

	roomRepo := &fakeRoomRepo{}
	ob := &fakeOutbox{}

	svc, err := NewService(ServiceParams{
		Tx:           &fakeTxRunner{},
		ListingsRepo: repo,
		LedgerRepo:   roomRepo,
		Outbox:       ob,
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &listingFixture{
		svc:      svc,
		repo:     repo,
		roomRepo: roomRepo,
		outbox:   ob,
		modelID:  modelID,
		brandID:  brandID,
		catID:    catID,
	}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	var appErr *pkgerrors.Error
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *pkgerrors.Error, got %v", err)
	}
	if appErr.Code() != code {
		t.Fatalf("expected code %s, got %s", code, appErr.Code())
	}
}

func TestCreateListingHappyPath(t *testing.T) {
	fx := newListingFixture(t)
	sellerID := uuid.New()

	dto, err := fx.svc.CreateListing(context.Background(), CreateListingParams{
		SellerID:   sellerID,
		ModelID:    fx.modelID,
		Title:      "1962 Fender Stratocaster",
		PriceCents: 850000,
		Tags:       []string{"vintage", "sunburst"},
	})
	if err != nil {
		t.Fatalf("CreateListing: %v", err)
	}

	if len(fx.repo.products) != 1 {
		t.Fatalf("expected 1 product, got %d", len(fx.repo.products))
	}
	if len(fx.roomRepo.rooms) != 1 {
		t.Fatalf("expected 1 room, got %d", len(fx.roomRepo.rooms))
	}
	room := fx.roomRepo.rooms[0]
	if room.ProductID != dto.ProductID {
		t.Fatal("room not bound to the created product")
	}
	if time.Until(room.ClosesAt) < 71*time.Hour {
		t.Fatalf("expected default auction duration, closes at %v", room.ClosesAt)
	}

	if !strings.HasPrefix(dto.Slug, "1962-fender-stratocaster-") {
		t.Fatalf("unexpected slug %q", dto.Slug)
	}

	if len(fx.outbox.events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(fx.outbox.events))
	}
	event := fx.outbox.events[0]
	if event.EventType != enums.EventProductListed {
		t.Fatalf("unexpected event type %s", event.EventType)
	}
	if event.AggregateID != dto.ProductID {
		t.Fatal("event aggregate is not the product")
	}
	if event.Actor == nil || event.Actor.UserID != sellerID {
		t.Fatal("event actor is not the seller")
	}
}

func TestCreateListingUnknownModel(t *testing.T) {
	fx := newListingFixture(t)

	_, err := fx.svc.CreateListing(context.Background(), CreateListingParams{
		SellerID:   uuid.New(),
		ModelID:    uuid.New(),
		Title:      "Mystery guitar",
		PriceCents: 100,
	})
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestCreateListingValidation(t *testing.T) {
	fx := newListingFixture(t)

	cases := []struct {
		name   string
		params CreateListingParams
	}{
		{"missing seller", CreateListingParams{ModelID: fx.modelID, Title: "x", PriceCents: 100}},
		{"missing model", CreateListingParams{SellerID: uuid.New(), Title: "x", PriceCents: 100}},
		{"blank title", CreateListingParams{SellerID: uuid.New(), ModelID: fx.modelID, Title: "   ", PriceCents: 100}},
		{"zero price", CreateListingParams{SellerID: uuid.New(), ModelID: fx.modelID, Title: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := fx.svc.CreateListing(context.Background(), tc.params); err == nil {
				t.Fatal("expected validation error")
			} else {
				assertCode(t, err, pkgerrors.CodeValidation)
			}
		})
	}
}

func TestCreateListingOutboxFailureAbortsTx(t *testing.T) {
	fx := newListingFixture(t)
	fx.outbox.err = errors.New("insert failed")

	_, err := fx.svc.CreateListing(context.Background(), CreateListingParams{
		SellerID:   uuid.New(),
		ModelID:    fx.modelID,
		Title:      "Les Paul Custom",
		PriceCents: 320000,
	})
	assertCode(t, err, pkgerrors.CodeDependency)
}

func TestBuildSlug(t *testing.T) {
	slug := buildSlug("  1967 Martin D-28 / Brazilian ")
	if !strings.HasPrefix(slug, "1967-martin-d-28-brazilian-") {
		t.Fatalf("unexpected slug %q", slug)
	}
	if fallback := buildSlug("!!!"); !strings.HasPrefix(fallback, "listing-") {
		t.Fatalf("unexpected fallback slug %q", fallback)
	}
}
