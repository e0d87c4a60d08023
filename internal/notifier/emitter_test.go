package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/internal/wishes"
	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
)

type fakeTxRunner struct {
	failed bool
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	err := fn(nil)
	if err != nil {
		f.failed = true
	}
	return err
}

type fakeWishStore struct {
	mu        sync.Mutex
	flipped   []uuid.UUID
	markErr   error
	available map[uuid.UUID]bool
	matches   []models.Wish
	findErr   error
}

func newFakeWishStore() *fakeWishStore {
	return &fakeWishStore{available: make(map[uuid.UUID]bool)}
}

func (f *fakeWishStore) WithTx(tx *gorm.DB) wishes.Repository { return f }

func (f *fakeWishStore) Create(ctx context.Context, wish *models.Wish) error { return nil }

func (f *fakeWishStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wish, error) {
	return nil, nil
}

func (f *fakeWishStore) FindPendingByDimension(ctx context.Context, dimension enums.WishDimension, targetID uuid.UUID, priceCents int64) ([]models.Wish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []models.Wish
	for _, wish := range f.matches {
		if wish.LowerBoundCents <= priceCents && wish.UpperBoundCents >= priceCents {
			out = append(out, wish)
		}
	}
	return out, nil
}

func (f *fakeWishStore) MarkAvailable(ctx context.Context, wishIDs []uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return 0, f.markErr
	}
	var affected int64
	for _, id := range wishIDs {
		if !f.available[id] {
			f.available[id] = true
			f.flipped = append(f.flipped, id)
			affected++
		}
	}
	return affected, nil
}

type fakeNotificationRepo struct {
	mu        sync.Mutex
	created   []*models.Notification
	createErr error
}

func (f *fakeNotificationRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeNotificationRepo) Create(ctx context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	notification.ID = uuid.New()
	f.created = append(f.created, notification)
	return nil
}

func (f *fakeNotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, cursor string, limit int) ([]models.Notification, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Notification
	for _, n := range f.created {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, "", nil
}

func (f *fakeNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	return gorm.ErrRecordNotFound
}

func testProduct() *models.Product {
	return &models.Product{
		ID:         uuid.New(),
		SellerID:   uuid.New(),
		Slug:       "martin-d28-1967",
		Title:      "1967 Martin D-28",
		PriceCents: 450000,
		Seller:     &models.User{ID: uuid.New(), Name: "Vintage Strings Co"},
		Model:      &models.ProductModel{ID: uuid.New(), Name: "Martin D-28"},
	}
}

func TestEmitHappyPath(t *testing.T) {
	tx := &fakeTxRunner{}
	wishStore := newFakeWishStore()
	notifRepo := &fakeNotificationRepo{}

	emitter, err := NewEmitter(tx, wishStore, notifRepo, nil)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}

	product := testProduct()
	wishIDs := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	userIDs := []uuid.UUID{uuid.New(), uuid.New()}

	emitter.Emit(context.Background(), EmitParams{
		Product: product,
		WishIDs: wishIDs,
		UserIDs: userIDs,
	})

	if len(wishStore.flipped) != 3 {
		t.Fatalf("expected 3 wishes flipped, got %d", len(wishStore.flipped))
	}
	if len(notifRepo.created) != 2 {
		t.Fatalf("expected one notification per user, got %d", len(notifRepo.created))
	}

	first := notifRepo.created[0]
	if first.Type != enums.NotificationTypeWishAvailable {
		t.Fatalf("unexpected notification type %s", first.Type)
	}
	if first.Title != "A wish came true" {
		t.Fatalf("unexpected title %q", first.Title)
	}
	if first.Link == nil || *first.Link != "/listings/martin-d28-1967" {
		t.Fatalf("unexpected link %v", first.Link)
	}
	if want := "Vintage Strings Co just listed a Martin D-28 in your price range."; first.Message != want {
		t.Fatalf("unexpected message %q", first.Message)
	}
}

func TestEmitSwallowsFailures(t *testing.T) {
	tx := &fakeTxRunner{}
	wishStore := newFakeWishStore()
	wishStore.markErr = errors.New("db down")
	notifRepo := &fakeNotificationRepo{}

	emitter, err := NewEmitter(tx, wishStore, notifRepo, nil)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}

	// Must not panic or surface the error.
	emitter.Emit(context.Background(), EmitParams{
		Product: testProduct(),
		WishIDs: []uuid.UUID{uuid.New()},
		UserIDs: []uuid.UUID{uuid.New()},
	})

	if !tx.failed {
		t.Fatal("expected transaction to fail")
	}
	if len(notifRepo.created) != 0 {
		t.Fatalf("expected no notifications on failure, got %d", len(notifRepo.created))
	}
}

func TestEmitNoMatchesIsNoop(t *testing.T) {
	tx := &fakeTxRunner{}
	wishStore := newFakeWishStore()
	notifRepo := &fakeNotificationRepo{}

	emitter, err := NewEmitter(tx, wishStore, notifRepo, nil)
	if err != nil {
		t.Fatalf("NewEmitter: %v", err)
	}

	emitter.Emit(context.Background(), EmitParams{Product: testProduct()})

	if tx.failed || len(wishStore.flipped) != 0 || len(notifRepo.created) != 0 {
		t.Fatal("expected no work for empty match result")
	}
}
