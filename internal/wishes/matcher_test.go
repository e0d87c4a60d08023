package wishes

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
)

type fakeWishRepo struct {
	mu       sync.Mutex
	byDim    map[enums.WishDimension][]models.Wish
	queryErr error
	queried  []enums.WishDimension
}

func newFakeWishRepo() *fakeWishRepo {
	return &fakeWishRepo{byDim: make(map[enums.WishDimension][]models.Wish)}
}

func (f *fakeWishRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeWishRepo) Create(ctx context.Context, wish *models.Wish) error {
	wish.ID = uuid.New()
	return nil
}

func (f *fakeWishRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Wish, error) {
	return nil, nil
}

func (f *fakeWishRepo) FindPendingByDimension(ctx context.Context, dimension enums.WishDimension, targetID uuid.UUID, priceCents int64) ([]models.Wish, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queried = append(f.queried, dimension)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var out []models.Wish
	for _, wish := range f.byDim[dimension] {
		if wish.LowerBoundCents <= priceCents && wish.UpperBoundCents >= priceCents {
			out = append(out, wish)
		}
	}
	return out, nil
}

func (f *fakeWishRepo) MarkAvailable(ctx context.Context, wishIDs []uuid.UUID) (int64, error) {
	return int64(len(wishIDs)), nil
}

func wishFor(user uuid.UUID, lower, upper int64) models.Wish {
	return models.Wish{
		ID:              uuid.New(),
		UserID:          user,
		LowerBoundCents: lower,
		UpperBoundCents: upper,
		Status:          enums.WishStatusPending,
	}
}

func TestFindMatchesUnionAndDedup(t *testing.T) {
	repo := newFakeWishRepo()
	sharedUser := uuid.New()
	otherUser := uuid.New()

	categoryWish := wishFor(sharedUser, 10000, 20000)
	modelWish := wishFor(sharedUser, 5000, 25000)
	brandWish := wishFor(otherUser, 10000, 16000)
	repo.byDim[enums.WishDimensionCategory] = []models.Wish{categoryWish}
	repo.byDim[enums.WishDimensionModel] = []models.Wish{modelWish}
	repo.byDim[enums.WishDimensionBrand] = []models.Wish{brandWish}

	matcher, err := NewMatcher(repo, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	result, err := matcher.FindMatches(context.Background(), MatchTarget{
		ProductID:  uuid.New(),
		CategoryID: uuid.New(),
		ModelID:    uuid.New(),
		BrandID:    uuid.New(),
		PriceCents: 15000,
	})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}

	if len(result.WishIDs) != 3 {
		t.Fatalf("expected 3 wish ids, got %d", len(result.WishIDs))
	}
	if len(result.UserIDs) != 2 {
		t.Fatalf("expected 2 deduplicated users, got %d", len(result.UserIDs))
	}
	if len(repo.queried) != 3 {
		t.Fatalf("expected 3 dimension queries, got %d", len(repo.queried))
	}
}

func TestFindMatchesOutOfRange(t *testing.T) {
	repo := newFakeWishRepo()
	repo.byDim[enums.WishDimensionCategory] = []models.Wish{wishFor(uuid.New(), 100, 200)}

	matcher, err := NewMatcher(repo, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	result, err := matcher.FindMatches(context.Background(), MatchTarget{
		ProductID:  uuid.New(),
		CategoryID: uuid.New(),
		ModelID:    uuid.New(),
		BrandID:    uuid.New(),
		PriceCents: 500,
	})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(result.WishIDs) != 0 || len(result.UserIDs) != 0 {
		t.Fatalf("expected no matches, got %+v", result)
	}
}

func TestFindMatchesSkipsNilDimensions(t *testing.T) {
	repo := newFakeWishRepo()
	matcher, err := NewMatcher(repo, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	_, err = matcher.FindMatches(context.Background(), MatchTarget{
		ProductID:  uuid.New(),
		ModelID:    uuid.New(),
		PriceCents: 500,
	})
	if err != nil {
		t.Fatalf("FindMatches: %v", err)
	}
	if len(repo.queried) != 1 {
		t.Fatalf("expected only the model dimension queried, got %v", repo.queried)
	}
}

func TestFindMatchesQueryError(t *testing.T) {
	repo := newFakeWishRepo()
	repo.queryErr = errors.New("boom")

	matcher, err := NewMatcher(repo, nil)
	if err != nil {
		t.Fatalf("NewMatcher: %v", err)
	}

	_, err = matcher.FindMatches(context.Background(), MatchTarget{
		ProductID:  uuid.New(),
		CategoryID: uuid.New(),
		PriceCents: 500,
	})
	if err == nil {
		t.Fatal("expected error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestCreateWishValidation(t *testing.T) {
	repo := newFakeWishRepo()
	svc, err := NewService(repo)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ctx := context.Background()
	userID := uuid.New()
	categoryID := uuid.New()
	brandID := uuid.New()

	// two dimensions
	_, err = svc.CreateWish(ctx, CreateWishParams{
		UserID:          userID,
		CategoryID:      &categoryID,
		BrandID:         &brandID,
		LowerBoundCents: 100,
		UpperBoundCents: 200,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// no dimension
	_, err = svc.CreateWish(ctx, CreateWishParams{
		UserID:          userID,
		LowerBoundCents: 100,
		UpperBoundCents: 200,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// inverted bounds
	_, err = svc.CreateWish(ctx, CreateWishParams{
		UserID:          userID,
		CategoryID:      &categoryID,
		LowerBoundCents: 300,
		UpperBoundCents: 200,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	// valid
	dto, err := svc.CreateWish(ctx, CreateWishParams{
		UserID:          userID,
		CategoryID:      &categoryID,
		LowerBoundCents: 100,
		UpperBoundCents: 200,
	})
	if err != nil {
		t.Fatalf("CreateWish: %v", err)
	}
	if dto.Dimension != enums.WishDimensionCategory {
		t.Fatalf("expected category dimension, got %s", dto.Dimension)
	}
	if dto.Status != enums.WishStatusPending {
		t.Fatalf("expected pending status, got %s", dto.Status)
	}
}
