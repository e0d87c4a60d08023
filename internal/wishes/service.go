package wishes

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mercadero/auction-engine/pkg/db/models"
	"github.com/mercadero/auction-engine/pkg/enums"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
)

// CreateWishParams carries a wish creation request.
type CreateWishParams struct {
	UserID          uuid.UUID
	CategoryID      *uuid.UUID
	ModelID         *uuid.UUID
	BrandID         *uuid.UUID
	LowerBoundCents int64
	UpperBoundCents int64
}

// WishDTO is the API shape of a wish.
type WishDTO struct {
	ID              uuid.UUID           `json:"id"`
	UserID          uuid.UUID           `json:"userId"`
	Dimension       enums.WishDimension `json:"dimension"`
	CategoryID      *uuid.UUID          `json:"categoryId,omitempty"`
	ModelID         *uuid.UUID          `json:"modelId,omitempty"`
	BrandID         *uuid.UUID          `json:"brandId,omitempty"`
	LowerBoundCents int64               `json:"lowerBoundCents"`
	UpperBoundCents int64               `json:"upperBoundCents"`
	Status          enums.WishStatus    `json:"status"`
	CreatedAt       time.Time           `json:"createdAt"`
}

func toWishDTO(wish models.Wish) WishDTO {
	return WishDTO{
		ID:              wish.ID,
		UserID:          wish.UserID,
		Dimension:       wish.Dimension(),
		CategoryID:      wish.CategoryID,
		ModelID:         wish.ModelID,
		BrandID:         wish.BrandID,
		LowerBoundCents: wish.LowerBoundCents,
		UpperBoundCents: wish.UpperBoundCents,
		Status:          wish.Status,
		CreatedAt:       wish.CreatedAt,
	}
}

// Service exposes wish creation and listing.
type Service interface {
	CreateWish(ctx context.Context, params CreateWishParams) (*WishDTO, error)
	ListWishes(ctx context.Context, userID uuid.UUID) ([]WishDTO, error)
}

type service struct {
	repo Repository
}

// NewService builds a wish service with the required dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "wish repo is required")
	}
	return &service{repo: repo}, nil
}

// CreateWish validates the single-dimension rule and persists a pending wish.
func (s *service) CreateWish(ctx context.Context, params CreateWishParams) (*WishDTO, error) {
	if params.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	dimensions := 0
	for _, id := range []*uuid.UUID{params.CategoryID, params.ModelID, params.BrandID} {
		if id != nil && *id != uuid.Nil {
			dimensions++
		}
	}
	if dimensions != 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of category, model or brand is required")
	}
	if params.LowerBoundCents < 0 || params.UpperBoundCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price bounds must be positive")
	}
	if params.LowerBoundCents > params.UpperBoundCents {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lower bound exceeds upper bound")
	}

	wish := models.Wish{
		UserID:          params.UserID,
		CategoryID:      params.CategoryID,
		ModelID:         params.ModelID,
		BrandID:         params.BrandID,
		LowerBoundCents: params.LowerBoundCents,
		UpperBoundCents: params.UpperBoundCents,
		Status:          enums.WishStatusPending,
	}
	if err := s.repo.Create(ctx, &wish); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create wish")
	}

	dto := toWishDTO(wish)
	return &dto, nil
}

// ListWishes returns the user's wishes newest first.
func (s *service) ListWishes(ctx context.Context, userID uuid.UUID) ([]WishDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list wishes")
	}
	dtos := make([]WishDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toWishDTO(row))
	}
	return dtos, nil
}
