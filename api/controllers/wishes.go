package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/mercadero/auction-engine/api/responses"
	"github.com/mercadero/auction-engine/api/validators"
	"github.com/mercadero/auction-engine/internal/wishes"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/logger"
)

type createWishRequest struct {
	CategoryID      *uuid.UUID `json:"categoryId,omitempty"`
	ModelID         *uuid.UUID `json:"modelId,omitempty"`
	BrandID         *uuid.UUID `json:"brandId,omitempty"`
	LowerBoundCents int64      `json:"lowerBoundCents" validate:"min=0"`
	UpperBoundCents int64      `json:"upperBoundCents" validate:"required,gt=0"`
}

// CreateWish registers a pending wish for the authenticated user.
func CreateWish(svc wishes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wish service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createWishRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		wish, err := svc.CreateWish(r.Context(), wishes.CreateWishParams{
			UserID:          userID,
			CategoryID:      body.CategoryID,
			ModelID:         body.ModelID,
			BrandID:         body.BrandID,
			LowerBoundCents: body.LowerBoundCents,
			UpperBoundCents: body.UpperBoundCents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, wish)
	}
}

// ListWishes returns the authenticated user's wishes.
func ListWishes(svc wishes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "wish service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListWishes(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
