package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mercadero/auction-engine/api/responses"
	"github.com/mercadero/auction-engine/api/validators"
	"github.com/mercadero/auction-engine/internal/listings"
	pkgerrors "github.com/mercadero/auction-engine/pkg/errors"
	"github.com/mercadero/auction-engine/pkg/logger"
)

type createListingRequest struct {
	ModelID         uuid.UUID `json:"modelId" validate:"required"`
	Title           string    `json:"title" validate:"required,min=3,max=160"`
	PriceCents      int64     `json:"priceCents" validate:"required,gt=0"`
	Tags            []string  `json:"tags,omitempty" validate:"max=20"`
	DurationMinutes int       `json:"durationMinutes,omitempty" validate:"min=0"`
}

// CreateListing creates a product with its auction room and queues the
// listing event for fan-out.
func CreateListing(svc listings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "listing service unavailable"))
			return
		}

		userID, err := requireUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createListingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		listing, err := svc.CreateListing(r.Context(), listings.CreateListingParams{
			SellerID:   userID,
			ModelID:    body.ModelID,
			Title:      body.Title,
			PriceCents: body.PriceCents,
			Tags:       body.Tags,
			Duration:   time.Duration(body.DurationMinutes) * time.Minute,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, listing)
	}
}
