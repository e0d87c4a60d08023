package enums

import "fmt"

// WishStatus maps to the wish_status enum in Postgres.
type WishStatus string

const (
	WishStatusPending   WishStatus = "pending"
	WishStatusAvailable WishStatus = "available"
)

var validWishStatuses = []WishStatus{
	WishStatusPending,
	WishStatusAvailable,
}

// IsValid checks whether the given status matches the canonical enum.
func (s WishStatus) IsValid() bool {
	for _, candidate := range validWishStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// WishDimension names the catalog axis a wish subscribes to.
type WishDimension string

const (
	WishDimensionCategory WishDimension = "category"
	WishDimensionModel    WishDimension = "model"
	WishDimensionBrand    WishDimension = "brand"
)

var validWishDimensions = []WishDimension{
	WishDimensionCategory,
	WishDimensionModel,
	WishDimensionBrand,
}

// IsValid checks whether the given dimension matches the canonical enum.
func (d WishDimension) IsValid() bool {
	for _, candidate := range validWishDimensions {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseWishDimension converts raw strings into WishDimension.
func ParseWishDimension(value string) (WishDimension, error) {
	for _, candidate := range validWishDimensions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wish dimension %q", value)
}
