package lifecycle

import (
	"strings"
	"time"

	"github.com/kendall-kelly/jewelry-erp-api/apperrors"
	"github.com/kendall-kelly/jewelry-erp-api/models"
)

// OrderDetails carries the descriptive fields of an order. Nil fields are left alone
// by ApplyDetails. Status, location and history are never part of it.
type OrderDetails struct {
	BagNo               *string
	ClientName          *string
	ClientCategory      *models.ClientCategory
	UrgencyLevel        *models.UrgencyLevel
	DesignNo            *string
	Description         *string
	Quantity            *int
	StoneType           *string
	StoneSize           *string
	StoneQuality        *string
	SpecialInstructions *string
	DeliveryDate        *time.Time
	ImageURLs           []string
	DocumentURLs        []string
}

// ValidateDetails checks the fields that are set.
func ValidateDetails(d OrderDetails) error {
	if d.ClientName != nil && strings.TrimSpace(*d.ClientName) == "" {
		return apperrors.Invalid("client_name", "must not be empty")
	}
	if d.ClientCategory != nil && !d.ClientCategory.IsValid() {
		return apperrors.Invalid("client_category", "unknown category %q", *d.ClientCategory)
	}
	if d.UrgencyLevel != nil && !d.UrgencyLevel.IsValid() {
		return apperrors.Invalid("urgency_level", "unknown urgency level %q", *d.UrgencyLevel)
	}
	if d.Quantity != nil && *d.Quantity < 1 {
		return apperrors.Invalid("quantity", "must be at least 1, got %d", *d.Quantity)
	}
	return nil
}

// ApplyDetails validates d and copies its set fields onto order.
func ApplyDetails(order *models.Order, d OrderDetails) error {
	if err := ValidateDetails(d); err != nil {
		return err
	}

	setString := func(dst **string, src *string) {
		if src != nil {
			v := *src
			*dst = &v
		}
	}

	setString(&order.BagNo, d.BagNo)
	setString(&order.DesignNo, d.DesignNo)
	setString(&order.StoneType, d.StoneType)
	setString(&order.StoneSize, d.StoneSize)
	setString(&order.StoneQuality, d.StoneQuality)
	setString(&order.SpecialInstructions, d.SpecialInstructions)

	if d.ClientName != nil {
		order.ClientName = strings.TrimSpace(*d.ClientName)
	}
	if d.ClientCategory != nil {
		order.ClientCategory = *d.ClientCategory
	}
	if d.UrgencyLevel != nil {
		order.UrgencyLevel = *d.UrgencyLevel
	}
	if d.Description != nil {
		order.Description = *d.Description
	}
	if d.Quantity != nil {
		order.Quantity = *d.Quantity
	}
	if d.DeliveryDate != nil {
		order.DeliveryDate = d.DeliveryDate
	}
	if d.ImageURLs != nil {
		order.ImageURLs = append([]string(nil), d.ImageURLs...)
	}
	if d.DocumentURLs != nil {
		order.DocumentURLs = append([]string(nil), d.DocumentURLs...)
	}
	return nil
}
