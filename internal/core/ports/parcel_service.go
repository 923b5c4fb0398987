package ports

import (
	"context"
	"time"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

// LocationInput carries optional geographic coordinates.
type LocationInput struct {
	Lat float64
	Lng float64
}

// AddressInput is the transport-layer DTO for a pickup or delivery endpoint.
type AddressInput struct {
	Name       string
	Phone      string
	Address1   string
	Address2   string
	City       string
	PostalCode string
	Location   *LocationInput
}

// ParcelDetailsInput describes the physical parcel being booked.
type ParcelDetailsInput struct {
	Type                string
	Weight              float64
	Description         string
	SpecialInstructions string
}

// PaymentInput carries the payment terms for a booking.
type PaymentInput struct {
	Method    string
	CODAmount float64
}

// BookParcelInput is the DTO passed from the transport layer to ParcelService.
type BookParcelInput struct {
	SenderInfo     AddressInput
	ReceiverInfo   AddressInput
	Details        ParcelDetailsInput
	Payment        PaymentInput
	PickupSchedule time.Time
}

// ParcelService implements parcel booking and lookup.
type ParcelService interface {
	Book(ctx context.Context, customerID string, input BookParcelInput) (*domain.Parcel, error)
	Track(ctx context.Context, trackingID string) (*domain.Parcel, error)
	Assign(ctx context.Context, parcelID, agentID string) (*domain.Parcel, error)
}
