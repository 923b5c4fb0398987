package handler

import (
	"time"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

// errorResponse is the standard error envelope returned on all 4xx/5xx responses.
type errorResponse struct {
	Error string `json:"error"`
}

// --- Request / Response types ---

type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type addressRequest struct {
	Name       string           `json:"name"       validate:"required"`
	Phone      string           `json:"phone"      validate:"required"`
	Address1   string           `json:"address1"   validate:"required"`
	Address2   string           `json:"address2"`
	City       string           `json:"city"       validate:"required"`
	PostalCode string           `json:"postalCode" validate:"required"`
	Location   *locationRequest `json:"location"`
}

type parcelDetailsRequest struct {
	Type                string  `json:"type"        validate:"required,oneof=small medium large"`
	Weight              float64 `json:"weight"      validate:"required,gt=0"`
	Description         string  `json:"description" validate:"required"`
	SpecialInstructions string  `json:"specialInstructions"`
}

type paymentRequest struct {
	Method    string  `json:"method"    validate:"required,oneof=COD prepaid"`
	CODAmount float64 `json:"codAmount" validate:"gte=0"`
}

type bookParcelRequest struct {
	SenderInfo     addressRequest       `json:"senderInfo"     validate:"required"`
	ReceiverInfo   addressRequest       `json:"receiverInfo"   validate:"required"`
	ParcelDetails  parcelDetailsRequest `json:"parcelDetails"  validate:"required"`
	Payment        paymentRequest       `json:"payment"        validate:"required"`
	PickupSchedule time.Time            `json:"pickupSchedule" validate:"required"`
}

type bookParcelResponse struct {
	Message    string         `json:"message"`
	TrackingID string         `json:"trackingId"`
	Parcel     *domain.Parcel `json:"parcel"`
}

// trackParcelResponse is the public tracking snapshot: the parcel document
// plus the live-presence flag for the assigned agent.
type trackParcelResponse struct {
	*domain.Parcel
	AgentOnline bool `json:"agentOnline"`
}

type assignAgentRequest struct {
	AgentID string `json:"agentId" validate:"required"`
}
