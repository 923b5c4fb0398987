package domain

import (
	"errors"
	"time"
)

// ParcelStatus represents the delivery state of a parcel. The string values
// are part of the wire format shared with the web client, not internal codes.
type ParcelStatus string

const (
	StatusPending   ParcelStatus = "Pending"
	StatusPickedUp  ParcelStatus = "Picked Up"
	StatusInTransit ParcelStatus = "In Transit"
	StatusDelivered ParcelStatus = "Delivered"
	StatusFailed    ParcelStatus = "Failed"
)

// ParcelStatuses lists every recognised status value.
var ParcelStatuses = []ParcelStatus{
	StatusPending, StatusPickedUp, StatusInTransit, StatusDelivered, StatusFailed,
}

// IsValid reports whether s is a recognised status value. Transitions between
// statuses are deliberately unrestricted: any authorised agent may set any
// value.
func (s ParcelStatus) IsValid() bool {
	for _, known := range ParcelStatuses {
		if s == known {
			return true
		}
	}
	return false
}

var ErrParcelNotFound = errors.New("parcel not found")
var ErrForbidden = errors.New("access forbidden")
var ErrNotOwner = errors.New("parcel not assigned to this agent")
var ErrInvalidStatus = errors.New("invalid parcel status")
var ErrPickupInPast = errors.New("pickup schedule must be in the future")
var ErrNotAnAgent = errors.New("assignee is not a delivery agent")

// Location is a geographic point reported by a delivery agent.
type Location struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Address describes a pickup or delivery endpoint.
type Address struct {
	Name       string    `json:"name" bson:"name"`
	Phone      string    `json:"phone" bson:"phone"`
	Address1   string    `json:"address1" bson:"address1"`
	Address2   string    `json:"address2,omitempty" bson:"address2,omitempty"`
	City       string    `json:"city" bson:"city"`
	PostalCode string    `json:"postalCode" bson:"postalCode"`
	Location   *Location `json:"location,omitempty" bson:"location,omitempty"`
}

// ParcelType categorises a parcel by size.
type ParcelType string

const (
	ParcelSmall  ParcelType = "small"
	ParcelMedium ParcelType = "medium"
	ParcelLarge  ParcelType = "large"
)

// ParcelDetails holds the physical description of a parcel.
type ParcelDetails struct {
	Type                ParcelType `json:"type" bson:"type"`
	Weight              float64    `json:"weight" bson:"weight"`
	Description         string     `json:"description" bson:"description"`
	SpecialInstructions string     `json:"specialInstructions,omitempty" bson:"specialInstructions,omitempty"`
}

// Payment records how the parcel is paid for. Cash on delivery is the only
// supported method.
type Payment struct {
	Method    string  `json:"method" bson:"method"`
	CODAmount float64 `json:"codAmount" bson:"codAmount"`
}

// Parcel is the core aggregate root. TrackingID is the external-facing
// identifier; ID is the storage identifier. AgentLocation is a denormalised
// projection of the assigned agent's latest reported position.
type Parcel struct {
	ID             string        `json:"id" bson:"_id,omitempty"`
	TrackingID     string        `json:"trackingId" bson:"trackingId"`
	Customer       string        `json:"customer,omitempty" bson:"customer,omitempty"`
	SenderInfo     Address       `json:"senderInfo" bson:"senderInfo"`
	ReceiverInfo   Address       `json:"receiverInfo" bson:"receiverInfo"`
	Details        ParcelDetails `json:"parcelDetails" bson:"parcelDetails"`
	Payment        Payment       `json:"payment" bson:"payment"`
	PickupSchedule time.Time     `json:"pickupSchedule" bson:"pickupSchedule"`
	Status         ParcelStatus  `json:"status" bson:"status"`
	AssignedAgent  string        `json:"assignedAgent,omitempty" bson:"assignedAgent,omitempty"`
	AgentLocation  *Location     `json:"agentLocation,omitempty" bson:"agentLocation,omitempty"`
	CreatedAt      time.Time     `json:"created_at" bson:"createdAt"`
	UpdatedAt      time.Time     `json:"updated_at" bson:"updatedAt"`
}
