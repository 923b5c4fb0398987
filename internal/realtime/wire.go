package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

// Inbound event names accepted on the channel.
const (
	EventTrackParcel        = "track_parcel"
	EventStopTracking       = "stop_tracking"
	EventLocationUpdate     = "agent_location_update"
	EventUpdateParcelStatus = "update_parcel_status"
)

// Outbound event names emitted by the channel.
const (
	EventParcelData      = "parcel_data"
	EventAgentLocation   = "agent_location"
	EventStatusUpdate    = "status_update"
	EventLocationUpdated = "location_updated"
	EventStatusUpdated   = "status_updated"
	EventTrackingError   = "tracking_error"
	EventError           = "error"
)

// Envelope is the framing shared by all channel messages: an event name plus
// an event-specific payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// --- Inbound payloads ---

type trackParcelPayload struct {
	TrackingID string `json:"trackingId"`
}

type locationUpdatePayload struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type statusUpdatePayload struct {
	ParcelID string `json:"parcelId"`
	Status   string `json:"status"`
}

// --- Outbound payloads ---

// parcelSnapshot is the full current-state view sent to a subscriber when it
// starts tracking. It doubles as the re-synchronisation mechanism for clients
// that reconnect after missing interim events.
type parcelSnapshot struct {
	TrackingID     string               `json:"trackingId"`
	Status         domain.ParcelStatus  `json:"status"`
	SenderInfo     domain.Address       `json:"senderInfo"`
	ReceiverInfo   domain.Address       `json:"receiverInfo"`
	ParcelDetails  domain.ParcelDetails `json:"parcelDetails"`
	PickupSchedule time.Time            `json:"pickupSchedule"`
	AssignedAgent  string               `json:"assignedAgent,omitempty"`
	AgentLocation  *domain.Location     `json:"agentLocation,omitempty"`
	AgentOnline    bool                 `json:"agentOnline"`
	LastUpdated    time.Time            `json:"lastUpdated"`
}

type agentLocationEvent struct {
	TrackingID    string              `json:"trackingId"`
	AgentLocation domain.Location     `json:"agentLocation"`
	Status        domain.ParcelStatus `json:"status"`
	Timestamp     time.Time           `json:"timestamp"`
}

type statusUpdateEvent struct {
	TrackingID string              `json:"trackingId"`
	Status     domain.ParcelStatus `json:"status"`
	Timestamp  time.Time           `json:"timestamp"`
}

type locationUpdatedAck struct {
	Message  string          `json:"message"`
	Location domain.Location `json:"location"`
}

type statusUpdatedAck struct {
	Message  string              `json:"message"`
	ParcelID string              `json:"parcelId"`
	Status   domain.ParcelStatus `json:"status"`
}

type errorEvent struct {
	Message string `json:"message"`
}

// encodeEvent marshals an event name and payload into a single wire frame.
func encodeEvent(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
