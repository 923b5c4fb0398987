package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/parceltrack/courier-system/internal/api/metrics"
	"github.com/parceltrack/courier-system/internal/core/domain"
	"github.com/parceltrack/courier-system/internal/core/ports"
)

// Handlers implements the per-event logic of the tracking channel: validate
// authorisation, touch the parcel store, and hand outbound events to the hub.
// A handler that fails answers the originating connection only; it never
// closes the connection and never broadcasts.
type Handlers struct {
	parcels  ports.ParcelRepository
	presence ports.AgentPresence
	registry *Registry
	hub      *Hub
	logger   zerolog.Logger
}

func NewHandlers(parcels ports.ParcelRepository, presence ports.AgentPresence, registry *Registry, hub *Hub, logger zerolog.Logger) *Handlers {
	return &Handlers{
		parcels:  parcels,
		presence: presence,
		registry: registry,
		hub:      hub,
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
}

// Dispatch decodes an inbound frame and routes it to the matching handler.
// Handlers for one connection run strictly one at a time (the caller is the
// connection's read loop); handlers for different connections run
// concurrently.
func (h *Handlers) Dispatch(ctx context.Context, sess Conn, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		metrics.WSEventsReceivedTotal.WithLabelValues("unknown").Inc()
		h.sendTo(sess, EventError, errorEvent{Message: "Malformed message"})
		return
	}

	switch env.Event {
	case EventTrackParcel, EventStopTracking, EventLocationUpdate, EventUpdateParcelStatus:
		metrics.WSEventsReceivedTotal.WithLabelValues(env.Event).Inc()
	default:
		metrics.WSEventsReceivedTotal.WithLabelValues("unknown").Inc()
		h.sendTo(sess, EventError, errorEvent{Message: "Unknown event"})
		return
	}

	switch env.Event {
	case EventTrackParcel:
		h.handleTrackParcel(ctx, sess, env.Data)
	case EventStopTracking:
		h.handleStopTracking(sess, env.Data)
	case EventLocationUpdate:
		h.handleLocationUpdate(ctx, sess, env.Data)
	case EventUpdateParcelStatus:
		h.handleStatusUpdate(ctx, sess, env.Data)
	}
}

// handleTrackParcel joins the caller to the parcel's tracking room and
// answers with a full current-state snapshot. The snapshot is what
// re-synchronises a client that reconnected after missing interim events.
func (h *Handlers) handleTrackParcel(ctx context.Context, sess Conn, data json.RawMessage) {
	var req trackParcelPayload
	if err := json.Unmarshal(data, &req); err != nil || req.TrackingID == "" {
		h.sendTo(sess, EventTrackingError, errorEvent{Message: "Failed to track parcel"})
		return
	}

	parcel, err := h.parcels.FindByTrackingID(ctx, req.TrackingID)
	if err != nil {
		if errors.Is(err, domain.ErrParcelNotFound) {
			h.sendTo(sess, EventTrackingError, errorEvent{Message: "Parcel not found"})
			return
		}
		h.logger.Error().Err(err).Str("tracking_id", req.TrackingID).Msg("track_parcel store lookup failed")
		h.sendTo(sess, EventTrackingError, errorEvent{Message: "Failed to track parcel"})
		return
	}

	h.registry.Join(sess.ID(), TrackingRoom(req.TrackingID))
	h.sendTo(sess, EventParcelData, h.snapshot(ctx, parcel))
}

// handleStopTracking leaves the tracking room. Leaving a room the caller is
// not in is a no-op.
func (h *Handlers) handleStopTracking(sess Conn, data json.RawMessage) {
	var req trackParcelPayload
	if err := json.Unmarshal(data, &req); err != nil || req.TrackingID == "" {
		return
	}
	h.registry.Leave(sess.ID(), TrackingRoom(req.TrackingID))
}

// handleLocationUpdate persists the agent's latest position on every assigned
// parcel and fans a location event out to each parcel's tracking room.
func (h *Handlers) handleLocationUpdate(ctx context.Context, sess Conn, data json.RawMessage) {
	p := sess.Principal()
	if p.Role != domain.RoleAgent {
		h.sendTo(sess, EventError, errorEvent{Message: "Only agents can update location"})
		return
	}

	var req locationUpdatePayload
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendTo(sess, EventError, errorEvent{Message: "Failed to update location"})
		return
	}
	loc := domain.Location{Lat: req.Lat, Lng: req.Lng}

	if err := h.parcels.SetAgentLocation(ctx, p.SubjectID, loc); err != nil {
		h.logger.Error().Err(err).Str("agent_id", p.SubjectID).Msg("failed to persist agent location")
		h.sendTo(sess, EventError, errorEvent{Message: "Failed to update location"})
		return
	}

	assigned, err := h.parcels.FindAssignedTo(ctx, p.SubjectID)
	if err != nil {
		h.logger.Error().Err(err).Str("agent_id", p.SubjectID).Msg("failed to list assigned parcels")
		h.sendTo(sess, EventError, errorEvent{Message: "Failed to update location"})
		return
	}

	now := time.Now().UTC()
	for _, parcel := range assigned {
		h.hub.Publish(TrackingRoom(parcel.TrackingID), EventAgentLocation, agentLocationEvent{
			TrackingID:    parcel.TrackingID,
			AgentLocation: loc,
			Status:        parcel.Status,
			Timestamp:     now,
		})
	}

	h.refreshPresence(ctx, p.SubjectID)
	h.sendTo(sess, EventLocationUpdated, locationUpdatedAck{
		Message:  "Location updated successfully",
		Location: loc,
	})
}

// handleStatusUpdate persists a new parcel status after checking that the
// caller is the assigned agent, then notifies the tracking room.
func (h *Handlers) handleStatusUpdate(ctx context.Context, sess Conn, data json.RawMessage) {
	p := sess.Principal()
	if p.Role != domain.RoleAgent {
		h.sendTo(sess, EventError, errorEvent{Message: "Only agents can update status"})
		return
	}

	var req statusUpdatePayload
	if err := json.Unmarshal(data, &req); err != nil {
		h.sendTo(sess, EventError, errorEvent{Message: "Failed to update status"})
		return
	}

	status := domain.ParcelStatus(req.Status)
	if !status.IsValid() {
		h.sendTo(sess, EventError, errorEvent{Message: "Invalid status"})
		return
	}

	parcel, err := h.parcels.FindByID(ctx, req.ParcelID)
	if err != nil && !errors.Is(err, domain.ErrParcelNotFound) {
		h.logger.Error().Err(err).Str("parcel_id", req.ParcelID).Msg("status update store lookup failed")
		h.sendTo(sess, EventError, errorEvent{Message: "Failed to update status"})
		return
	}
	// A missing parcel and a foreign parcel answer identically: revealing
	// which ids exist to an unauthorised caller would leak data.
	if parcel == nil || parcel.AssignedAgent != p.SubjectID {
		h.sendTo(sess, EventError, errorEvent{Message: "Unauthorized or parcel not found"})
		return
	}

	updated, err := h.parcels.SetStatus(ctx, req.ParcelID, status)
	if err != nil {
		h.logger.Error().Err(err).Str("parcel_id", req.ParcelID).Msg("failed to persist status")
		h.sendTo(sess, EventError, errorEvent{Message: "Failed to update status"})
		return
	}

	metrics.StatusUpdatesTotal.WithLabelValues(string(status)).Inc()
	h.hub.Publish(TrackingRoom(updated.TrackingID), EventStatusUpdate, statusUpdateEvent{
		TrackingID: updated.TrackingID,
		Status:     updated.Status,
		Timestamp:  time.Now().UTC(),
	})

	h.sendTo(sess, EventStatusUpdated, statusUpdatedAck{
		Message:  "Status updated successfully",
		ParcelID: req.ParcelID,
		Status:   status,
	})
}

// snapshot builds the full-state view of a parcel, including whether the
// assigned agent currently holds a live connection.
func (h *Handlers) snapshot(ctx context.Context, parcel *domain.Parcel) parcelSnapshot {
	online := false
	if parcel.AssignedAgent != "" && h.presence != nil {
		var err error
		online, err = h.presence.IsOnline(ctx, parcel.AssignedAgent)
		if err != nil {
			h.logger.Warn().Err(err).Str("agent_id", parcel.AssignedAgent).Msg("presence check failed")
			online = false
		}
	}

	return parcelSnapshot{
		TrackingID:     parcel.TrackingID,
		Status:         parcel.Status,
		SenderInfo:     parcel.SenderInfo,
		ReceiverInfo:   parcel.ReceiverInfo,
		ParcelDetails:  parcel.Details,
		PickupSchedule: parcel.PickupSchedule,
		AssignedAgent:  parcel.AssignedAgent,
		AgentLocation:  parcel.AgentLocation,
		AgentOnline:    online,
		LastUpdated:    parcel.UpdatedAt,
	}
}

// refreshPresence extends the agent's presence lease. Presence is advisory;
// failures are logged and swallowed.
func (h *Handlers) refreshPresence(ctx context.Context, agentID string) {
	if h.presence == nil {
		return
	}
	if err := h.presence.Refresh(ctx, agentID); err != nil {
		h.logger.Warn().Err(err).Str("agent_id", agentID).Msg("presence refresh failed")
	}
}

// sendTo answers the originating connection only. An overflowing queue is
// handled exactly like the hub handles it.
func (h *Handlers) sendTo(sess Conn, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to encode reply")
		return
	}
	if !sess.Enqueue(frame) {
		metrics.WSSendQueueDropsTotal.Inc()
		sess.Kill("send queue overflow")
	}
}
