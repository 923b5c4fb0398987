package realtime

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/parceltrack/courier-system/internal/api/metrics"
	"github.com/parceltrack/courier-system/internal/infrastructure/queue"
)

// Hub is the room router: it resolves a room to its current member set and
// fans an event out to every member. Publishes for the same room are
// serialised by the sharded dispatcher, so per-room delivery order matches
// publish order. Delivery to an individual member is best-effort: a member
// whose outbound queue is full is disconnected rather than allowed to stall
// the rest of the room.
type Hub struct {
	registry *Registry
	dispatch *queue.Dispatcher
	logger   zerolog.Logger
}

func NewHub(registry *Registry, workers int, logger zerolog.Logger) *Hub {
	h := &Hub{
		registry: registry,
		logger:   logger.With().Str("component", "hub").Logger(),
	}
	h.dispatch = queue.NewDispatcher(workers, h.deliver, h.logger)
	return h
}

// Start launches the dispatcher workers. Fan-out stops when ctx is cancelled.
func (h *Hub) Start(ctx context.Context) {
	h.dispatch.Start(ctx)
}

// Publish delivers the event to every member of room as of the moment the
// dispatcher processes it. Events from a single source reach all members in
// the order they were published.
func (h *Hub) Publish(room RoomID, event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("failed to encode broadcast")
		return
	}
	metrics.WSBroadcastsTotal.WithLabelValues(event).Inc()
	h.dispatch.Enqueue(queue.Broadcast{Room: string(room), Event: event, Frame: frame})
}

// deliver snapshots the room membership and enqueues the frame on every
// member. A member that disconnected after the snapshot absorbs the frame
// silently; a member with a full queue is killed.
func (h *Hub) deliver(b queue.Broadcast) {
	for _, member := range h.registry.MembersOf(RoomID(b.Room)) {
		if !member.Enqueue(b.Frame) {
			metrics.WSSendQueueDropsTotal.Inc()
			h.logger.Warn().
				Str("conn_id", member.ID().String()).
				Str("room", b.Room).
				Msg("outbound queue overflow, disconnecting member")
			member.Kill("send queue overflow")
		}
	}
}
