package realtime

// RoomID identifies a broadcast group. A room exists implicitly while it has
// at least one member; there is no persistent room table.
type RoomID string

// TrackingRoom is the room for subscribers of a single parcel's tracking id.
func TrackingRoom(trackingID string) RoomID {
	return RoomID("tracking_" + trackingID)
}

// AgentRoom is an agent's personal room, auto-joined at admission so that
// future agent-directed events (assignment notices) have a stable target.
func AgentRoom(agentID string) RoomID {
	return RoomID("agent_" + agentID)
}
