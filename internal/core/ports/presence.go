package ports

import "context"

// AgentPresence tracks which delivery agents currently hold a live realtime
// connection. Entries expire on their own; Refresh extends the lease.
type AgentPresence interface {
	MarkOnline(ctx context.Context, agentID string) error
	Refresh(ctx context.Context, agentID string) error
	MarkOffline(ctx context.Context, agentID string) error
	IsOnline(ctx context.Context, agentID string) (bool, error)
}
