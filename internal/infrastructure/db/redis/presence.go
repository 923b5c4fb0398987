package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const presenceTTL = 90 * time.Second

// AgentPresence tracks agent liveness with expiring Redis keys.
// Key format: presence:agent:<agent_id>
type AgentPresence struct {
	client *redis.Client
}

// NewAgentPresence creates an AgentPresence wrapping the given Redis client.
func NewAgentPresence(client *redis.Client) *AgentPresence {
	return &AgentPresence{client: client}
}

// MarkOnline records that the agent holds a live connection. The entry
// expires after presenceTTL unless refreshed.
func (p *AgentPresence) MarkOnline(ctx context.Context, agentID string) error {
	return p.client.Set(ctx, p.key(agentID), "1", presenceTTL).Err()
}

// Refresh extends the agent's presence lease. Location updates act as the
// heartbeat.
func (p *AgentPresence) Refresh(ctx context.Context, agentID string) error {
	return p.client.Set(ctx, p.key(agentID), "1", presenceTTL).Err()
}

// MarkOffline removes the agent's presence entry immediately.
func (p *AgentPresence) MarkOffline(ctx context.Context, agentID string) error {
	return p.client.Del(ctx, p.key(agentID)).Err()
}

// IsOnline reports whether the agent currently holds an unexpired lease.
func (p *AgentPresence) IsOnline(ctx context.Context, agentID string) (bool, error) {
	n, err := p.client.Exists(ctx, p.key(agentID)).Result()
	if err != nil {
		return false, fmt.Errorf("presence check: %w", err)
	}
	return n > 0, nil
}

func (p *AgentPresence) key(agentID string) string {
	return fmt.Sprintf("presence:agent:%s", agentID)
}
