package realtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stub connection
// ---------------------------------------------------------------------------

type stubConn struct {
	id        uuid.UUID
	principal Principal

	mu     sync.Mutex
	frames [][]byte
	full   bool
	killed bool
	reason string
}

func newStubConn(subjectID, role string) *stubConn {
	return &stubConn{id: uuid.New(), principal: Principal{SubjectID: subjectID, Role: role}}
}

func (c *stubConn) ID() uuid.UUID        { return c.id }
func (c *stubConn) Principal() Principal { return c.principal }

func (c *stubConn) Enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.frames = append(c.frames, frame)
	return true
}

func (c *stubConn) Kill(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.killed = true
	c.reason = reason
}

func (c *stubConn) frameCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}

func (c *stubConn) wasKilled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.killed
}

// events decodes every received frame into envelopes.
func (c *stubConn) events(t *testing.T) []Envelope {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Envelope, 0, len(c.frames))
	for _, f := range c.frames {
		var env Envelope
		if err := json.Unmarshal(f, &env); err != nil {
			t.Fatalf("undecodable frame %q: %v", f, err)
		}
		out = append(out, env)
	}
	return out
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestRegistry_AdmitAutoJoinsAgentRoom(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	agent := newStubConn("agent_1", domain.RoleAgent)

	reg.Admit(agent)

	members := reg.MembersOf(AgentRoom("agent_1"))
	if len(members) != 1 || members[0].ID() != agent.ID() {
		t.Fatalf("agent not auto-joined to personal room: %v", members)
	}
}

func TestRegistry_AdmitDoesNotAutoJoinCustomers(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	cust := newStubConn("cust_1", domain.RoleCustomer)

	reg.Admit(cust)

	if rooms := reg.Rooms(cust.ID()); len(rooms) != 0 {
		t.Fatalf("customer should join no rooms at admission, got %v", rooms)
	}
}

func TestRegistry_JoinLeaveIdempotent(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	conn := newStubConn("cust_1", domain.RoleCustomer)
	reg.Admit(conn)

	room := TrackingRoom("trkId123ABCD")

	// Double join keeps exactly one membership.
	reg.Join(conn.ID(), room)
	reg.Join(conn.ID(), room)
	if got := len(reg.MembersOf(room)); got != 1 {
		t.Fatalf("expected 1 member after double join, got %d", got)
	}

	// Leave twice, including once when already absent.
	reg.Leave(conn.ID(), room)
	reg.Leave(conn.ID(), room)
	if got := len(reg.MembersOf(room)); got != 0 {
		t.Fatalf("expected 0 members after leave, got %d", got)
	}

	// Leaving a room never joined is a no-op.
	reg.Leave(conn.ID(), TrackingRoom("other"))
}

func TestRegistry_JoinAfterRemoveIsNoOp(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	conn := newStubConn("cust_1", domain.RoleCustomer)
	reg.Admit(conn)
	reg.Remove(conn.ID())

	reg.Join(conn.ID(), TrackingRoom("trkId123ABCD"))
	if got := len(reg.MembersOf(TrackingRoom("trkId123ABCD"))); got != 0 {
		t.Fatalf("join after remove should not register membership, got %d members", got)
	}
}

func TestRegistry_RemovePurgesAllRooms(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	agent := newStubConn("agent_1", domain.RoleAgent)
	reg.Admit(agent)

	rooms := []RoomID{TrackingRoom("t1"), TrackingRoom("t2"), TrackingRoom("t3")}
	for _, room := range rooms {
		reg.Join(agent.ID(), room)
	}

	reg.Remove(agent.ID())

	for _, room := range append(rooms, AgentRoom("agent_1")) {
		if got := len(reg.MembersOf(room)); got != 0 {
			t.Errorf("room %s still has %d members after remove", room, got)
		}
	}
	if reg.Len() != 0 {
		t.Errorf("registry still tracks %d connections", reg.Len())
	}
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	conn := newStubConn("cust_1", domain.RoleCustomer)
	reg.Admit(conn)

	reg.Remove(conn.ID())
	reg.Remove(conn.ID())
}

func TestRegistry_MembersOfSnapshotIsStable(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	a := newStubConn("a", domain.RoleCustomer)
	b := newStubConn("b", domain.RoleCustomer)
	reg.Admit(a)
	reg.Admit(b)

	room := TrackingRoom("trkId123ABCD")
	reg.Join(a.ID(), room)
	reg.Join(b.ID(), room)

	snapshot := reg.MembersOf(room)
	reg.Remove(a.ID())

	// The earlier snapshot is unaffected by the removal.
	if len(snapshot) != 2 {
		t.Fatalf("snapshot mutated by concurrent remove: %d members", len(snapshot))
	}
	if got := len(reg.MembersOf(room)); got != 1 {
		t.Fatalf("expected 1 member after remove, got %d", got)
	}
}

func TestRegistry_ConcurrentJoinLeaveRemove(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	room := TrackingRoom("trkId123ABCD")

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		conn := newStubConn("cust", domain.RoleCustomer)
		reg.Admit(conn)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				reg.Join(conn.ID(), room)
				_ = reg.MembersOf(room)
				reg.Leave(conn.ID(), room)
			}
			reg.Remove(conn.ID())
		}()
	}
	wg.Wait()

	if got := len(reg.MembersOf(room)); got != 0 {
		t.Fatalf("expected empty room after teardown, got %d members", got)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry, got %d connections", reg.Len())
	}
}
