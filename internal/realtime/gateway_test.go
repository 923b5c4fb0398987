package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/parceltrack/courier-system/internal/core/domain"
)

type gatewayFixture struct {
	users    *stubUserLookup
	store    *stubParcelStore
	presence *stubPresence
	registry *Registry
	gateway  *Gateway
	server   *httptest.Server
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	users := newStubUserLookup()
	store := newStubParcelStore()
	presence := newStubPresence()
	registry := NewRegistry(zerolog.Nop())
	hub := NewHub(registry, 2, zerolog.Nop())
	hub.Start(ctx)
	handlers := NewHandlers(store, presence, registry, hub, zerolog.Nop())
	verifier := NewVerifier("secret", users)
	gateway := NewGateway(verifier, registry, handlers, presence, Config{SendBuffer: 16}, zerolog.Nop())

	e := echo.New()
	e.GET("/ws", gateway.Handle)
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &gatewayFixture{
		users:    users,
		store:    store,
		presence: presence,
		registry: registry,
		gateway:  gateway,
		server:   server,
	}
}

func (f *gatewayFixture) wsURL() string {
	return "ws://" + strings.TrimPrefix(f.server.URL, "http://") + "/ws"
}

func (f *gatewayFixture) dial(t *testing.T, token string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	header := http.Header{}
	if token != "" {
		header.Set("Cookie", (&http.Cookie{Name: "token", Value: token}).String())
	}
	conn, _, err := websocket.Dial(ctx, f.wsURL(), &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, event string, payload any) {
	t.Helper()
	data, _ := json.Marshal(payload)
	frame, _ := json.Marshal(Envelope{Event: event, Data: data})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, frame, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		t.Fatalf("decode frame %q: %v", frame, err)
	}
	return env
}

func TestGateway_RejectsHandshakeWithoutCookie(t *testing.T) {
	f := newGatewayFixture(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, resp, err := websocket.Dial(ctx, f.wsURL(), nil)
	if err == nil {
		t.Fatalf("handshake without cookie should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
	if f.registry.Len() != 0 {
		t.Fatalf("rejected handshake must not touch the registry")
	}
}

func TestGateway_RejectsTamperedToken(t *testing.T) {
	f := newGatewayFixture(t)
	f.users.seed("cust_1", domain.RoleCustomer)

	token := signToken(t, "wrong-secret", "cust_1", domain.RoleCustomer, time.Now().Add(time.Hour))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	header := http.Header{}
	header.Set("Cookie", (&http.Cookie{Name: "token", Value: token}).String())
	_, resp, err := websocket.Dial(ctx, f.wsURL(), &websocket.DialOptions{HTTPHeader: header})
	if err == nil {
		t.Fatalf("handshake with a tampered token should fail")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 response, got %+v", resp)
	}
}

func TestGateway_TrackParcelOverLiveConnection(t *testing.T) {
	f := newGatewayFixture(t)
	f.users.seed("cust_1", domain.RoleCustomer)
	f.store.seed("P1", "trkId123ABCD", "", domain.StatusPending)

	token := signToken(t, "secret", "cust_1", domain.RoleCustomer, time.Now().Add(time.Hour))
	conn := f.dial(t, token)

	waitFor(t, 2*time.Second, func() bool { return f.registry.Len() == 1 })

	sendEvent(t, conn, EventTrackParcel, trackParcelPayload{TrackingID: "trkId123ABCD"})

	env := readEvent(t, conn)
	if env.Event != EventParcelData {
		t.Fatalf("expected parcel_data, got %s", env.Event)
	}
	var snap parcelSnapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.TrackingID != "trkId123ABCD" || snap.Status != domain.StatusPending {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}

func TestGateway_AgentPresenceLifecycle(t *testing.T) {
	f := newGatewayFixture(t)
	f.users.seed("agent_1", domain.RoleAgent)

	token := signToken(t, "secret", "agent_1", domain.RoleAgent, time.Now().Add(time.Hour))
	conn := f.dial(t, token)

	waitFor(t, 2*time.Second, func() bool {
		online, _ := f.presence.IsOnline(context.Background(), "agent_1")
		return online
	})

	// Agents are joined to their personal room at admission.
	if got := len(f.registry.MembersOf(AgentRoom("agent_1"))); got != 1 {
		t.Fatalf("agent not in personal room, members=%d", got)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	waitFor(t, 2*time.Second, func() bool { return f.registry.Len() == 0 })
	waitFor(t, 2*time.Second, func() bool {
		online, _ := f.presence.IsOnline(context.Background(), "agent_1")
		return !online
	})
}

func TestGateway_DisconnectCleansUpRooms(t *testing.T) {
	f := newGatewayFixture(t)
	f.users.seed("cust_1", domain.RoleCustomer)
	f.store.seed("P1", "trkId123ABCD", "", domain.StatusPending)

	token := signToken(t, "secret", "cust_1", domain.RoleCustomer, time.Now().Add(time.Hour))
	conn := f.dial(t, token)

	sendEvent(t, conn, EventTrackParcel, trackParcelPayload{TrackingID: "trkId123ABCD"})
	_ = readEvent(t, conn) // parcel_data

	if got := len(f.registry.MembersOf(TrackingRoom("trkId123ABCD"))); got != 1 {
		t.Fatalf("expected 1 room member, got %d", got)
	}

	_ = conn.Close(websocket.StatusNormalClosure, "bye")

	waitFor(t, 2*time.Second, func() bool {
		return len(f.registry.MembersOf(TrackingRoom("trkId123ABCD"))) == 0
	})
}
