package realtime

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/parceltrack/courier-system/internal/api/metrics"
	"github.com/parceltrack/courier-system/internal/core/domain"
	"github.com/parceltrack/courier-system/internal/core/ports"
)

// tokenCookie is the session cookie issued by the REST login endpoint. The
// channel has no credential issuance path of its own.
const tokenCookie = "token"

// Config tunes per-connection behaviour of the gateway.
type Config struct {
	// ReadTimeout bounds the wait for the next inbound frame. Zero disables
	// the deadline.
	ReadTimeout time.Duration
	// SendBuffer is the depth of each connection's outbound queue.
	SendBuffer int
}

// Gateway orchestrates the connection lifecycle: handshake → authenticate →
// admit → dispatch loop → cleanup. Once a connection reaches the registry,
// every exit path runs Remove exactly once.
type Gateway struct {
	verifier *Verifier
	registry *Registry
	handlers *Handlers
	presence ports.AgentPresence
	cfg      Config
	logger   zerolog.Logger
}

func NewGateway(verifier *Verifier, registry *Registry, handlers *Handlers, presence ports.AgentPresence, cfg Config, logger zerolog.Logger) *Gateway {
	return &Gateway{
		verifier: verifier,
		registry: registry,
		handlers: handlers,
		presence: presence,
		cfg:      cfg,
		logger:   logger.With().Str("component", "gateway").Logger(),
	}
}

// Handle upgrades GET /ws. Authentication happens before the upgrade: a
// rejected handshake is answered with 401 and the websocket never opens, so
// no registry entry exists to clean up.
func (g *Gateway) Handle(c echo.Context) error {
	req := c.Request()

	principal, err := g.verifier.Verify(req.Context(), cookieToken(req))
	if err != nil {
		reason := AuthFailureReason(err)
		metrics.WSAuthFailuresTotal.WithLabelValues(reason).Inc()
		g.logger.Warn().Str("reason", reason).Str("remote", c.RealIP()).Msg("handshake rejected")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}

	ws, err := websocket.Accept(c.Response(), req, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		g.logger.Error().Err(err).Msg("websocket accept failed")
		return nil
	}

	sess := NewSession(req.Context(), principal, ws, g.cfg.SendBuffer, g.cfg.ReadTimeout, g.logger)
	g.registry.Admit(sess)
	metrics.WSConnectionsActive.Inc()
	if principal.Role == domain.RoleAgent {
		if err := g.presence.MarkOnline(req.Context(), principal.SubjectID); err != nil {
			g.logger.Warn().Err(err).Str("agent_id", principal.SubjectID).Msg("presence mark-online failed")
		}
	}

	defer func() {
		g.registry.Remove(sess.ID())
		metrics.WSConnectionsActive.Dec()
		if principal.Role == domain.RoleAgent {
			// The request context is already cancelled at this point; the
			// cleanup call needs its own.
			offCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := g.presence.MarkOffline(offCtx, principal.SubjectID); err != nil {
				g.logger.Warn().Err(err).Str("agent_id", principal.SubjectID).Msg("presence mark-offline failed")
			}
		}
		sess.Kill("connection closed")
	}()

	go sess.WritePump()
	sess.ReadLoop(g.handlers.Dispatch)
	return nil
}

// Shutdown kills every admitted connection. Each connection's own read loop
// unwinds and performs its registry cleanup.
func (g *Gateway) Shutdown(reason string) {
	for _, conn := range g.registry.All() {
		conn.Kill(reason)
	}
}

func cookieToken(req *http.Request) string {
	cookie, err := req.Cookie(tokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
