package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session binds one websocket connection to its authenticated principal and
// owns the two pumps: a read loop that hands inbound frames to the dispatch
// callback one at a time, and a write pump that drains the bounded outbound
// queue. All sends go through Enqueue; the websocket itself is written from
// exactly one goroutine.
type Session struct {
	id        uuid.UUID
	principal Principal
	ws        *websocket.Conn
	send      chan []byte

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	readTimeout time.Duration
	logger      zerolog.Logger
}

// compile-time check that Session satisfies the registry's Conn interface.
var _ Conn = (*Session)(nil)

func NewSession(parent context.Context, principal Principal, ws *websocket.Conn, sendBuffer int, readTimeout time.Duration, logger zerolog.Logger) *Session {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	id := uuid.New()
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		id:          id,
		principal:   principal,
		ws:          ws,
		send:        make(chan []byte, sendBuffer),
		ctx:         ctx,
		cancel:      cancel,
		readTimeout: readTimeout,
		logger:      logger.With().Str("conn_id", id.String()).Str("subject", principal.SubjectID).Logger(),
	}
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

func (s *Session) Principal() Principal {
	return s.principal
}

// Enqueue places a frame on the outbound queue without blocking. A frame
// offered to a session that is already closing is silently skipped (reported
// as delivered); only a genuinely full queue returns false.
func (s *Session) Enqueue(frame []byte) bool {
	select {
	case <-s.ctx.Done():
		return true
	default:
	}
	select {
	case s.send <- frame:
		return true
	case <-s.ctx.Done():
		return true
	default:
		return false
	}
}

// Kill tears the session down: the context cancel unblocks both pumps, the
// read loop returns, and the owner's cleanup path runs.
func (s *Session) Kill(reason string) {
	s.closeOnce.Do(func() {
		s.logger.Info().Str("reason", reason).Msg("closing connection")
		s.cancel()
		_ = s.ws.Close(websocket.StatusNormalClosure, reason)
	})
}

// WritePump drains the outbound queue into the websocket. It exits when the
// session context is cancelled; a write failure kills the session.
func (s *Session) WritePump() {
	for {
		select {
		case frame := <-s.send:
			if err := s.ws.Write(s.ctx, websocket.MessageText, frame); err != nil {
				s.Kill("write failed")
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// ReadLoop reads inbound frames sequentially and hands each to dispatch.
// No two frames from the same connection are ever processed concurrently.
// It returns when the peer disconnects, a read fails, or the session is
// killed.
func (s *Session) ReadLoop(dispatch func(ctx context.Context, sess Conn, frame []byte)) {
	for {
		readCtx := s.ctx
		var cancelRead context.CancelFunc
		if s.readTimeout > 0 {
			readCtx, cancelRead = context.WithTimeout(s.ctx, s.readTimeout)
		}

		typ, frame, err := s.ws.Read(readCtx)
		if cancelRead != nil {
			cancelRead()
		}
		if err != nil {
			return
		}
		if typ != websocket.MessageText && typ != websocket.MessageBinary {
			continue
		}
		dispatch(s.ctx, s, frame)
	}
}
