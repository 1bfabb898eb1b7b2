package gateway

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abdullayevf/chat-app/broadcast"
	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/domain/event"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/gorilla/websocket"
)

// maxFrameSize bounds inbound frames. The largest legal message is 1000
// runes of content plus the envelope, so 16KiB leaves comfortable room for
// multi-byte text without letting a client balloon server memory.
const maxFrameSize = 16 * 1024

// session is one established, authenticated connection. It is the
// EventSink handed to the presence registry: Consume feeds the outbound
// channel drained by the write pump, so a slow browser can only ever stall
// itself.
type session struct {
	log      *slog.Logger
	conn     *websocket.Conn
	engine   *broadcast.Engine
	identity domain.Identity

	outbound     chan event.Event
	done         chan struct{}
	closeOnce    sync.Once
	writeTimeout time.Duration
}

func newSession(
	log *slog.Logger,
	conn *websocket.Conn,
	engine *broadcast.Engine,
	identity domain.Identity,
	sendBufferSize int,
	writeTimeout time.Duration,
) *session {
	return &session{
		log:          log,
		conn:         conn,
		engine:       engine,
		identity:     identity,
		outbound:     make(chan event.Event, sendBufferSize),
		done:         make(chan struct{}),
		writeTimeout: writeTimeout,
	}
}

// Consume is called by the broadcast engine during fan-out. It never
// blocks longer than the caller's delivery budget: a full buffer reports
// ErrSendBufferFull and the event is lost for this connection only.
func (s *session) Consume(ctx context.Context, e event.Event) error {
	select {
	case s.outbound <- e:
		return nil
	case <-s.done:
		return errors.ErrSendBufferFull
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSendBufferFull
	}
}

// readPump listens for inbound frames until the client goes away. Whatever
// the cause of exit, teardown runs exactly once.
func (s *session) readPump() {
	defer s.teardown()

	s.conn.SetReadLimit(maxFrameSize)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("Connection read failed", "identity", s.identity.ID, "error", err)
			}
			return
		}

		evt, err := event.Decode(data)
		if err != nil {
			// Malformed frames are ignored, the connection stays open.
			s.log.Debug("Discarding malformed frame", "identity", s.identity.ID, "error", err)
			continue
		}

		if send, ok := evt.(event.SendMessage); ok {
			s.engine.Submit(context.Background(), s.identity, send.Content)
		}
	}
}

// writePump drains the outbound channel back to the browser. Separating
// read and write avoids head-of-line blocking when a browser is slow.
func (s *session) writePump() {
	defer s.teardown()

	for {
		select {
		case evt := <-s.outbound:
			data, err := event.Encode(evt)
			if err != nil {
				s.log.Error("Dropping unencodable event", "kind", evt.EventKind(), "error", err)
				continue
			}
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-s.done:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage, nil)
			return
		}
	}
}

// teardown releases the handle from presence exactly once, whichever pump
// exits first. This is the principal resource-safety invariant of the
// gateway: no double-unregister, no leaked registry entries.
func (s *session) teardown() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.engine.Leave(context.Background(), s.identity, s)
		_ = s.conn.Close()
	})
}
