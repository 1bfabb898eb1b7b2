// Package client is a small WebSocket client for the chat server with a
// typed subscription API, meant for terminal tools and integration tests.
package client

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/abdullayevf/chat-app/domain/event"
	"github.com/gorilla/websocket"
)

// Handler receives one decoded server event.
type Handler func(event.Event)

// Subscription detaches a handler when canceled. Cancel is idempotent.
type Subscription struct {
	once   sync.Once
	cancel func()
}

func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

type Client struct {
	log  *slog.Logger
	conn *websocket.Conn

	writeMu sync.Mutex

	subMu    sync.Mutex
	nextID   int
	handlers map[event.Kind]map[int]Handler
}

// Dial connects to the server's /ws endpoint, authenticating with the
// bearer token.
func Dial(ctx context.Context, url, token string, log *slog.Logger) (*Client, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, url, header)
	if err != nil {
		return nil, err
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	return &Client{
		log:      log,
		conn:     conn,
		handlers: make(map[event.Kind]map[int]Handler),
	}, nil
}

// Subscribe registers a handler for one event kind. Handlers run on the
// Listen goroutine, so they must not block.
func (c *Client) Subscribe(kind event.Kind, handler Handler) *Subscription {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	if c.handlers[kind] == nil {
		c.handlers[kind] = make(map[int]Handler)
	}
	id := c.nextID
	c.nextID++
	c.handlers[kind][id] = handler

	return &Subscription{cancel: func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.handlers[kind], id)
	}}
}

// Listen reads server frames and dispatches them to subscribers until the
// connection drops or ctx is canceled.
func (c *Client) Listen(ctx context.Context) error {
	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		evt, err := event.Decode(payload)
		if err != nil {
			c.log.Debug("Ignoring unknown frame", "error", err)
			continue
		}
		c.dispatch(evt)
	}
}

func (c *Client) dispatch(evt event.Event) {
	c.subMu.Lock()
	handlers := make([]Handler, 0, len(c.handlers[evt.EventKind()]))
	for _, h := range c.handlers[evt.EventKind()] {
		handlers = append(handlers, h)
	}
	c.subMu.Unlock()

	for _, h := range handlers {
		h(evt)
	}
}

// Send publishes one chat message.
func (c *Client) Send(content string) error {
	payload, err := event.Encode(event.SendMessage{Content: content})
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	c.writeMu.Unlock()
	return c.conn.Close()
}
