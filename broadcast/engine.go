// Package broadcast validates, persists and fans out chat messages, and
// announces presence transitions to connected peers.
package broadcast

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/abadojack/whatlanggo"
	"github.com/abdullayevf/chat-app/contract"
	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/domain/event"
	"github.com/abdullayevf/chat-app/moderation"
	"github.com/abdullayevf/chat-app/observability"
	"github.com/abdullayevf/chat-app/repositories"
	"github.com/google/uuid"
)

// Engine owns the registry write path. Join and Leave serialize on a single
// mutex so that, for any observer, a peer-online announcement and the
// roster it implies can never contradict each other: an identity either
// appears in both or in neither.
type Engine struct {
	mu          sync.Mutex // serializes Join/Leave, see type comment
	log         *slog.Logger
	registry    contract.IRegistry
	messages    repositories.IMessageRepository
	moderator   *moderation.Moderator
	stats       *observability.Stats
	sinkTimeout time.Duration
}

func NewEngine(
	log *slog.Logger,
	registry contract.IRegistry,
	messages repositories.IMessageRepository,
	moderator *moderation.Moderator,
	stats *observability.Stats,
	sinkTimeout time.Duration,
) *Engine {
	return &Engine{
		log:         log,
		registry:    registry,
		messages:    messages,
		moderator:   moderator,
		stats:       stats,
		sinkTimeout: sinkTimeout,
	}
}

// Join registers a freshly authenticated connection, announces the
// identity to every other live connection if it just came online, and
// hands the new connection its roster snapshot. The registry update and
// both announcements happen under the join/leave lock so presence ordering
// stays monotonic per identity.
func (e *Engine) Join(ctx context.Context, identity domain.Identity, sink contract.EventSink) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wentOnline := e.registry.Register(identity, sink)
	if wentOnline {
		for _, peer := range e.registry.AllSinks() {
			if peer == sink {
				continue
			}
			e.deliver(ctx, peer, event.PeerOnline{IdentityID: identity.ID})
		}
	}

	roster := make([]string, 0)
	for _, id := range e.registry.Snapshot() {
		if id == identity.ID {
			continue
		}
		roster = append(roster, id)
	}
	e.deliver(ctx, sink, event.Roster{IdentityIDs: roster})

	e.stats.IncrConnectionsOpened()
	e.log.Info("Connection joined", "identity", identity.ID, "went_online", wentOnline)
}

// Leave removes a connection handle. Only when the last handle of the
// identity is gone does an offline announcement go out, so closing one of
// several tabs stays invisible to peers. Leave is idempotent per handle:
// the registry reports the transition at most once.
func (e *Engine) Leave(ctx context.Context, identity domain.Identity, sink contract.EventSink) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wentOffline := e.registry.Unregister(identity, sink)
	if wentOffline {
		for _, peer := range e.registry.AllSinks() {
			e.deliver(ctx, peer, event.PeerOffline{IdentityID: identity.ID})
		}
	}

	e.stats.IncrConnectionsClosed()
	e.log.Info("Connection left", "identity", identity.ID, "went_offline", wentOffline)
}

// Submit handles an inbound send intent from an authenticated connection.
// Invalid content is dropped without any error event back to the sender;
// that mirrors the documented behavior of the protocol. A persisted message
// is broadcast to every live handle, the sender's included.
func (e *Engine) Submit(ctx context.Context, author domain.Identity, rawContent string) {
	content, err := domain.NormalizeContent(rawContent)
	if err != nil {
		e.stats.IncrMessagesDropped()
		e.log.Debug("Dropping invalid message", "author", author.ID, "reason", err)
		return
	}

	if e.moderator != nil {
		censored, found := e.moderator.Censor(content)
		if len(found) > 0 {
			e.log.Warn("Message censored", "author", author.ID, "matches", len(found))
		}
		content = censored
	}

	info := whatlanggo.Detect(content)
	message := domain.Message{
		ID:          uuid.New(),
		AuthorID:    author.ID,
		AuthorEmail: author.Email,
		Content:     content,
		Lang:        info.Lang.Iso6391(),
		CreatedAt:   time.Now().UTC(),
	}

	// Persistence comes first, unconditionally of delivery outcome.
	if err := e.messages.Append(message); err != nil {
		e.stats.IncrPersistenceFailures()
		e.log.Error("Message persistence failed, not broadcasting",
			"author", author.ID,
			"message_id", message.ID,
			"error", err)
		return
	}

	e.fanout(ctx, event.MessageReceived{
		ID:          message.ID,
		Content:     message.Content,
		AuthorID:    message.AuthorID,
		AuthorEmail: message.AuthorEmail,
		CreatedAt:   message.CreatedAt,
	})
	e.stats.IncrMessagesBroadcast()
}

// fanout delivers one event to every live handle, best effort per handle.
func (e *Engine) fanout(ctx context.Context, evt event.Event) {
	for _, sink := range e.registry.AllSinks() {
		e.deliver(ctx, sink, evt)
	}
}

// deliver pushes an event into a single sink. A slow or dead sink fails
// alone: the error is counted and logged, never propagated.
func (e *Engine) deliver(ctx context.Context, sink contract.EventSink, evt event.Event) {
	deliveryCtx, cancel := context.WithTimeout(ctx, e.sinkTimeout)
	defer cancel()

	if err := sink.Consume(deliveryCtx, evt); err != nil {
		e.stats.IncrDeliveryFailures()
		e.log.Debug("Event delivery failed", "kind", evt.EventKind(), "error", err)
	}
}
