// Package observability aggregates runtime counters for the chat server.
package observability

import (
	"sync/atomic"
	"time"
)

// Stats collects cheap atomic counters from the hot paths. A snapshot is
// periodically logged by the stats worker and exposed on the debug
// inspector.
type Stats struct {
	startedAt time.Time

	connectionsOpened   atomic.Uint64
	connectionsClosed   atomic.Uint64
	handshakesRejected  atomic.Uint64
	messagesBroadcast   atomic.Uint64
	messagesDropped     atomic.Uint64
	persistenceFailures atomic.Uint64
	deliveryFailures    atomic.Uint64
}

func NewStats() *Stats {
	return &Stats{startedAt: time.Now()}
}

func (s *Stats) IncrConnectionsOpened()   { s.connectionsOpened.Add(1) }
func (s *Stats) IncrConnectionsClosed()   { s.connectionsClosed.Add(1) }
func (s *Stats) IncrHandshakesRejected()  { s.handshakesRejected.Add(1) }
func (s *Stats) IncrMessagesBroadcast()   { s.messagesBroadcast.Add(1) }
func (s *Stats) IncrMessagesDropped()     { s.messagesDropped.Add(1) }
func (s *Stats) IncrPersistenceFailures() { s.persistenceFailures.Add(1) }
func (s *Stats) IncrDeliveryFailures()    { s.deliveryFailures.Add(1) }

func (s *Stats) MessagesBroadcast() uint64 { return s.messagesBroadcast.Load() }
func (s *Stats) MessagesDropped() uint64   { return s.messagesDropped.Load() }
func (s *Stats) DeliveryFailures() uint64  { return s.deliveryFailures.Load() }

// Snapshot returns the counters in a loggable, template-friendly form.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"uptime":               time.Since(s.startedAt).Round(time.Second).String(),
		"connections_opened":   s.connectionsOpened.Load(),
		"connections_closed":   s.connectionsClosed.Load(),
		"handshakes_rejected":  s.handshakesRejected.Load(),
		"messages_broadcast":   s.messagesBroadcast.Load(),
		"messages_dropped":     s.messagesDropped.Load(),
		"persistence_failures": s.persistenceFailures.Load(),
		"delivery_failures":    s.deliveryFailures.Load(),
	}
}
