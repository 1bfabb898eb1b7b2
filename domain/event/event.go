// Package event defines the wire-level events exchanged with connected
// clients. Events are immutable and carry their own JSON shape.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind discriminates event payloads inside the wire envelope.
type Kind string

const (
	// Server to client.
	KindMessageReceived Kind = "message-received"
	KindPeerOnline      Kind = "peer-online"
	KindPeerOffline     Kind = "peer-offline"
	KindRoster          Kind = "roster"

	// Client to server.
	KindSendMessage Kind = "send-message"
)

// Event is anything that can travel through the real-time channel.
type Event interface {
	EventKind() Kind
}

// MessageReceived is broadcast to every live connection, sender included.
// The sender has no separate acknowledgment; seeing its own broadcast is
// the confirmation that the message went through.
type MessageReceived struct {
	ID          uuid.UUID `json:"id"`
	Content     string    `json:"content"`
	AuthorID    string    `json:"authorId"`
	AuthorEmail string    `json:"authorEmail"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (MessageReceived) EventKind() Kind { return KindMessageReceived }

// PeerOnline announces the offline to online transition of an identity.
type PeerOnline struct {
	IdentityID string `json:"identityId"`
}

func (PeerOnline) EventKind() Kind { return KindPeerOnline }

// PeerOffline announces the online to offline transition of an identity.
type PeerOffline struct {
	IdentityID string `json:"identityId"`
}

func (PeerOffline) EventKind() Kind { return KindPeerOffline }

// Roster is sent once to a freshly authenticated connection and lists the
// identities online at that instant, the new connection excluded.
type Roster struct {
	IdentityIDs []string `json:"identityIds"`
}

func (Roster) EventKind() Kind { return KindRoster }

// SendMessage is the only inbound event kind.
type SendMessage struct {
	Content string `json:"content"`
}

func (SendMessage) EventKind() Kind { return KindSendMessage }
