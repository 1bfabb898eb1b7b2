package event

import (
	"encoding/json"
	"fmt"
)

// envelope is the JSON frame carried over the websocket in both directions.
type envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps an event into its wire envelope.
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: e.EventKind(), Payload: payload})
}

// Decode parses a wire frame back into a typed event.
func Decode(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("malformed envelope: %w", err)
	}

	var e Event
	switch env.Type {
	case KindMessageReceived:
		e = &MessageReceived{}
	case KindPeerOnline:
		e = &PeerOnline{}
	case KindPeerOffline:
		e = &PeerOffline{}
	case KindRoster:
		e = &Roster{}
	case KindSendMessage:
		e = &SendMessage{}
	default:
		return nil, fmt.Errorf("unknown event kind %q", env.Type)
	}

	if err := json.Unmarshal(env.Payload, e); err != nil {
		return nil, fmt.Errorf("malformed %s payload: %w", env.Type, err)
	}
	return deref(e), nil
}

// deref returns the value form so consumers can type-switch on concrete
// structs instead of pointers.
func deref(e Event) Event {
	switch v := e.(type) {
	case *MessageReceived:
		return *v
	case *PeerOnline:
		return *v
	case *PeerOffline:
		return *v
	case *Roster:
		return *v
	case *SendMessage:
		return *v
	default:
		return e
	}
}
