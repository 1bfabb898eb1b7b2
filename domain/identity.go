// Package domain contains core concepts of the chat system.
// No runtime, network, or UI logic should be added here.
package domain

// Identity is a resolved, authenticated user bound to a connection.
// It is resolved once during the handshake and never changes for the
// lifetime of that connection.
type Identity struct {
	ID    string
	Email string
}
