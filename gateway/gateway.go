// Package gateway owns the authenticated websocket connection lifecycle:
// handshake, registration into presence, and exactly-once teardown.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/abdullayevf/chat-app/broadcast"
	"github.com/abdullayevf/chat-app/contract"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/abdullayevf/chat-app/observability"
	"github.com/gorilla/websocket"
)

type Gateway struct {
	log            *slog.Logger
	engine         *broadcast.Engine
	verifier       contract.CredentialVerifier
	resolver       contract.IdentityResolver
	stats          *observability.Stats
	upgrader       websocket.Upgrader
	sendBufferSize int
	writeTimeout   time.Duration
}

// NewGateway wires the handshake collaborators. With an empty allowedOrigin
// every origin is accepted, which is only suitable for local development.
func NewGateway(
	log *slog.Logger,
	engine *broadcast.Engine,
	verifier contract.CredentialVerifier,
	resolver contract.IdentityResolver,
	stats *observability.Stats,
	sendBufferSize int,
	writeTimeout time.Duration,
	allowedOrigin string,
) *Gateway {
	return &Gateway{
		log:      log,
		engine:   engine,
		verifier: verifier,
		resolver: resolver,
		stats:    stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigin),
		},
		sendBufferSize: sendBufferSize,
		writeTimeout:   writeTimeout,
	}
}

// HandleWebSocket runs the per-connection state machine. The credential
// travels out-of-band (Authorization header, or a token query parameter for
// browser clients that cannot set headers on websocket dials). Both
// verification and identity resolution happen before the protocol upgrade,
// so a rejected client never becomes visible in presence and receives a
// plain HTTP error carrying the rejection reason.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	credential := extractCredential(r)

	subjectID, err := g.verifier.Verify(credential)
	if err != nil {
		g.reject(w, http.StatusUnauthorized, err)
		return
	}

	identity, err := g.resolver.Resolve(subjectID)
	if err != nil {
		// The subject vanished between token issuance and now. Nothing
		// else observes this attempt.
		g.reject(w, http.StatusUnauthorized, errors.ErrIdentityMissing)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Debug("Websocket upgrade failed", "error", err)
		return
	}

	session := newSession(g.log, conn, g.engine, identity, g.sendBufferSize, g.writeTimeout)
	g.engine.Join(r.Context(), identity, session)

	go session.writePump()
	go session.readPump()
}

func (g *Gateway) reject(w http.ResponseWriter, status int, err error) {
	g.stats.IncrHandshakesRejected()
	g.log.Info("Handshake rejected", "reason", errors.RejectionReason(err))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": errors.RejectionReason(err),
	})
}

// extractCredential reads the bearer credential from the Authorization
// header first, then from the token query parameter.
func extractCredential(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header != "" {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

func originChecker(allowedOrigin string) func(r *http.Request) bool {
	if allowedOrigin == "" {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		return r.Header.Get("Origin") == allowedOrigin
	}
}
