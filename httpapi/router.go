package httpapi

import (
	"net/http"

	"github.com/abdullayevf/chat-app/contract"
	"github.com/abdullayevf/chat-app/gateway"
	"github.com/gorilla/mux"
)

// NewRouter assembles the public HTTP surface: account endpoints, message
// history, the WebSocket upgrade path and a liveness probe.
func NewRouter(handler *Handler, gw *gateway.Gateway, verifier contract.CredentialVerifier) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/auth/register", handler.Register).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", handler.Login).Methods(http.MethodPost)
	router.Handle("/api/auth/account",
		Authenticate(verifier, http.HandlerFunc(handler.DeleteAccount))).Methods(http.MethodDelete)

	router.Handle("/api/messages",
		Authenticate(verifier, http.HandlerFunc(handler.History))).Methods(http.MethodGet)
	router.Handle("/api/messages/{id}",
		Authenticate(verifier, http.HandlerFunc(handler.DeleteMessage))).Methods(http.MethodDelete)

	// The gateway authenticates WebSocket clients itself so browsers can
	// pass the token as a query parameter.
	router.HandleFunc("/ws", gw.HandleWebSocket)

	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return router
}
