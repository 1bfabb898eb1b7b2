package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/abdullayevf/chat-app/contract"
)

type contextKey string

// UserIDKey carries the authenticated subject id through request contexts.
const UserIDKey contextKey = "user_id"

// Authenticate validates the bearer token on protected routes and injects
// the subject id into the request context for downstream handlers.
func Authenticate(verifier contract.CredentialVerifier, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1. Retrieve the Authorization header, expecting "Bearer <token>".
		header := r.Header.Get("Authorization")
		if header == "" {
			writeError(w, http.StatusUnauthorized, "authorization token is missing")
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")

		// 2. Validate the credential and extract the subject.
		subjectID, err := verifier.Verify(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		// 3. Continue the chain with the enriched context.
		ctx := context.WithValue(r.Context(), UserIDKey, subjectID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestUserID reads the subject id a passed Authenticate call stored.
func requestUserID(r *http.Request) string {
	id, _ := r.Context().Value(UserIDKey).(string)
	return id
}
