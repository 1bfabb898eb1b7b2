package auth

import (
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/abdullayevf/chat-app/errors"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier adapts the token manager to the handshake contract. It maps JWT
// library failures to the three rejection categories the wire protocol
// distinguishes.
type Verifier struct {
	tokens TokenManager
}

func NewVerifier(tokens TokenManager) Verifier {
	return Verifier{tokens: tokens}
}

// Verify validates a bearer credential and returns the subject id it was
// issued for.
func (v Verifier) Verify(credential string) (string, error) {
	if strings.TrimSpace(credential) == "" {
		return "", errors.ErrMissingCredential
	}

	claims, err := v.tokens.Validate(credential)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: %v", errors.ErrExpiredCredential, err)
		}
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidCredential, err)
	}
	if claims.UserID == "" {
		return "", fmt.Errorf("%w: token has no subject", errors.ErrInvalidCredential)
	}
	return claims.UserID, nil
}
