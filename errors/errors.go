package errors

import (
	stderrors "errors"
	"fmt"
)

// Handshake failures. Fatal to the connection attempt, never visible to peers.
var (
	ErrMissingCredential = fmt.Errorf("missing credential")
	ErrInvalidCredential = fmt.Errorf("invalid credential")
	ErrExpiredCredential = fmt.Errorf("expired credential")
	ErrIdentityMissing   = fmt.Errorf("identity no longer exists")
)

// Message validation. Rejected messages are dropped, the connection stays open.
var (
	ErrEmptyContent   = fmt.Errorf("message content is empty")
	ErrContentTooLong = fmt.Errorf("message content exceeds the maximum length")
)

// Account management.
var (
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
)

// Message history.
var (
	ErrMessageNotFound = fmt.Errorf("message not found")
	ErrNotMessageOwner = fmt.Errorf("only the author can delete a message")
)

// ErrSendBufferFull reports a connection too slow to keep up with fan-out.
var ErrSendBufferFull = fmt.Errorf("connection send buffer is full")

var ErrWorkerPanic = fmt.Errorf("worker panic")

// Wire-level rejection reasons surfaced to a client whose handshake failed.
const (
	ReasonMissingCredential = "missing-credential"
	ReasonInvalidCredential = "invalid-credential"
	ReasonExpiredCredential = "expired-credential"
)

// RejectionReason maps a handshake failure to its wire-level reason code.
// Identity resolution failures are reported as an invalid credential:
// the subject id inside the token no longer maps to an account, and peers
// must not learn anything about the attempt.
func RejectionReason(err error) string {
	switch {
	case stderrors.Is(err, ErrMissingCredential):
		return ReasonMissingCredential
	case stderrors.Is(err, ErrExpiredCredential):
		return ReasonExpiredCredential
	default:
		return ReasonInvalidCredential
	}
}
