package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abdullayevf/chat-app/errors"
	"github.com/google/uuid"
)

// MaxContentLength bounds the trimmed content of a single chat message.
const MaxContentLength = 1000

// Message represents an immutable chat event. It is created once a raw
// send intent passed validation, and is never mutated afterwards.
type Message struct {
	ID          uuid.UUID
	AuthorID    string
	AuthorEmail string
	Content     string
	Lang        string // ISO 639-1 code detected at submit time, may be empty
	CreatedAt   time.Time
}

// NormalizeContent trims raw content and enforces the length bounds.
// Exactly MaxContentLength runes is still valid.
func NormalizeContent(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", errors.ErrEmptyContent
	}
	if utf8.RuneCountInString(trimmed) > MaxContentLength {
		return "", errors.ErrContentTooLong
	}
	return trimmed, nil
}
