package services

import (
	stderrors "errors"
	"time"

	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/abdullayevf/chat-app/repositories"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

type IMessageService interface {
	History(limit int, before *time.Time) (HistoryPage, error)
	Delete(userID string, messageID uuid.UUID) error
}

// HistoryPage is one page of message history, oldest first so a chat UI
// can render it top to bottom.
type HistoryPage struct {
	Messages []domain.Message
	HasMore  bool
}

type MessageService struct {
	messages repositories.IMessageRepository
}

func NewMessageService(messages repositories.IMessageRepository) IMessageService {
	return &MessageService{messages: messages}
}

// History reads up to limit persisted messages older than before. The
// limit is clamped to [1, 100] with a default of 50. A full page signals
// that more history probably exists.
func (s *MessageService) History(limit int, before *time.Time) (HistoryPage, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	newestFirst, err := s.messages.QueryRecent(limit, before)
	if err != nil {
		return HistoryPage{}, err
	}

	return HistoryPage{
		Messages: lo.Reverse(newestFirst),
		HasMore:  len(newestFirst) == limit,
	}, nil
}

// Delete removes a message on behalf of its author. Deletion never flows
// through the real-time channel: connected peers keep their local copy
// until they reload history.
func (s *MessageService) Delete(userID string, messageID uuid.UUID) error {
	message, err := s.messages.Get(messageID)
	if err != nil {
		return err
	}
	if message.AuthorID != userID {
		return errors.ErrNotMessageOwner
	}
	if err := s.messages.Delete(messageID); err != nil {
		if stderrors.Is(err, errors.ErrMessageNotFound) {
			// Lost a race with another delete of the same message.
			return nil
		}
		return err
	}
	return nil
}
