//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IMessageRepository interface {
	Append(message domain.Message) error
	Get(id uuid.UUID) (domain.Message, error)
	Delete(id uuid.UUID) error
	QueryRecent(limit int, before *time.Time) ([]domain.Message, error)
}

// MessageRepository is the durable append-only log of chat messages,
// backed by BadgerDB.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

const (
	messagePrefix = "msg:"
	messageIndex  = "msgid:"
)

// storedMessage is the JSON shape of a message value on disk.
type storedMessage struct {
	ID          string `json:"id"`
	AuthorID    string `json:"author_id"`
	AuthorEmail string `json:"author_email"`
	Content     string `json:"content"`
	Lang        string `json:"lang,omitempty"`
	CreatedAt   int64  `json:"created_at"` // unix nanoseconds, UTC
}

// messageKey builds "msg:{timestamp_padded}:{uuid}". The 19-digit zero
// padding makes lexicographic order equal chronological order, and the UUID
// suffix disambiguates two messages landing on the same nanosecond.
func messageKey(at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix, at.UnixNano(), id))
}

func indexKey(id uuid.UUID) []byte {
	return []byte(messageIndex + id.String())
}

// Append persists a message under its time-ordered key plus an id index
// entry so point lookups and deletions stay cheap.
func (m MessageRepository) Append(message domain.Message) error {
	value, err := json.Marshal(fromMessage(message))
	if err != nil {
		return err
	}
	key := messageKey(message.CreatedAt, message.ID)
	return m.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(key, value); err != nil {
			return err
		}
		return txn.Set(indexKey(message.ID), key)
	})
}

// Get resolves a message by id through the index entry.
func (m MessageRepository) Get(id uuid.UUID) (domain.Message, error) {
	var stored storedMessage
	err := m.db.View(func(txn *badger.Txn) error {
		key, err := lookupIndex(txn, id)
		if err != nil {
			return err
		}
		item, err := txn.Get(key)
		if err != nil {
			return translateNotFound(err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stored)
		})
	})
	if err != nil {
		return domain.Message{}, err
	}
	return toMessage(stored)
}

// Delete removes a message and its index entry. Deleting an absent message
// reports ErrMessageNotFound.
func (m MessageRepository) Delete(id uuid.UUID) error {
	return m.db.Update(func(txn *badger.Txn) error {
		key, err := lookupIndex(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete(key); err != nil {
			return err
		}
		return txn.Delete(indexKey(id))
	})
}

// QueryRecent returns up to limit messages, newest first. With a before
// bound, only messages strictly older than that instant are returned.
// Thanks to the padded timestamp keys a reverse prefix scan walks messages
// in exact store order.
func (m MessageRepository) QueryRecent(limit int, before *time.Time) ([]domain.Message, error) {
	var rawValues [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		prefix := []byte(messagePrefix)
		var seekKey []byte
		switch before {
		case nil:
			// Position past every possible timestamp, then walk backwards.
			seekKey = append(prefix, []byte("9999999999999999999:")...)
		default:
			// The bare padded timestamp sorts below any "{ts}:{uuid}" key,
			// so the reverse seek lands on the newest strictly older entry.
			seekKey = []byte(fmt.Sprintf("%s%019d", messagePrefix, before.UnixNano()))
		}

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(rawValues) == limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				rawValues = append(rawValues, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(rawValues))
	for _, raw := range rawValues {
		var stored storedMessage
		if err := json.Unmarshal(raw, &stored); err != nil {
			return nil, err
		}
		message, err := toMessage(stored)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func lookupIndex(txn *badger.Txn, id uuid.UUID) ([]byte, error) {
	item, err := txn.Get(indexKey(id))
	if err != nil {
		return nil, translateNotFound(err)
	}
	return item.ValueCopy(nil)
}

func translateNotFound(err error) error {
	if err == badger.ErrKeyNotFound {
		return errors.ErrMessageNotFound
	}
	return err
}

func fromMessage(message domain.Message) storedMessage {
	return storedMessage{
		ID:          message.ID.String(),
		AuthorID:    message.AuthorID,
		AuthorEmail: message.AuthorEmail,
		Content:     message.Content,
		Lang:        message.Lang,
		CreatedAt:   message.CreatedAt.UnixNano(),
	}
}

func toMessage(stored storedMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:          parsedID,
		AuthorID:    stored.AuthorID,
		AuthorEmail: stored.AuthorEmail,
		Content:     stored.Content,
		Lang:        stored.Lang,
		CreatedAt:   time.Unix(0, stored.CreatedAt).UTC(),
	}, nil
}
