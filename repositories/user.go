//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"time"

	"github.com/abdullayevf/chat-app/errors"
	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (string, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	DeleteUser(id string) error
}

// User is the repository-level representation of an account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRepository stores accounts in BadgerDB under two keys: the email key
// holds the record, the id key points back at the email so lookups by
// subject id stay cheap.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

const (
	userEmailPrefix = "user:email:"
	userIDPrefix    = "user:id:"
)

// CreateUser persists a new account and returns its generated id. The email
// acts as the uniqueness constraint.
func (u *UserRepository) CreateUser(email, hashedPassword string) (string, error) {
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now().UTC(),
	}
	data, err := json.Marshal(user)
	if err != nil {
		return "", err
	}

	err = u.db.Update(func(txn *badger.Txn) error {
		emailKey := []byte(userEmailPrefix + email)
		if _, err := txn.Get(emailKey); err == nil {
			return errors.ErrUserAlreadyExists
		}
		if err := txn.Set(emailKey, data); err != nil {
			return err
		}
		return txn.Set([]byte(userIDPrefix+user.ID), []byte(email))
	})
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (u *UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		return readUser(txn, email, &user)
	})
	return user, err
}

// GetUserByID resolves the id index first, then loads the record. This is
// the lookup behind identity resolution during the handshake.
func (u *UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := u.db.View(func(txn *badger.Txn) error {
		email, err := readEmailIndex(txn, id)
		if err != nil {
			return err
		}
		return readUser(txn, email, &user)
	})
	return user, err
}

// DeleteUser removes the account and its id index entry.
func (u *UserRepository) DeleteUser(id string) error {
	return u.db.Update(func(txn *badger.Txn) error {
		email, err := readEmailIndex(txn, id)
		if err != nil {
			return err
		}
		if err := txn.Delete([]byte(userEmailPrefix + email)); err != nil {
			return err
		}
		return txn.Delete([]byte(userIDPrefix + id))
	})
}

func readEmailIndex(txn *badger.Txn, id string) (string, error) {
	item, err := txn.Get([]byte(userIDPrefix + id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return "", errors.ErrUserNotFound
		}
		return "", err
	}
	email, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(email), nil
}

func readUser(txn *badger.Txn, email string, user *User) error {
	item, err := txn.Get([]byte(userEmailPrefix + email))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return errors.ErrUserNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, user)
	})
}
