package services

import (
	"fmt"

	"github.com/abdullayevf/chat-app/auth"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/abdullayevf/chat-app/repositories"
)

type IAuthService interface {
	Register(email, password string) (Token, error)
	Login(email, password string) (Token, error)
	DeleteAccount(userID string) error
}

type Token string

type AuthService struct {
	users  repositories.IUserRepository
	tokens auth.TokenManager
}

func NewAuthService(users repositories.IUserRepository, tokens auth.TokenManager) IAuthService {
	return &AuthService{users: users, tokens: tokens}
}

func (s *AuthService) Register(email, password string) (Token, error) {
	// 1. Validate business rules (email format, password complexity)
	// before any expensive cryptographic operation.
	req := auth.RegisterRequest{Email: email, Password: password}
	if err := auth.ValidateRegister(req); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash the password with Argon2id. Done here so the repository
	// never sees a plain password.
	hashed, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the account. Propagates ErrUserAlreadyExists when the
	// email is taken.
	userID, err := s.users.CreateUser(email, hashed)
	if err != nil {
		return "", err
	}

	// 4. Issue the initial session token.
	token, err := s.tokens.Generate(userID)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

func (s *AuthService) Login(email, password string) (Token, error) {
	// A single generic error for unknown email and wrong password, to
	// prevent user enumeration.
	user, err := s.users.GetUserByEmail(email)
	if err != nil {
		return "", errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(token), nil
}

// DeleteAccount removes the account record. Live connections of that user
// are not force-closed here: their identity was resolved at handshake time
// and stays valid for the lifetime of each connection, while any
// reconnection attempt will fail identity resolution.
func (s *AuthService) DeleteAccount(userID string) error {
	return s.users.DeleteUser(userID)
}
