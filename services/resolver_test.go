package services

import (
	"testing"

	"github.com/abdullayevf/chat-app/errors"
	"github.com/abdullayevf/chat-app/mocks"
	"github.com/abdullayevf/chat-app/repositories"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestIdentityResolver_Resolve(t *testing.T) {
	t.Run("should resolve an existing account", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		users := mocks.NewMockIUserRepository(ctrl)
		resolver := NewIdentityResolver(users)
		userID := uuid.NewString()

		users.EXPECT().
			GetUserByID(userID).
			Return(repositories.User{ID: userID, Email: "alice@example.com"}, nil).
			Times(1)

		identity, err := resolver.Resolve(userID)

		req.NoError(err)
		req.Equal(userID, identity.ID)
		req.Equal("alice@example.com", identity.Email)
	})

	t.Run("should report a vanished account as a missing identity", func(t *testing.T) {
		req := require.New(t)
		ctrl := gomock.NewController(t)
		users := mocks.NewMockIUserRepository(ctrl)
		resolver := NewIdentityResolver(users)

		users.EXPECT().
			GetUserByID(gomock.Any()).
			Return(repositories.User{}, errors.ErrUserNotFound).
			Times(1)

		_, err := resolver.Resolve(uuid.NewString())

		req.ErrorIs(err, errors.ErrIdentityMissing)
	})
}
