package services

import (
	stderrors "errors"

	"github.com/abdullayevf/chat-app/domain"
	"github.com/abdullayevf/chat-app/errors"
	"github.com/abdullayevf/chat-app/repositories"
)

// IdentityResolver turns a verified subject id into the display identity
// attached to a connection for its whole lifetime.
type IdentityResolver struct {
	users repositories.IUserRepository
}

func NewIdentityResolver(users repositories.IUserRepository) IdentityResolver {
	return IdentityResolver{users: users}
}

func (r IdentityResolver) Resolve(subjectID string) (domain.Identity, error) {
	user, err := r.users.GetUserByID(subjectID)
	if err != nil {
		if stderrors.Is(err, errors.ErrUserNotFound) {
			return domain.Identity{}, errors.ErrIdentityMissing
		}
		return domain.Identity{}, err
	}
	return domain.Identity{ID: user.ID, Email: user.Email}, nil
}
