package ports

import (
	"context"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

// UserRepository is the credential store. Implementations return
// domain.ErrUserNotFound for absent users and domain.ErrUserExists when a
// username is already taken.
type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	Count(ctx context.Context) (int64, error)
}
