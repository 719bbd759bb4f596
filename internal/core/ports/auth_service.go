package ports

import (
	"context"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

// RegisterInput carries the fields of a new account.
type RegisterInput struct {
	Username   string
	Password   string
	Name       string
	Role       string
	Department string

	// RequestedBy is the role of the authenticated caller, empty for
	// anonymous self-registration.
	RequestedBy string
}

type AuthService interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, *domain.User, error)
	Profile(ctx context.Context, userID string) (*domain.User, error)
	Logout(ctx context.Context, claims domain.Claims) error
}
