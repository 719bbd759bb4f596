package ports

import (
	"context"
	"time"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}

// TokenIssuer mints and checks session tokens.
type TokenIssuer interface {
	Issue(subjectID, username, role string) (string, *domain.Claims, error)
	Verify(token string) (*domain.Claims, error)
}

// RevocationStore is the token denylist consulted by the auth gate.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// StatsCache keeps the latest dashboard snapshot.
type StatsCache interface {
	Get(ctx context.Context) (*domain.DashboardStats, error)
	Set(ctx context.Context, stats *domain.DashboardStats) error
}
