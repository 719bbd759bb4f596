package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
	"github.com/roadwatch/damage-portal/internal/pkg/metrics"
)

// fallbackDummyHash is used only when the hasher cannot produce its own
// dummy hash at construction.
const fallbackDummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWkl6Y1x0Z0JxS0dJmS0pLxGq2Iu"

const dummyPassword = "road-damage-portal-unknown-user"

// AuthService implements registration, login, profile lookup and logout.
type AuthService struct {
	users   ports.UserRepository
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	revoked ports.RevocationStore // nil: logout is an acknowledgement only
	log     zerolog.Logger
	now     func() time.Time

	// dummyHash is compared against when the username is unknown so both
	// failure paths of Login cost one comparison at the configured cost.
	dummyHash string
}

func NewAuthService(
	users ports.UserRepository,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	revoked ports.RevocationStore,
	log zerolog.Logger,
) *AuthService {
	dummy, err := hasher.Hash(dummyPassword)
	if err != nil {
		log.Warn().Err(err).Msg("dummy hash unavailable, using fallback")
		dummy = fallbackDummyHash
	}
	return &AuthService{
		users:     users,
		hasher:    hasher,
		tokens:    tokens,
		revoked:   revoked,
		log:       log,
		now:       time.Now,
		dummyHash: dummy,
	}
}

// Register creates an account. Anonymous callers may only create viewers;
// any other role must be requested by an administrator.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	if in.Username == "" || in.Password == "" || in.Name == "" || in.Role == "" || in.Department == "" {
		return nil, fmt.Errorf("%w: username, password, name, role and department are required", domain.ErrInvalidInput)
	}
	if !domain.ValidRole(in.Role) {
		return nil, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, in.Role)
	}
	if in.Role != domain.RoleViewer && in.RequestedBy != domain.RoleAdmin {
		return nil, fmt.Errorf("%w: the %s role can only be assigned by an administrator", domain.ErrForbidden, in.Role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Username:     in.Username,
		PasswordHash: hash,
		Name:         in.Name,
		Role:         in.Role,
		Department:   in.Department,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("username", created.Username).
		Str("role", created.Role).
		Str("requested_by", in.RequestedBy).
		Msg("user registered")
	return created, nil
}

// Login verifies the credentials and issues a session token. Unknown users
// and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, fmt.Errorf("%w: username and password are required", domain.ErrInvalidInput)
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			return "", nil, fmt.Errorf("login: %w", err)
		}
		s.hasher.Verify(password, s.dummyHash)
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		return "", nil, domain.ErrInvalidCredentials
	}

	token, _, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return "", nil, fmt.Errorf("login: issue token: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("username", user.Username).Msg("login succeeded")
	return token, user, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// Logout denylists the token for the rest of its lifetime when a revocation
// store is configured.
func (s *AuthService) Logout(ctx context.Context, claims domain.Claims) error {
	if s.revoked == nil || claims.TokenID == "" {
		return nil
	}
	ttl := claims.Remaining(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.TokenID, ttl); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	s.log.Info().Str("username", claims.Username).Msg("token revoked")
	return nil
}
