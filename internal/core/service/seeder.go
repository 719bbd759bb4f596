package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
	"github.com/roadwatch/damage-portal/internal/pkg/config"
	"github.com/roadwatch/damage-portal/internal/pkg/metrics"
)

// SeedAccount is one bootstrap account. Password comes from configuration.
type SeedAccount struct {
	Username   string
	Password   string
	Name       string
	Role       string
	Department string
}

// DefaultAccounts returns the fixed bootstrap account set with passwords
// taken from cfg.
func DefaultAccounts(cfg config.SeedConfig) []SeedAccount {
	return []SeedAccount{
		{Username: "admin", Password: cfg.AdminPassword, Name: "System Administrator", Role: domain.RoleAdmin, Department: "Administration"},
		{Username: "engineer", Password: cfg.EngineerPassword, Name: "City Engineer", Role: domain.RoleEngineer, Department: "Public Works"},
		{Username: "inspector", Password: cfg.InspectorPassword, Name: "Road Inspector", Role: domain.RoleInspector, Department: "Road Maintenance"},
	}
}

// SeedReport lists the usernames handled by one seeder run.
type SeedReport struct {
	Created []string
	Skipped []string
	Failed  []string
}

// Seeder ensures the bootstrap accounts exist. Existing accounts are never
// rehashed or modified.
type Seeder struct {
	users    ports.UserRepository
	hasher   ports.PasswordHasher
	accounts []SeedAccount
	log      zerolog.Logger
}

func NewSeeder(users ports.UserRepository, hasher ports.PasswordHasher, accounts []SeedAccount, log zerolog.Logger) *Seeder {
	return &Seeder{users: users, hasher: hasher, accounts: accounts, log: log}
}

// Run seeds every account, logging and continuing past individual failures.
func (s *Seeder) Run(ctx context.Context) SeedReport {
	var report SeedReport
	for _, acc := range s.accounts {
		switch err := s.seed(ctx, acc); {
		case err == nil:
			report.Created = append(report.Created, acc.Username)
			metrics.SeedAccountsTotal.WithLabelValues("created").Inc()
			s.log.Info().Str("username", acc.Username).Str("role", acc.Role).Msg("default account created")
		case errors.Is(err, errAccountExists):
			report.Skipped = append(report.Skipped, acc.Username)
			metrics.SeedAccountsTotal.WithLabelValues("skipped").Inc()
			s.log.Debug().Str("username", acc.Username).Msg("default account already present")
		default:
			report.Failed = append(report.Failed, acc.Username)
			metrics.SeedAccountsTotal.WithLabelValues("failed").Inc()
			s.log.Error().Err(err).Str("username", acc.Username).Msg("failed to seed default account")
		}
	}
	return report
}

var (
	errAccountExists  = errors.New("account exists")
	errNoSeedPassword = errors.New("no password configured")
)

func (s *Seeder) seed(ctx context.Context, acc SeedAccount) error {
	_, err := s.users.FindByUsername(ctx, acc.Username)
	if err == nil {
		return errAccountExists
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return err
	}
	if acc.Password == "" {
		return errNoSeedPassword
	}

	hash, err := s.hasher.Hash(acc.Password)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.users.Create(ctx, &domain.User{
		Username:     acc.Username,
		PasswordHash: hash,
		Name:         acc.Name,
		Role:         acc.Role,
		Department:   acc.Department,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, domain.ErrUserExists) {
		// another instance won the race
		return errAccountExists
	}
	return err
}
