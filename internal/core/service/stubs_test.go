package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/roadwatch/damage-portal/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory stubs
// ---------------------------------------------------------------------------

type stubUserRepo struct {
	mu        sync.Mutex
	users     map[string]*domain.User
	findErr   error
	createErr error
	creates   int
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubUserRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.users[user.Username]; exists {
		return nil, domain.ErrUserExists
	}
	r.creates++
	copy := cloneUser(user)
	copy.ID = fmt.Sprintf("id-%s", user.Username)
	r.users[copy.Username] = cloneUser(copy)
	return copy, nil
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	u, ok := r.users[username]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubUserRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

// countingHasher is a reversible fake that records how often Hash runs.
type countingHasher struct {
	hashes   int
	verifies int
	lastHash string
	hashErr  error
}

func (h *countingHasher) Hash(plaintext string) (string, error) {
	if h.hashErr != nil {
		return "", h.hashErr
	}
	h.hashes++
	return "hashed:" + plaintext, nil
}

func (h *countingHasher) Verify(plaintext, hash string) bool {
	h.verifies++
	h.lastHash = hash
	return hash == "hashed:"+plaintext
}

type stubTokens struct {
	issued []domain.Claims
}

func (s *stubTokens) Issue(subjectID, username, role string) (string, *domain.Claims, error) {
	c := domain.Claims{TokenID: "jti-1", UserID: subjectID, Username: username, Role: role}
	s.issued = append(s.issued, c)
	return "token-for-" + username, &c, nil
}

func (s *stubTokens) Verify(string) (*domain.Claims, error) { return nil, nil }

type stubRevocations struct {
	revoked map[string]time.Duration
	err     error
}

func (s *stubRevocations) Revoke(_ context.Context, id string, ttl time.Duration) error {
	if s.err != nil {
		return s.err
	}
	if s.revoked == nil {
		s.revoked = make(map[string]time.Duration)
	}
	s.revoked[id] = ttl
	return nil
}

func (s *stubRevocations) IsRevoked(_ context.Context, id string) (bool, error) {
	_, ok := s.revoked[id]
	return ok, nil
}

type stubDamageRepo struct {
	reports   []domain.DamageReport
	nextID    int64
	createErr error
	lastList  domain.DamageFilter
}

func (r *stubDamageRepo) Create(_ context.Context, report *domain.DamageReport) (*domain.DamageReport, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.nextID++
	clone := *report
	clone.ID = r.nextID
	r.reports = append(r.reports, clone)
	return &clone, nil
}

func (r *stubDamageRepo) FindByID(_ context.Context, id int64) (*domain.DamageReport, error) {
	for _, d := range r.reports {
		if d.ID == id {
			clone := d
			return &clone, nil
		}
	}
	return nil, domain.ErrDamageNotFound
}

// List applies the same filters the real repositories do.
func (r *stubDamageRepo) List(_ context.Context, f domain.DamageFilter) ([]domain.DamageReport, error) {
	r.lastList = f
	var out []domain.DamageReport
	for _, d := range r.reports {
		if f.Severity != "" && d.Severity != f.Severity {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		if f.Type != "" && d.Type != f.Type {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(d.Location), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if f.SortBy == domain.SortSeverity {
			if f.Asc {
				return out[i].Severity.Less(out[j].Severity)
			}
			return out[j].Severity.Less(out[i].Severity)
		}
		if f.Asc {
			return out[i].ReportedDate.Before(out[j].ReportedDate)
		}
		return out[j].ReportedDate.Before(out[i].ReportedDate)
	})
	return out, nil
}

func (r *stubDamageRepo) Counts(_ context.Context) (*domain.DamageCounts, error) {
	c := &domain.DamageCounts{
		BySeverity: map[domain.Severity]int64{},
		ByStatus:   map[domain.DamageStatus]int64{},
	}
	for _, d := range r.reports {
		c.Total++
		c.BySeverity[d.Severity]++
		c.ByStatus[d.Status]++
		if d.Severity == domain.SeverityCritical && d.Status == domain.StatusPending {
			c.PendingCritical++
		}
	}
	return c, nil
}

type stubStatsCache struct {
	stored *domain.DashboardStats
	getErr error
	sets   int
}

func (c *stubStatsCache) Get(context.Context) (*domain.DashboardStats, error) {
	return c.stored, c.getErr
}

func (c *stubStatsCache) Set(_ context.Context, s *domain.DashboardStats) error {
	c.sets++
	c.stored = s
	return nil
}
