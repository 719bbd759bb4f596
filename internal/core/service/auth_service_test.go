package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
)

func newAuthSvc(repo *stubUserRepo, hasher *countingHasher, revoked *stubRevocations) (*AuthService, *stubTokens) {
	tokens := &stubTokens{}
	var store ports.RevocationStore
	if revoked != nil {
		store = revoked
	}
	return NewAuthService(repo, hasher, tokens, store, zerolog.Nop()), tokens
}

func validRegistration(username string) ports.RegisterInput {
	return ports.RegisterInput{
		Username:   username,
		Password:   "pass123",
		Name:       "Alice Reyes",
		Role:       domain.RoleViewer,
		Department: "Road Maintenance",
	}
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newAuthSvc(repo, &countingHasher{}, nil)

	user, err := svc.Register(context.Background(), validRegistration("alice"))
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == "" {
		t.Fatalf("expected store-generated id")
	}
	if user.PasswordHash == "pass123" {
		t.Fatalf("expected password to be hashed")
	}
	if user.Department != "Road Maintenance" || user.Name != "Alice Reyes" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc, _ := newAuthSvc(newStubUserRepo(), &countingHasher{}, nil)

	missing := validRegistration("bob")
	missing.Department = ""
	if _, err := svc.Register(context.Background(), missing); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	badRole := validRegistration("bob")
	badRole.Role = "mayor"
	if _, err := svc.Register(context.Background(), badRole); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for bad role, got %v", err)
	}
}

func TestAuthService_Register_PrivilegedRoleNeedsAdmin(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newAuthSvc(repo, &countingHasher{}, nil)

	for _, role := range []string{domain.RoleAdmin, domain.RoleEngineer, domain.RoleInspector} {
		in := validRegistration("mallory-" + role)
		in.Role = role
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("anonymous %s registration: expected ErrForbidden, got %v", role, err)
		}

		in.RequestedBy = domain.RoleInspector
		if _, err := svc.Register(context.Background(), in); !errors.Is(err, domain.ErrForbidden) {
			t.Fatalf("inspector-requested %s registration: expected ErrForbidden, got %v", role, err)
		}
	}
	if n, _ := repo.Count(context.Background()); n != 0 {
		t.Fatalf("rejected registrations must not be stored, found %d users", n)
	}

	in := validRegistration("ivan")
	in.Role = domain.RoleInspector
	in.RequestedBy = domain.RoleAdmin
	user, err := svc.Register(context.Background(), in)
	if err != nil {
		t.Fatalf("admin-requested registration failed: %v", err)
	}
	if user.Role != domain.RoleInspector {
		t.Fatalf("expected inspector, got %q", user.Role)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc, _ := newAuthSvc(newStubUserRepo(), &countingHasher{}, nil)

	_, _ = svc.Register(context.Background(), validRegistration("bob"))
	if _, err := svc.Register(context.Background(), validRegistration("bob")); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubUserRepo()
	svc, tokens := newAuthSvc(repo, &countingHasher{}, nil)

	if _, err := svc.Register(context.Background(), validRegistration("carol")); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, user, err := svc.Login(context.Background(), "carol", "pass123")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if token != "token-for-carol" {
		t.Fatalf("unexpected token %q", token)
	}
	if user == nil || user.Username != "carol" {
		t.Fatalf("unexpected user: %+v", user)
	}
	if len(tokens.issued) != 1 {
		t.Fatalf("expected one token issued, got %d", len(tokens.issued))
	}
	got := tokens.issued[0]
	if got.UserID != user.ID || got.Username != "carol" || got.Role != domain.RoleViewer {
		t.Fatalf("token bound to wrong identity: %+v", got)
	}
}

func TestAuthService_Login_TrimsUsername(t *testing.T) {
	svc, _ := newAuthSvc(newStubUserRepo(), &countingHasher{}, nil)

	if _, err := svc.Register(context.Background(), validRegistration(" alice ")); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	_, user, err := svc.Login(context.Background(), " alice ", "pass123")
	if err != nil {
		t.Fatalf("login with the registered spelling failed: %v", err)
	}
	if user.Username != "alice" {
		t.Fatalf("expected stored username alice, got %q", user.Username)
	}
	if _, _, err := svc.Login(context.Background(), "   ", "pass123"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("blank username: expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthService_Login_MissingFields(t *testing.T) {
	svc, _ := newAuthSvc(newStubUserRepo(), &countingHasher{}, nil)

	if _, _, err := svc.Login(context.Background(), "", "x"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, _, err := svc.Login(context.Background(), "x", ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAuthService_Login_UnknownUserAndWrongPasswordAreIndistinguishable(t *testing.T) {
	repo := newStubUserRepo()
	hasher := &countingHasher{}
	svc, tokens := newAuthSvc(repo, hasher, nil)
	_, _ = svc.Register(context.Background(), validRegistration("dave"))

	_, _, wrongPw := svc.Login(context.Background(), "dave", "badpass")
	verifiesAfterWrong := hasher.verifies
	_, _, unknown := svc.Login(context.Background(), "ghost", "badpass")

	if !errors.Is(wrongPw, domain.ErrInvalidCredentials) || !errors.Is(unknown, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for both, got %v / %v", wrongPw, unknown)
	}
	if wrongPw.Error() != unknown.Error() {
		t.Fatalf("error messages differ: %q vs %q", wrongPw, unknown)
	}
	if hasher.verifies != verifiesAfterWrong+1 {
		t.Fatalf("unknown user path should still run one password comparison")
	}
	if hasher.lastHash != "hashed:"+dummyPassword {
		t.Fatalf("unknown user compared against %q, want the hasher's own dummy hash", hasher.lastHash)
	}
	if len(tokens.issued) != 0 {
		t.Fatalf("no token should be issued")
	}
}

func TestNewAuthService_DummyHashUsesHasher(t *testing.T) {
	hasher := &countingHasher{}
	svc, _ := newAuthSvc(newStubUserRepo(), hasher, nil)
	if hasher.hashes != 1 || svc.dummyHash != "hashed:"+dummyPassword {
		t.Fatalf("expected one construction-time hash, got %d (%q)", hasher.hashes, svc.dummyHash)
	}

	failing := &countingHasher{hashErr: errors.New("cost out of range")}
	svc, _ = newAuthSvc(newStubUserRepo(), failing, nil)
	if svc.dummyHash != fallbackDummyHash {
		t.Fatalf("expected fallback dummy hash, got %q", svc.dummyHash)
	}
}

func TestAuthService_Login_StoreFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.findErr = errors.New("connection reset")
	svc, _ := newAuthSvc(repo, &countingHasher{}, nil)

	_, _, err := svc.Login(context.Background(), "admin", "pw")
	if err == nil || errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("store failure must not look like bad credentials, got %v", err)
	}
}

func TestAuthService_Profile(t *testing.T) {
	repo := newStubUserRepo()
	svc, _ := newAuthSvc(repo, &countingHasher{}, nil)
	created, _ := svc.Register(context.Background(), validRegistration("erin"))

	user, err := svc.Profile(context.Background(), created.ID)
	if err != nil || user.Username != "erin" {
		t.Fatalf("unexpected profile result: %+v, %v", user, err)
	}
	if _, err := svc.Profile(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Logout_RevokesForRemainingLifetime(t *testing.T) {
	revoked := &stubRevocations{}
	svc, _ := newAuthSvc(newStubUserRepo(), &countingHasher{}, revoked)
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	claims := domain.Claims{TokenID: "jti-9", Username: "admin", ExpiresAt: now.Add(90 * time.Minute)}
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if revoked.revoked["jti-9"] != 90*time.Minute {
		t.Fatalf("expected 90m ttl, got %v", revoked.revoked["jti-9"])
	}
}

func TestAuthService_Logout_WithoutStoreIsNoop(t *testing.T) {
	svc, _ := newAuthSvc(newStubUserRepo(), &countingHasher{}, nil)
	if err := svc.Logout(context.Background(), domain.Claims{TokenID: "x", ExpiresAt: time.Now().Add(time.Hour)}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestAuthService_Logout_StoreError(t *testing.T) {
	revoked := &stubRevocations{err: errors.New("redis down")}
	svc, _ := newAuthSvc(newStubUserRepo(), &countingHasher{}, revoked)

	err := svc.Logout(context.Background(), domain.Claims{TokenID: "x", ExpiresAt: time.Now().Add(time.Hour)})
	if err == nil {
		t.Fatalf("expected error")
	}
}
