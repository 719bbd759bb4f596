package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/ports"
	"github.com/roadwatch/damage-portal/internal/pkg/token"
)

type fakeAuth struct {
	tokens *token.Manager
	users  map[string]*domain.User
	logged []string
}

func (f *fakeAuth) Register(context.Context, ports.RegisterInput) (*domain.User, error) {
	return nil, domain.ErrUserExists
}

func (f *fakeAuth) Login(_ context.Context, username, password string) (string, *domain.User, error) {
	u, ok := f.users[username]
	if !ok || password != "pw-"+username {
		return "", nil, domain.ErrInvalidCredentials
	}
	signed, _, err := f.tokens.Issue(u.ID, u.Username, u.Role)
	return signed, u, err
}

func (f *fakeAuth) Profile(_ context.Context, id string) (*domain.User, error) {
	for _, u := range f.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (f *fakeAuth) Logout(_ context.Context, c domain.Claims) error {
	f.logged = append(f.logged, c.TokenID)
	return nil
}

type fakeDamages struct{}

func (fakeDamages) List(context.Context, domain.DamageFilter) ([]domain.DamageReport, error) {
	return []domain.DamageReport{{ID: 1, Type: "Pothole", Severity: domain.SeverityHigh, Status: domain.StatusPending}}, nil
}

func (fakeDamages) Get(_ context.Context, id int64) (*domain.DamageReport, error) {
	return nil, domain.ErrDamageNotFound
}

func (fakeDamages) Create(_ context.Context, in ports.CreateDamageInput) (*domain.DamageReport, error) {
	return &domain.DamageReport{ID: 2, Type: in.Type}, nil
}

func (fakeDamages) Export(context.Context, domain.DamageFilter, io.Writer) (int, error) {
	return 0, nil
}

type fakeStats struct{}

func (fakeStats) Get(context.Context) (*domain.DashboardStats, error) {
	return &domain.DashboardStats{TotalDamages: 1, TotalUsers: 2}, nil
}

func (fakeStats) Refresh(ctx context.Context) (*domain.DashboardStats, error) {
	return fakeStats{}.Get(ctx)
}

type fakeDispatcher struct{}

func (fakeDispatcher) EnqueueBatch(_ context.Context, in []ports.CreateDamageInput) (int, error) {
	return len(in), nil
}

func newTestRouter(t *testing.T) *echo.Echo {
	t.Helper()
	tokens, err := token.NewManager("router-secret", time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	auth := &fakeAuth{tokens: tokens, users: map[string]*domain.User{
		"admin":  {ID: "u-admin", Username: "admin", Role: domain.RoleAdmin},
		"viewer": {ID: "u-viewer", Username: "viewer", Role: domain.RoleViewer},
	}}
	return NewRouter(Deps{
		Auth:        auth,
		Damages:     fakeDamages{},
		Stats:       fakeStats{},
		Dispatcher:  fakeDispatcher{},
		Tokens:      tokens,
		CORSOrigins: []string{"*"},
		Log:         zerolog.Nop(),
	})
}

func do(e *echo.Echo, method, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo, username string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/login", `{"username":"`+username+`","password":"pw-`+username+`"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d (%s)", username, rec.Code, rec.Body.String())
	}
	var resp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
		t.Fatalf("login %s: no token in %s", username, rec.Body.String())
	}
	return resp.Token
}

func TestRouter_PublicEndpoints(t *testing.T) {
	e := newTestRouter(t)

	if rec := do(e, http.MethodGet, "/api/health", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/api/health/ready", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("ready: expected 200, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/metrics", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", rec.Code)
	}

	rec := do(e, http.MethodPost, "/api/login", `{"username":"admin","password":"wrong"}`, "")
	if rec.Code != http.StatusUnauthorized || !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Fatalf("bad login: got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/api/register", `{"username":"admin","password":"x","name":"A","role":"admin","department":"D"}`, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", rec.Code)
	}
}

func TestRouter_AuthGate(t *testing.T) {
	e := newTestRouter(t)

	for _, path := range []string{"/api/user", "/api/dashboard/stats", "/api/damages", "/api/fetch-damages"} {
		rec := do(e, http.MethodGet, path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without token: expected 401, got %d", path, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), "Access token required") {
			t.Fatalf("%s: unexpected body %s", path, rec.Body.String())
		}

		rec = do(e, http.MethodGet, path, "", "garbage")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s with bad token: expected 403, got %d", path, rec.Code)
		}
	}
}

func TestRouter_AuthenticatedFlow(t *testing.T) {
	e := newTestRouter(t)
	tok := login(t, e, "admin")

	rec := do(e, http.MethodGet, "/api/user", "", tok)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"username":"admin"`) {
		t.Fatalf("user: got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/api/damages?sort=severity", "", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("damages: expected 200, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/damages/99", "", tok)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing damage: expected 404, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/dashboard/stats", "", tok)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"totalUsers":2`) {
		t.Fatalf("stats: got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/api/damages", `{"type":"Pothole","severity":"High","location":"Main Street"}`, tok)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodPost, "/api/logout", "", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
}

func TestRouter_ReportingRequiresRole(t *testing.T) {
	e := newTestRouter(t)
	tok := login(t, e, "viewer")

	rec := do(e, http.MethodPost, "/api/damages", `{"type":"Pothole","severity":"High","location":"Main Street"}`, tok)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer create: expected 403, got %d", rec.Code)
	}
	rec = do(e, http.MethodPost, "/api/damages/batch", `[{"type":"Pothole","severity":"High","location":"x"}]`, tok)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("viewer batch: expected 403, got %d", rec.Code)
	}

	rec = do(e, http.MethodGet, "/api/damages", "", tok)
	if rec.Code != http.StatusOK {
		t.Fatalf("viewer list: expected 200, got %d", rec.Code)
	}
}
