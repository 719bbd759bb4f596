package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/roadwatch/damage-portal/internal/core/domain"
	"github.com/roadwatch/damage-portal/internal/core/service"
	"github.com/roadwatch/damage-portal/internal/infrastructure/db/sqlite"
	"github.com/roadwatch/damage-portal/internal/pkg/config"
	"github.com/roadwatch/damage-portal/internal/pkg/password"
	"github.com/roadwatch/damage-portal/internal/pkg/token"
)

// newStackRouter wires the router to the real services, bcrypt, JWT and an
// in-memory SQLite store seeded with the default accounts.
func newStackRouter(t *testing.T) *echo.Echo {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := sqlite.Open(ctx, fmt.Sprintf("file:%s?mode=memory&cache=shared", name), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	users := sqlite.NewUserRepository(db)
	damages := sqlite.NewDamageRepository(db)
	hasher := password.New(bcrypt.MinCost)
	tokens, err := token.NewManager("stack-secret", token.DefaultTTL)
	require.NoError(t, err)

	accounts := service.DefaultAccounts(config.SeedConfig{
		AdminPassword:     "government123",
		InspectorPassword: "inspect123",
	})
	report := service.NewSeeder(users, hasher, accounts, zerolog.Nop()).Run(ctx)
	require.ElementsMatch(t, []string{"admin", "inspector"}, report.Created)

	damageService := service.NewDamageService(damages, zerolog.Nop())
	return NewRouter(Deps{
		Auth:        service.NewAuthService(users, hasher, tokens, nil, zerolog.Nop()),
		Damages:     damageService,
		Stats:       service.NewStatsService(users, damages, nil, time.Minute, zerolog.Nop()),
		Dispatcher:  fakeDispatcher{},
		Tokens:      tokens,
		CORSOrigins: []string{"*"},
		Log:         zerolog.Nop(),
	})
}

func loginAs(t *testing.T, e *echo.Echo, username, pw string) (string, map[string]any) {
	t.Helper()
	rec := do(e, http.MethodPost, "/api/login", fmt.Sprintf(`{"username":%q,"password":%q}`, username, pw), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Message string         `json:"message"`
		Token   string         `json:"token"`
		User    map[string]any `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "Login successful", resp.Message)
	require.NotEmpty(t, resp.Token)
	return resp.Token, resp.User
}

func TestStack_SeededAdminLogin(t *testing.T) {
	e := newStackRouter(t)

	tok, user := loginAs(t, e, "admin", "government123")
	assert.Equal(t, "admin", user["role"])
	assert.Equal(t, "Administration", user["department"])
	assert.NotContains(t, user, "password")

	rec := do(e, http.MethodPost, "/api/login", `{"username":"admin","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/login", `{"username":"nobody","password":"government123"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid credentials"}`, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/user", "", tok)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"username":"admin"`)
	assert.NotContains(t, rec.Body.String(), "$2a$")

	rec = do(e, http.MethodGet, "/api/user", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStack_SelfRegisteredUserCannotReport(t *testing.T) {
	e := newStackRouter(t)
	body := `{"type":"Pothole","severity":"High","location":"Main Street"}`

	rec := do(e, http.MethodPost, "/api/register",
		`{"username":"mallory","password":"pw","name":"Mallory","role":"admin","department":"Nowhere"}`, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = do(e, http.MethodPost, "/api/register",
		`{"username":"mallory","password":"pw","name":"Mallory","role":"viewer","department":"Nowhere"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tok, user := loginAs(t, e, "mallory", "pw")
	assert.Equal(t, domain.RoleViewer, user["role"])

	rec = do(e, http.MethodPost, "/api/damages", body, tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = do(e, http.MethodPost, "/api/damages/batch", "["+body+"]", tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// a viewer token cannot mint privileged accounts either
	rec = do(e, http.MethodPost, "/api/register",
		`{"username":"mallory2","password":"pw","name":"M","role":"inspector","department":"D"}`, tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestStack_AdminRegistersInspector(t *testing.T) {
	e := newStackRouter(t)
	adminTok, _ := loginAs(t, e, "admin", "government123")

	rec := do(e, http.MethodPost, "/api/register",
		`{"username":"ivan","password":"pw","name":"Ivan","role":"inspector","department":"Road Maintenance"}`, adminTok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	tok, user := loginAs(t, e, "ivan", "pw")
	assert.Equal(t, domain.RoleInspector, user["role"])

	rec = do(e, http.MethodPost, "/api/damages", `{"type":"Pothole","severity":"High","location":"Main Street"}`, tok)
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestStack_ExportErrors(t *testing.T) {
	e := newStackRouter(t)
	tok, _ := loginAs(t, e, "inspector", "inspect123")

	rec := do(e, http.MethodPost, "/api/damages",
		`{"type":"Pothole","severity":"High","location":"Main Street","reported_date":"2026-01-31T23:59:59.750Z"}`, tok)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(e, http.MethodGet, "/api/damages/export?from=2026-02-01&to=2026-01-01", "", tok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "date range end precedes start")
	assert.NotContains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")

	rec = do(e, http.MethodGet, "/api/damages/export?from=2026-01-31&to=2026-01-31", "", tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Main Street")
}
