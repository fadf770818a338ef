package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/cache"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/dto"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/keycloak"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/store/memory"
)

// stubProvider is a minimal identity provider for handler tests: every
// created identity gets a sequential id and a stored profile.
type stubProvider struct {
	nextID   int
	profiles map[string]*keycloak.Profile
	byEmail  map[string]string
}

func newStubProvider() *stubProvider {
	return &stubProvider{
		profiles: make(map[string]*keycloak.Profile),
		byEmail:  make(map[string]string),
	}
}

func (p *stubProvider) IsConfigured() bool             { return true }
func (p *stubProvider) ProfileCacheTTL() time.Duration { return time.Minute }

func (p *stubProvider) CreateUser(_ context.Context, email string, firstName, lastName *string, _ string) (string, error) {
	if _, taken := p.byEmail[email]; taken {
		return "", fmt.Errorf("%w: %s", keycloak.ErrUserExists, email)
	}
	p.nextID++
	id := fmt.Sprintf("kc-%04d", p.nextID)
	p.profiles[id] = &keycloak.Profile{
		ID:        id,
		Username:  email,
		Email:     &email,
		FirstName: firstName,
		LastName:  lastName,
		Enabled:   true,
	}
	p.byEmail[email] = id
	return id, nil
}

func (p *stubProvider) GetUser(_ context.Context, keycloakID string) (*keycloak.Profile, error) {
	return p.profiles[keycloakID], nil
}

func (p *stubProvider) UpdateUser(_ context.Context, keycloakID string, firstName, lastName *string) error {
	profile, ok := p.profiles[keycloakID]
	if !ok {
		return fmt.Errorf("%w: %s", keycloak.ErrUserNotFound, keycloakID)
	}
	profile.FirstName = firstName
	profile.LastName = lastName
	return nil
}

func (p *stubProvider) DeleteUser(_ context.Context, keycloakID string) error {
	delete(p.profiles, keycloakID)
	return nil
}

func (p *stubProvider) FindUsersByEmail(_ context.Context, email string) ([]keycloak.Profile, error) {
	if id, ok := p.byEmail[email]; ok {
		return []keycloak.Profile{*p.profiles[id]}, nil
	}
	return nil, nil
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := &config.Config{Env: "local"}

	// Disabled cache: every call is a pass-through.
	authz := services.NewCachedAuthorizationService(memory.New(), &cache.Cache{}, services.CacheTTLs{})
	identity := services.NewIdentityService(authz, newStubProvider(), &cache.Cache{})

	userHandler := handlers.NewUserHandler(identity, cfg)
	roleHandler := handlers.NewRoleHandler(identity, cfg)

	app := fiber.New()
	app.Post("/api/users", userHandler.Create)
	app.Get("/api/users", userHandler.List)
	app.Get("/api/users/:id", userHandler.Get)
	app.Delete("/api/users/:id", userHandler.Delete)
	app.Post("/api/users/:id/roles/:roleId", userHandler.AssignRole)
	app.Post("/api/roles", roleHandler.Create)
	app.Get("/api/roles/:id/users", roleHandler.Users)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) *http.Response {
	t.Helper()
	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestCreateAndGetUser(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/users", dto.CreateUserRequest{
		Email: "alice@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[dto.UserResponse](t, resp)
	assert.Equal(t, "alice@example.com", created.Email)
	assert.NotEmpty(t, created.KeycloakID)
	assert.NotNil(t, created.Roles)

	resp = doJSON(t, app, http.MethodGet, "/api/users/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fetched := decode[dto.UserResponse](t, resp)
	assert.Equal(t, created.ID, fetched.ID)
}

func TestCreateUserDuplicateEmailConflict(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/users", dto.CreateUserRequest{Email: "dup@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/users", dto.CreateUserRequest{Email: "dup@example.com"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	body := decode[dto.ErrorResponse](t, resp)
	assert.True(t, body.Error)
}

func TestCreateUserInvalidEmail(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/users", dto.CreateUserRequest{Email: "nope"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetUserNotFoundAndBadID(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodGet, "/api/users/6f1e7dc0-8c2a-4f0e-9a44-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/users/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListUsersPaginationEnvelope(t *testing.T) {
	app := newTestApp(t)

	for i := 0; i < 3; i++ {
		resp := doJSON(t, app, http.MethodPost, "/api/users", dto.CreateUserRequest{
			Email: fmt.Sprintf("user%d@example.com", i),
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doJSON(t, app, http.MethodGet, "/api/users?page=1&page_size=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Items      []dto.UserResponse `json:"items"`
		Total      int64              `json:"total"`
		Page       int                `json:"page"`
		PageSize   int                `json:"page_size"`
		TotalPages int                `json:"total_pages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Len(t, page.Items, 2)
	assert.EqualValues(t, 3, page.Total)
	assert.Equal(t, 2, page.TotalPages)

	// An explicit page_size=0 clamps to 1 instead of silently becoming
	// the default.
	resp = doJSON(t, app, http.MethodGet, "/api/users?page_size=0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 1, page.PageSize)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 3, page.TotalPages)

	// Omitting the parameters keeps the defaults.
	resp = doJSON(t, app, http.MethodGet, "/api/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&page))
	assert.Equal(t, 20, page.PageSize)
	assert.Len(t, page.Items, 3)
}

func TestAssignRoleFlow(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/users", dto.CreateUserRequest{Email: "bob@example.com"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	user := decode[dto.UserResponse](t, resp)

	resp = doJSON(t, app, http.MethodPost, "/api/roles", dto.CreateRoleRequest{Name: "admin"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	role := decode[dto.RoleResponse](t, resp)

	assignPath := "/api/users/" + user.ID.String() + "/roles/" + role.ID.String()
	resp = doJSON(t, app, http.MethodPost, assignPath, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Assigning twice is a conflict, not a silent no-op.
	resp = doJSON(t, app, http.MethodPost, assignPath, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = doJSON(t, app, http.MethodGet, "/api/roles/"+role.ID.String()+"/users", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var members struct {
		Items []dto.UserResponse `json:"items"`
		Total int64              `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&members))
	require.Len(t, members.Items, 1)
	assert.Equal(t, user.ID, members.Items[0].ID)
	require.Len(t, members.Items[0].Roles, 1)
	assert.Equal(t, "admin", members.Items[0].Roles[0].Name)
}

func TestCreateRoleValidationAndConflict(t *testing.T) {
	app := newTestApp(t)

	resp := doJSON(t, app, http.MethodPost, "/api/roles", dto.CreateRoleRequest{Name: "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/roles", dto.CreateRoleRequest{Name: "viewer"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, "/api/roles", dto.CreateRoleRequest{Name: "viewer"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}
