package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/cache"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/pagination"
)

const maxRoleNameLength = 255

// CacheClient is the slice of the cache the service depends on, so tests
// can substitute a recording double.
type CacheClient interface {
	Enabled() bool
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
	DeletePattern(ctx context.Context, pattern string)
}

// CacheTTLs carries the per-entity-class expirations from config.
type CacheTTLs struct {
	User time.Duration
	Role time.Duration
	List time.Duration
}

// CachedAuthorizationService is a cache-aside layer over the authorization
// store. Reads go cache-first and repopulate on miss; writes hit the store
// first and invalidate only after the store succeeded, so a failed write
// never evicts valid entries.
type CachedAuthorizationService struct {
	store  AuthorizationStore
	cache  CacheClient
	loader *BatchedRoleLoader
	ttls   CacheTTLs
}

func NewCachedAuthorizationService(store AuthorizationStore, cacheClient CacheClient, ttls CacheTTLs) *CachedAuthorizationService {
	return &CachedAuthorizationService{
		store:  store,
		cache:  cacheClient,
		loader: NewBatchedRoleLoader(store),
		ttls:   ttls,
	}
}

// listPayload is the cached shape of one list page.
type listPayload[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
}

func (s *CachedAuthorizationService) CreateUser(ctx context.Context, keycloakID string) (*models.User, error) {
	user, err := s.store.CreateUser(ctx, keycloakID)
	if err != nil {
		return nil, err
	}
	s.cache.DeletePattern(ctx, cache.UsersListPattern())
	return user, nil
}

// GetUser returns the user with roles resolved, or (nil, nil) when absent.
func (s *CachedAuthorizationService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	key := cache.UserKey(id)
	if data, ok := s.cache.Get(ctx, key); ok {
		var cached models.User
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		slog.Warn("discarding corrupt cache entry", "key", key)
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	roles, err := s.store.RolesForUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Roles = roles

	s.cacheJSON(ctx, key, user, s.ttls.User)
	return user, nil
}

// GetUserByKeycloakID is an uncached lookup used by sync and bootstrap
// paths; the keycloak id is not a cache key class.
func (s *CachedAuthorizationService) GetUserByKeycloakID(ctx context.Context, keycloakID string) (*models.User, error) {
	user, err := s.store.GetUserByKeycloakID(ctx, keycloakID)
	if err != nil || user == nil {
		return nil, err
	}
	roles, err := s.store.RolesForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return user, nil
}

func (s *CachedAuthorizationService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.cache.Delete(ctx, cache.UserKey(id))
	s.cache.DeletePattern(ctx, cache.UsersListPattern())
	return nil
}

func (s *CachedAuthorizationService) ListUsers(ctx context.Context, params pagination.Params) ([]models.User, int64, error) {
	key := cache.UsersListKey(params.Page, params.PageSize)
	if users, total, ok := getCachedList[models.User](ctx, s.cache, key); ok {
		return users, total, nil
	}

	users, total, err := s.store.ListUsers(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	if err := s.loader.Attach(ctx, users); err != nil {
		return nil, 0, err
	}

	s.cacheJSON(ctx, key, listPayload[models.User]{Items: users, Total: total}, s.ttls.List)
	return users, total, nil
}

func (s *CachedAuthorizationService) ListUsersByRole(ctx context.Context, roleID uuid.UUID, params pagination.Params) ([]models.User, int64, error) {
	key := cache.UsersByRoleKey(roleID, params.Page, params.PageSize)
	if users, total, ok := getCachedList[models.User](ctx, s.cache, key); ok {
		return users, total, nil
	}

	users, total, err := s.store.ListUsersByRole(ctx, roleID, params)
	if err != nil {
		return nil, 0, err
	}
	if err := s.loader.Attach(ctx, users); err != nil {
		return nil, 0, err
	}

	s.cacheJSON(ctx, key, listPayload[models.User]{Items: users, Total: total}, s.ttls.List)
	return users, total, nil
}

func (s *CachedAuthorizationService) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	name, err := validateRoleName(name)
	if err != nil {
		return nil, err
	}
	role, err := s.store.CreateRole(ctx, name)
	if err != nil {
		return nil, err
	}
	s.cache.DeletePattern(ctx, cache.RolesListPattern())
	return role, nil
}

func (s *CachedAuthorizationService) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	key := cache.RoleKey(id)
	if data, ok := s.cache.Get(ctx, key); ok {
		var cached models.Role
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
		slog.Warn("discarding corrupt cache entry", "key", key)
	}

	role, err := s.store.GetRole(ctx, id)
	if err != nil || role == nil {
		return nil, err
	}
	s.cacheJSON(ctx, key, role, s.ttls.Role)
	return role, nil
}

// GetRoleByName is an uncached lookup; only the bootstrap path uses it.
func (s *CachedAuthorizationService) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	return s.store.GetRoleByName(ctx, name)
}

// UpdateRole renames a role. Cached users embed role names, so every user
// entry is invalidated along with the role's own keys.
func (s *CachedAuthorizationService) UpdateRole(ctx context.Context, id uuid.UUID, name string) (*models.Role, error) {
	name, err := validateRoleName(name)
	if err != nil {
		return nil, err
	}
	role, err := s.store.UpdateRole(ctx, id, name)
	if err != nil {
		return nil, err
	}
	s.invalidateRole(ctx, id)
	return role, nil
}

func (s *CachedAuthorizationService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidateRole(ctx, id)
	return nil
}

func (s *CachedAuthorizationService) ListRoles(ctx context.Context, params pagination.Params) ([]models.Role, int64, error) {
	key := cache.RolesListKey(params.Page, params.PageSize)
	if roles, total, ok := getCachedList[models.Role](ctx, s.cache, key); ok {
		return roles, total, nil
	}

	roles, total, err := s.store.ListRoles(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	s.cacheJSON(ctx, key, listPayload[models.Role]{Items: roles, Total: total}, s.ttls.List)
	return roles, total, nil
}

func (s *CachedAuthorizationService) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := s.store.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

func (s *CachedAuthorizationService) UnassignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := s.store.UnassignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateUser(ctx, userID)
	return nil
}

func (s *CachedAuthorizationService) RolesForUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	return s.store.RolesForUser(ctx, userID)
}

// invalidateUser drops one user's entry plus the list pages containing it.
// Other users' entries stay valid.
func (s *CachedAuthorizationService) invalidateUser(ctx context.Context, userID uuid.UUID) {
	s.cache.Delete(ctx, cache.UserKey(userID))
	s.cache.DeletePattern(ctx, cache.UsersListPattern())
}

func (s *CachedAuthorizationService) invalidateRole(ctx context.Context, roleID uuid.UUID) {
	s.cache.Delete(ctx, cache.RoleKey(roleID))
	s.cache.DeletePattern(ctx, cache.RolesListPattern())
	s.cache.DeletePattern(ctx, cache.UserPattern())
	s.cache.DeletePattern(ctx, cache.UsersListPattern())
}

func (s *CachedAuthorizationService) cacheJSON(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		slog.Error("failed to marshal cache payload", "key", key, "error", err)
		return
	}
	s.cache.Set(ctx, key, data, ttl)
}

func getCachedList[T any](ctx context.Context, c CacheClient, key string) ([]T, int64, bool) {
	data, ok := c.Get(ctx, key)
	if !ok {
		return nil, 0, false
	}
	var payload listPayload[T]
	if err := json.Unmarshal(data, &payload); err != nil {
		slog.Warn("discarding corrupt cache entry", "key", key)
		return nil, 0, false
	}
	return payload.Items, payload.Total, true
}

func validateRoleName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", NewValidationError("name", "must not be empty")
	}
	if len(trimmed) > maxRoleNameLength {
		return "", NewValidationError("name", "must be at most 255 characters")
	}
	return trimmed, nil
}
