package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/cache"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/keycloak"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/pagination"
)

// IdentityProvider is the slice of the Keycloak client the service depends
// on. Tests substitute a scripted double.
type IdentityProvider interface {
	IsConfigured() bool
	ProfileCacheTTL() time.Duration
	CreateUser(ctx context.Context, email string, firstName, lastName *string, password string) (string, error)
	GetUser(ctx context.Context, keycloakID string) (*keycloak.Profile, error)
	UpdateUser(ctx context.Context, keycloakID string, firstName, lastName *string) error
	DeleteUser(ctx context.Context, keycloakID string) error
	FindUsersByEmail(ctx context.Context, email string) ([]keycloak.Profile, error)
}

// FullIdentity is the merged view of one user: authorization data from the
// local store joined with profile data from the identity provider.
type FullIdentity struct {
	ID            uuid.UUID     `json:"id"`
	KeycloakID    string        `json:"keycloak_id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Enabled       bool          `json:"enabled"`
	EmailVerified bool          `json:"email_verified"`
	Roles         []models.Role `json:"roles"`
	CreatedAt     time.Time     `json:"created_at"`
}

// IdentityService coordinates the identity provider and the local
// authorization store. Writes follow a compensating-transaction protocol
// (identity first, local second, compensate on local failure); reads merge
// the two sources and degrade gracefully when the provider is unreachable.
type IdentityService struct {
	authz    *CachedAuthorizationService
	provider IdentityProvider
	cache    CacheClient
}

func NewIdentityService(authz *CachedAuthorizationService, provider IdentityProvider, cacheClient CacheClient) *IdentityService {
	return &IdentityService{authz: authz, provider: provider, cache: cacheClient}
}

// CreateUser runs the create saga. The provider identity is created first;
// if persisting the local record fails, the identity is deleted again on
// this same call path before the error returns. A failed compensation
// leaves an orphaned identity, which is logged at ERROR and reported to
// Sentry for manual cleanup; the caller still sees the original error.
func (s *IdentityService) CreateUser(ctx context.Context, email string, firstName, lastName *string, password string) (*FullIdentity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, NewValidationError("email", "must not be empty")
	}
	if !strings.Contains(email, "@") {
		return nil, NewValidationError("email", "must be a valid email address")
	}

	keycloakID, err := s.provider.CreateUser(ctx, email, firstName, lastName, password)
	if err != nil {
		if errors.Is(err, keycloak.ErrUserExists) {
			return nil, fmt.Errorf("%w: %s", ErrEmailExists, email)
		}
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	user, err := s.authz.CreateUser(ctx, keycloakID)
	if err != nil {
		s.compensateCreate(ctx, keycloakID, err)
		return nil, err
	}

	return s.mergeUser(ctx, user), nil
}

// compensationTimeout bounds the rollback delete so a detached
// compensation cannot hang forever.
const compensationTimeout = 10 * time.Second

// compensateCreate deletes the just-created provider identity after the
// local write failed. Awaited, never fire-and-forget: when this returns,
// either both sides rolled back or the orphan has been reported. The
// delete runs on a context detached from the caller's cancellation,
// otherwise a request cancelled mid-saga could never roll back.
func (s *IdentityService) compensateCreate(ctx context.Context, keycloakID string, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if delErr := s.provider.DeleteUser(ctx, keycloakID); delErr != nil {
		slog.Error("compensation failed, orphaned keycloak identity requires manual cleanup",
			"operation", "identity.create.compensate",
			"keycloak_id", keycloakID,
			"cause", cause,
			"error", delErr,
		)
		sentry.CaptureException(fmt.Errorf("orphaned keycloak identity %s: %w", keycloakID, delErr))
		return
	}
	slog.Warn("local create failed, keycloak identity rolled back",
		"operation", "identity.create.compensate",
		"keycloak_id", keycloakID,
		"cause", cause,
	)
}

// GetUser returns the merged identity, or (nil, nil) when the user does
// not exist locally. Provider failures never fail this read.
func (s *IdentityService) GetUser(ctx context.Context, id uuid.UUID) (*FullIdentity, error) {
	user, err := s.authz.GetUser(ctx, id)
	if err != nil || user == nil {
		return nil, err
	}
	return s.mergeUser(ctx, user), nil
}

func (s *IdentityService) ListUsers(ctx context.Context, params pagination.Params) ([]FullIdentity, int64, error) {
	users, total, err := s.authz.ListUsers(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return s.mergeUsers(ctx, users), total, nil
}

func (s *IdentityService) ListUsersByRole(ctx context.Context, roleID uuid.UUID, params pagination.Params) ([]FullIdentity, int64, error) {
	users, total, err := s.authz.ListUsersByRole(ctx, roleID, params)
	if err != nil {
		return nil, 0, err
	}
	return s.mergeUsers(ctx, users), total, nil
}

// UpdateUser pushes profile changes to the provider. No local column
// changes; the local record only anchors the keycloak id.
func (s *IdentityService) UpdateUser(ctx context.Context, id uuid.UUID, firstName, lastName *string) (*FullIdentity, error) {
	user, err := s.authz.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotFound
	}

	if err := s.provider.UpdateUser(ctx, user.KeycloakID, firstName, lastName); err != nil {
		if errors.Is(err, keycloak.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update identity: %w", err)
	}

	s.cache.Delete(ctx, cache.ProfileKey(user.KeycloakID))
	return s.mergeUser(ctx, user), nil
}

// DeleteUser removes the provider identity first, then the local record.
// If the local delete fails after the provider delete succeeded, the
// remaining local row points at a dead identity until retried; that window
// is logged rather than hidden.
func (s *IdentityService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.authz.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotFound
	}

	if err := s.provider.DeleteUser(ctx, user.KeycloakID); err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	s.cache.Delete(ctx, cache.ProfileKey(user.KeycloakID))

	if err := s.authz.DeleteUser(ctx, id); err != nil {
		slog.Error("local delete failed after keycloak delete, retry required",
			"operation", "identity.delete",
			"user_id", id,
			"keycloak_id", user.KeycloakID,
			"error", err,
		)
		return err
	}
	return nil
}

// SyncFromKeycloak ensures a local record exists for an identity that was
// created out of band (e.g. through the Keycloak admin console) and
// returns the merged view.
func (s *IdentityService) SyncFromKeycloak(ctx context.Context, keycloakID string) (*FullIdentity, error) {
	user, err := s.authz.GetUserByKeycloakID(ctx, keycloakID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = s.authz.CreateUser(ctx, keycloakID)
		if err != nil {
			return nil, err
		}
	}
	return s.mergeUser(ctx, user), nil
}

func (s *IdentityService) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	return s.authz.CreateRole(ctx, name)
}

func (s *IdentityService) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return s.authz.GetRole(ctx, id)
}

func (s *IdentityService) UpdateRole(ctx context.Context, id uuid.UUID, name string) (*models.Role, error) {
	return s.authz.UpdateRole(ctx, id, name)
}

func (s *IdentityService) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.authz.DeleteRole(ctx, id)
}

func (s *IdentityService) ListRoles(ctx context.Context, params pagination.Params) ([]models.Role, int64, error) {
	return s.authz.ListRoles(ctx, params)
}

func (s *IdentityService) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := s.authz.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateProfile(ctx, userID)
	return nil
}

func (s *IdentityService) UnassignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if err := s.authz.UnassignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.invalidateProfile(ctx, userID)
	return nil
}

func (s *IdentityService) invalidateProfile(ctx context.Context, userID uuid.UUID) {
	user, err := s.authz.GetUser(ctx, userID)
	if err != nil || user == nil {
		return
	}
	s.cache.Delete(ctx, cache.ProfileKey(user.KeycloakID))
}

func (s *IdentityService) mergeUsers(ctx context.Context, users []models.User) []FullIdentity {
	merged := make([]FullIdentity, 0, len(users))
	for i := range users {
		merged = append(merged, *s.mergeUser(ctx, &users[i]))
	}
	return merged
}

func (s *IdentityService) mergeUser(ctx context.Context, user *models.User) *FullIdentity {
	identity := &FullIdentity{
		ID:         user.ID,
		KeycloakID: user.KeycloakID,
		Roles:      user.Roles,
		CreatedAt:  user.CreatedAt,
	}
	if identity.Roles == nil {
		identity.Roles = []models.Role{}
	}

	profile := s.profileFor(ctx, user.KeycloakID)
	if profile == nil {
		identity.Name = degradedName(user.KeycloakID)
		identity.Enabled = true
		identity.EmailVerified = false
		return identity
	}

	identity.Name = profile.DisplayName()
	if profile.Email != nil {
		identity.Email = *profile.Email
	}
	identity.Enabled = profile.Enabled
	identity.EmailVerified = profile.EmailVerified
	return identity
}

// profileFor resolves the provider profile cache-first. Any failure, an
// unconfigured provider included, returns nil and the caller synthesizes a
// degraded profile.
func (s *IdentityService) profileFor(ctx context.Context, keycloakID string) *keycloak.Profile {
	key := cache.ProfileKey(keycloakID)
	if data, ok := s.cache.Get(ctx, key); ok {
		var cached keycloak.Profile
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached
		}
		slog.Warn("discarding corrupt cache entry", "key", key)
	}

	if !s.provider.IsConfigured() {
		return nil
	}

	profile, err := s.provider.GetUser(ctx, keycloakID)
	if err != nil {
		slog.Warn("keycloak profile fetch failed, serving degraded profile",
			"keycloak_id", keycloakID,
			"error", err,
		)
		return nil
	}
	if profile == nil {
		slog.Warn("keycloak profile missing for known user", "keycloak_id", keycloakID)
		return nil
	}

	if data, err := json.Marshal(profile); err == nil {
		s.cache.Set(ctx, key, data, s.provider.ProfileCacheTTL())
	}
	return profile
}

// degradedName is the placeholder shown when the provider cannot supply a
// profile, derived from the first 8 characters of the keycloak id.
func degradedName(keycloakID string) string {
	short := keycloakID
	if len(short) > 8 {
		short = short[:8]
	}
	return "User " + short
}
