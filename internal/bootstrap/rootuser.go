// Package bootstrap seeds the initial administrator so a fresh deployment
// is manageable without manual database edits.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/config"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/keycloak"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

const adminRoleName = "admin"

// EnsureRootUser makes sure the configured root user exists in Keycloak,
// has a local record, and holds the admin role. Every step is idempotent,
// so a crash between steps heals on the next startup.
func EnsureRootUser(
	ctx context.Context,
	cfg *config.Config,
	identity *services.IdentityService,
	authz *services.CachedAuthorizationService,
	provider services.IdentityProvider,
) error {
	if cfg.RootUserEmail == "" {
		slog.Info("root user bootstrap skipped, ROOT_USER_EMAIL not set")
		return nil
	}
	if !provider.IsConfigured() {
		slog.Warn("root user bootstrap skipped, keycloak not configured")
		return nil
	}

	keycloakID, err := ensureIdentity(ctx, cfg, provider)
	if err != nil {
		return fmt.Errorf("failed to ensure root identity: %w", err)
	}

	root, err := identity.SyncFromKeycloak(ctx, keycloakID)
	if err != nil {
		return fmt.Errorf("failed to ensure local root user: %w", err)
	}

	role, err := ensureAdminRole(ctx, authz)
	if err != nil {
		return err
	}

	if err := authz.AssignRole(ctx, root.ID, role.ID); err != nil {
		if !errors.Is(err, services.ErrAlreadyAssigned) {
			return fmt.Errorf("failed to assign admin role: %w", err)
		}
	}

	slog.Info("root user ready", "email", cfg.RootUserEmail, "user_id", root.ID)
	return nil
}

func ensureIdentity(ctx context.Context, cfg *config.Config, provider services.IdentityProvider) (string, error) {
	profiles, err := provider.FindUsersByEmail(ctx, cfg.RootUserEmail)
	if err != nil {
		return "", err
	}
	if len(profiles) > 0 {
		return profiles[0].ID, nil
	}

	first := cfg.RootUserFirstName
	last := cfg.RootUserLastName
	keycloakID, err := provider.CreateUser(ctx, cfg.RootUserEmail, &first, &last, cfg.RootUserPassword)
	if err == nil {
		return keycloakID, nil
	}
	if !errors.Is(err, keycloak.ErrUserExists) {
		return "", err
	}

	// Lost the race against another instance; the identity exists now.
	profiles, err = provider.FindUsersByEmail(ctx, cfg.RootUserEmail)
	if err != nil {
		return "", err
	}
	if len(profiles) == 0 {
		return "", fmt.Errorf("root identity reported as existing but not found by email")
	}
	return profiles[0].ID, nil
}

func ensureAdminRole(ctx context.Context, authz *services.CachedAuthorizationService) (*models.Role, error) {
	role, err := authz.GetRoleByName(ctx, adminRoleName)
	if err != nil {
		return nil, fmt.Errorf("failed to look up admin role: %w", err)
	}
	if role != nil {
		return role, nil
	}

	role, err = authz.CreateRole(ctx, adminRoleName)
	if err == nil {
		return role, nil
	}
	if errors.Is(err, services.ErrRoleNameExists) {
		role, lookupErr := authz.GetRoleByName(ctx, adminRoleName)
		if lookupErr == nil && role != nil {
			return role, nil
		}
	}
	return nil, fmt.Errorf("failed to create admin role: %w", err)
}
