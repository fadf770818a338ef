package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/pagination"
)

// AuthorizationStore is the capability this layer needs from the relational
// store. Get methods return (nil, nil) when the record is absent; mutations
// on missing records return ErrNotFound, and duplicate keys map to the
// per-constraint conflict sentinels in errors.go.
type AuthorizationStore interface {
	CreateUser(ctx context.Context, keycloakID string) (*models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByKeycloakID(ctx context.Context, keycloakID string) (*models.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, params pagination.Params) ([]models.User, int64, error)
	ListUsersByRole(ctx context.Context, roleID uuid.UUID, params pagination.Params) ([]models.User, int64, error)

	CreateRole(ctx context.Context, name string) (*models.Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, name string) (*models.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	ListRoles(ctx context.Context, params pagination.Params) ([]models.Role, int64, error)

	AssignRole(ctx context.Context, userID, roleID uuid.UUID) error
	UnassignRole(ctx context.Context, userID, roleID uuid.UUID) error
	RolesForUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error)

	// RolesForUsers resolves role memberships for a set of users in a
	// single round trip; see BatchedRoleLoader for the grouping contract.
	RolesForUsers(ctx context.Context, userIDs []uuid.UUID) ([]models.RoleAssignment, error)
}
