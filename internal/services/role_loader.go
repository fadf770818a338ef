package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
)

// membershipSource is the slice of the store the loader needs.
type membershipSource interface {
	RolesForUsers(ctx context.Context, userIDs []uuid.UUID) ([]models.RoleAssignment, error)
}

// BatchedRoleLoader resolves role memberships for a page of users with a
// single store round trip instead of one query per user.
type BatchedRoleLoader struct {
	source membershipSource
}

func NewBatchedRoleLoader(source membershipSource) *BatchedRoleLoader {
	return &BatchedRoleLoader{source: source}
}

// LoadRoles returns the roles of every requested user keyed by user id. Every
// input id is present in the result; users without assignments map to an
// empty slice. An empty input returns an empty map without touching the
// store.
func (l *BatchedRoleLoader) LoadRoles(ctx context.Context, userIDs []uuid.UUID) (map[uuid.UUID][]models.Role, error) {
	result := make(map[uuid.UUID][]models.Role, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	for _, id := range userIDs {
		result[id] = []models.Role{}
	}

	rows, err := l.source.RolesForUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.UserID] = append(result[row.UserID], models.Role{
			ID:   row.RoleID,
			Name: row.RoleName,
		})
	}
	return result, nil
}

// Attach decorates a page of users with their roles in one batch.
func (l *BatchedRoleLoader) Attach(ctx context.Context, users []models.User) error {
	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	byUser, err := l.LoadRoles(ctx, ids)
	if err != nil {
		return err
	}
	for i := range users {
		users[i].Roles = byUser[users[i].ID]
	}
	return nil
}
