package dto

import (
	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
)

type CreateRoleRequest struct {
	Name string `json:"name"`
}

type UpdateRoleRequest struct {
	Name string `json:"name"`
}

type RoleResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

func NewRoleResponse(role *models.Role) RoleResponse {
	return RoleResponse{ID: role.ID, Name: role.Name}
}

func NewRoleResponses(roles []models.Role) []RoleResponse {
	out := make([]RoleResponse, 0, len(roles))
	for i := range roles {
		out = append(out, NewRoleResponse(&roles[i]))
	}
	return out
}
