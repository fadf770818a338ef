package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

type CreateUserRequest struct {
	Email     string  `json:"email"`
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Password  string  `json:"password,omitempty"`
}

type UpdateUserRequest struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
}

type SyncUserRequest struct {
	KeycloakID string `json:"keycloak_id"`
}

type UserResponse struct {
	ID            uuid.UUID      `json:"id"`
	KeycloakID    string         `json:"keycloak_id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	Enabled       bool           `json:"enabled"`
	EmailVerified bool           `json:"email_verified"`
	Roles         []RoleResponse `json:"roles"`
	CreatedAt     time.Time      `json:"created_at"`
}

func NewUserResponse(identity *services.FullIdentity) UserResponse {
	roles := make([]RoleResponse, 0, len(identity.Roles))
	for _, r := range identity.Roles {
		roles = append(roles, RoleResponse{ID: r.ID, Name: r.Name})
	}
	return UserResponse{
		ID:            identity.ID,
		KeycloakID:    identity.KeycloakID,
		Name:          identity.Name,
		Email:         identity.Email,
		Enabled:       identity.Enabled,
		EmailVerified: identity.EmailVerified,
		Roles:         roles,
		CreatedAt:     identity.CreatedAt,
	}
}

func NewUserResponses(identities []services.FullIdentity) []UserResponse {
	out := make([]UserResponse, 0, len(identities))
	for i := range identities {
		out = append(out, NewUserResponse(&identities[i]))
	}
	return out
}
