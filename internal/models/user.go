package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the local authorization record. Profile data (name, email,
// enablement) lives in Keycloak and is merged at read time; the only
// external fact stored here is the Keycloak id, which is immutable
// after creation.
type User struct {
	ID         uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	KeycloakID string    `gorm:"size:36;not null;uniqueIndex:idx_users_keycloak_id" json:"keycloak_id"`
	Roles      []Role    `gorm:"-" json:"roles"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
