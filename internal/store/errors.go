package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

const uniqueViolation = "23505"

// mapDBError translates Postgres unique violations into the per-constraint
// conflict sentinels. Anything else stays a wrapped infrastructure error.
func mapDBError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		constraint := strings.ToLower(pgErr.ConstraintName)
		switch {
		case strings.Contains(constraint, "roles_name"):
			return services.ErrRoleNameExists
		case strings.Contains(constraint, "keycloak"):
			return services.ErrKeycloakIDExists
		case strings.Contains(constraint, "user_roles"):
			return services.ErrAlreadyAssigned
		}
	}
	return fmt.Errorf("database error: %w", err)
}
