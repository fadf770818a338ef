package cache

import (
	"fmt"

	"github.com/google/uuid"
)

const prefix = "identity-api"

func UserKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:user:%s", prefix, userID)
}

func UsersListKey(page, pageSize int) string {
	return fmt.Sprintf("%s:users:page:%d:size:%d", prefix, page, pageSize)
}

// UsersByRoleKey shares the users: prefix so the users list pattern
// invalidates by-role pages too.
func UsersByRoleKey(roleID uuid.UUID, page, pageSize int) string {
	return fmt.Sprintf("%s:users:role:%s:page:%d:size:%d", prefix, roleID, page, pageSize)
}

func RoleKey(roleID uuid.UUID) string {
	return fmt.Sprintf("%s:role:%s", prefix, roleID)
}

func RolesListKey(page, pageSize int) string {
	return fmt.Sprintf("%s:roles:page:%d:size:%d", prefix, page, pageSize)
}

func ProfileKey(keycloakID string) string {
	return fmt.Sprintf("%s:kc:profile:%s", prefix, keycloakID)
}

func UserPattern() string {
	return prefix + ":user:*"
}

func UsersListPattern() string {
	return prefix + ":users:*"
}

func RolesListPattern() string {
	return prefix + ":roles:*"
}

func ProfilePattern() string {
	return prefix + ":kc:profile:*"
}
