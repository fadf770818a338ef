package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/pagination"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

// Store implements services.AuthorizationStore on PostgreSQL via gorm.
type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) CreateUser(ctx context.Context, keycloakID string) (*models.User, error) {
	user := models.User{ID: uuid.New(), KeycloakID: keycloakID}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, mapDBError(err)
	}
	user.Roles = []models.Role{}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetUserByKeycloakID(ctx context.Context, keycloakID string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "keycloak_id = ?", keycloakID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by keycloak id: %w", err)
	}
	return &user, nil
}

// DeleteUser removes the user and cascades the role links in one
// transaction.
func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete role links: %w", err)
		}
		result := tx.Delete(&models.User{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return services.ErrNotFound
		}
		return nil
	})
}

func (s *Store) ListUsers(ctx context.Context, params pagination.Params) ([]models.User, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	var users []models.User
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

func (s *Store) ListUsersByRole(ctx context.Context, roleID uuid.UUID, params pagination.Params) ([]models.User, int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN user_roles ur ON ur.user_id = users.id").
		Where("ur.role_id = ?", roleID).
		Count(&total).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count users by role: %w", err)
	}

	var users []models.User
	err = s.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN user_roles ur ON ur.user_id = users.id").
		Where("ur.role_id = ?", roleID).
		Order("users.created_at ASC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&users).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users by role: %w", err)
	}
	return users, total, nil
}

func (s *Store) CreateRole(ctx context.Context, name string) (*models.Role, error) {
	role := models.Role{ID: uuid.New(), Name: name}
	if err := s.db.WithContext(ctx).Create(&role).Error; err != nil {
		return nil, mapDBError(err)
	}
	return &role, nil
}

func (s *Store) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).First(&role, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

func (s *Store) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := s.db.WithContext(ctx).First(&role, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return &role, nil
}

func (s *Store) UpdateRole(ctx context.Context, id uuid.UUID, name string) (*models.Role, error) {
	result := s.db.WithContext(ctx).Model(&models.Role{}).Where("id = ?", id).Update("name", name)
	if result.Error != nil {
		return nil, mapDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, services.ErrNotFound
	}
	return s.GetRole(ctx, id)
}

func (s *Store) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&models.UserRole{}).Error; err != nil {
			return fmt.Errorf("failed to delete role links: %w", err)
		}
		result := tx.Delete(&models.Role{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete role: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return services.ErrNotFound
		}
		return nil
	})
}

func (s *Store) ListRoles(ctx context.Context, params pagination.Params) ([]models.Role, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Role{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count roles: %w", err)
	}

	var roles []models.Role
	err := s.db.WithContext(ctx).
		Order("created_at ASC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&roles).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, total, nil
}

func (s *Store) AssignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	if user, err := s.GetUser(ctx, userID); err != nil {
		return err
	} else if user == nil {
		return services.ErrNotFound
	}
	if role, err := s.GetRole(ctx, roleID); err != nil {
		return err
	} else if role == nil {
		return services.ErrNotFound
	}

	link := models.UserRole{UserID: userID, RoleID: roleID}
	if err := s.db.WithContext(ctx).Create(&link).Error; err != nil {
		return mapDBError(err)
	}
	return nil
}

func (s *Store) UnassignRole(ctx context.Context, userID, roleID uuid.UUID) error {
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND role_id = ?", userID, roleID).
		Delete(&models.UserRole{})
	if result.Error != nil {
		return fmt.Errorf("failed to unassign role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (s *Store) RolesForUser(ctx context.Context, userID uuid.UUID) ([]models.Role, error) {
	var roles []models.Role
	err := s.db.WithContext(ctx).
		Table("roles").
		Joins("JOIN user_roles ur ON ur.role_id = roles.id").
		Where("ur.user_id = ?", userID).
		Find(&roles).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get roles for user: %w", err)
	}
	return roles, nil
}

// RolesForUsers is the single-query membership lookup behind the batched
// role loader. Callers must not pass an empty slice; the loader guards that.
func (s *Store) RolesForUsers(ctx context.Context, userIDs []uuid.UUID) ([]models.RoleAssignment, error) {
	var rows []models.RoleAssignment
	err := s.db.WithContext(ctx).
		Table("user_roles ur").
		Select("ur.user_id AS user_id, r.id AS role_id, r.name AS role_name").
		Joins("JOIN roles r ON r.id = ur.role_id").
		Where("ur.user_id IN ?", userIDs).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to batch-load roles: %w", err)
	}
	return rows, nil
}
