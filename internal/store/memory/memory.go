// Package memory provides an in-memory AuthorizationStore used by service
// tests and local development without a database. Call counts are recorded
// per method so tests can assert query behavior (e.g. the batched role
// loader issuing zero or one store round trips).
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/models"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/pagination"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
)

type Store struct {
	mu        sync.Mutex
	users     map[uuid.UUID]models.User
	userOrder []uuid.UUID
	roles     map[uuid.UUID]models.Role
	roleOrder []uuid.UUID
	links     map[uuid.UUID]map[uuid.UUID]bool // user id -> role ids

	calls map[string]int

	// Fault injection for saga and error-path tests.
	CreateUserErr    error
	DeleteUserErr    error
	RolesForUsersErr error
}

func New() *Store {
	return &Store{
		users: make(map[uuid.UUID]models.User),
		roles: make(map[uuid.UUID]models.Role),
		links: make(map[uuid.UUID]map[uuid.UUID]bool),
		calls: make(map[string]int),
	}
}

func (s *Store) record(method string) {
	s.calls[method]++
}

// Calls returns how many times the given method was invoked.
func (s *Store) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Store) CreateUser(_ context.Context, keycloakID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateUser")

	if s.CreateUserErr != nil {
		return nil, s.CreateUserErr
	}
	for _, u := range s.users {
		if u.KeycloakID == keycloakID {
			return nil, services.ErrKeycloakIDExists
		}
	}

	user := models.User{
		ID:         uuid.New(),
		KeycloakID: keycloakID,
		Roles:      []models.Role{},
		CreatedAt:  time.Now(),
	}
	s.users[user.ID] = user
	s.userOrder = append(s.userOrder, user.ID)
	copied := user
	return &copied, nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetUser")

	user, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	copied := user
	return &copied, nil
}

func (s *Store) GetUserByKeycloakID(_ context.Context, keycloakID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetUserByKeycloakID")

	for _, u := range s.users {
		if u.KeycloakID == keycloakID {
			copied := u
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteUser")

	if s.DeleteUserErr != nil {
		return s.DeleteUserErr
	}
	if _, ok := s.users[id]; !ok {
		return services.ErrNotFound
	}
	delete(s.users, id)
	delete(s.links, id)
	s.userOrder = removeID(s.userOrder, id)
	return nil
}

func (s *Store) ListUsers(_ context.Context, params pagination.Params) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListUsers")

	return paginateUsers(s.userOrder, s.users, params)
}

func (s *Store) ListUsersByRole(_ context.Context, roleID uuid.UUID, params pagination.Params) ([]models.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListUsersByRole")

	var matching []uuid.UUID
	for _, id := range s.userOrder {
		if s.links[id][roleID] {
			matching = append(matching, id)
		}
	}
	return paginateUsers(matching, s.users, params)
}

func (s *Store) CreateRole(_ context.Context, name string) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateRole")

	for _, r := range s.roles {
		if r.Name == name {
			return nil, services.ErrRoleNameExists
		}
	}
	role := models.Role{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	s.roles[role.ID] = role
	s.roleOrder = append(s.roleOrder, role.ID)
	copied := role
	return &copied, nil
}

func (s *Store) GetRole(_ context.Context, id uuid.UUID) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetRole")

	role, ok := s.roles[id]
	if !ok {
		return nil, nil
	}
	copied := role
	return &copied, nil
}

func (s *Store) GetRoleByName(_ context.Context, name string) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetRoleByName")

	for _, r := range s.roles {
		if r.Name == name {
			copied := r
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateRole(_ context.Context, id uuid.UUID, name string) (*models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdateRole")

	role, ok := s.roles[id]
	if !ok {
		return nil, services.ErrNotFound
	}
	for otherID, r := range s.roles {
		if otherID != id && r.Name == name {
			return nil, services.ErrRoleNameExists
		}
	}
	role.Name = name
	s.roles[id] = role
	copied := role
	return &copied, nil
}

func (s *Store) DeleteRole(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("DeleteRole")

	if _, ok := s.roles[id]; !ok {
		return services.ErrNotFound
	}
	delete(s.roles, id)
	s.roleOrder = removeID(s.roleOrder, id)
	for userID := range s.links {
		delete(s.links[userID], id)
	}
	return nil
}

func (s *Store) ListRoles(_ context.Context, params pagination.Params) ([]models.Role, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("ListRoles")

	total := int64(len(s.roleOrder))
	start, end := pageBounds(len(s.roleOrder), params)
	roles := make([]models.Role, 0, end-start)
	for _, id := range s.roleOrder[start:end] {
		roles = append(roles, s.roles[id])
	}
	return roles, total, nil
}

func (s *Store) AssignRole(_ context.Context, userID, roleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("AssignRole")

	if _, ok := s.users[userID]; !ok {
		return services.ErrNotFound
	}
	if _, ok := s.roles[roleID]; !ok {
		return services.ErrNotFound
	}
	if s.links[userID][roleID] {
		return services.ErrAlreadyAssigned
	}
	if s.links[userID] == nil {
		s.links[userID] = make(map[uuid.UUID]bool)
	}
	s.links[userID][roleID] = true
	return nil
}

func (s *Store) UnassignRole(_ context.Context, userID, roleID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UnassignRole")

	if !s.links[userID][roleID] {
		return services.ErrNotFound
	}
	delete(s.links[userID], roleID)
	return nil
}

func (s *Store) RolesForUser(_ context.Context, userID uuid.UUID) ([]models.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("RolesForUser")

	roles := []models.Role{}
	for roleID := range s.links[userID] {
		roles = append(roles, s.roles[roleID])
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (s *Store) RolesForUsers(_ context.Context, userIDs []uuid.UUID) ([]models.RoleAssignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("RolesForUsers")

	if s.RolesForUsersErr != nil {
		return nil, s.RolesForUsersErr
	}
	var rows []models.RoleAssignment
	for _, userID := range userIDs {
		for roleID := range s.links[userID] {
			rows = append(rows, models.RoleAssignment{
				UserID:   userID,
				RoleID:   roleID,
				RoleName: s.roles[roleID].Name,
			})
		}
	}
	return rows, nil
}

func paginateUsers(order []uuid.UUID, users map[uuid.UUID]models.User, params pagination.Params) ([]models.User, int64, error) {
	total := int64(len(order))
	start, end := pageBounds(len(order), params)
	page := make([]models.User, 0, end-start)
	for _, id := range order[start:end] {
		page = append(page, users[id])
	}
	return page, total, nil
}

func pageBounds(n int, params pagination.Params) (int, int) {
	start := params.Offset()
	if start > n {
		start = n
	}
	end := start + params.Limit()
	if end > n {
		end = n
	}
	return start, end
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
