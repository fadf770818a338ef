package services_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/cache"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/services"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/store/memory"
)

func testTTLs() services.CacheTTLs {
	return services.CacheTTLs{
		User: 5 * time.Minute,
		Role: 10 * time.Minute,
		List: time.Minute,
	}
}

func TestGetUserCacheAside(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fc := newFakeCache()
	svc := services.NewCachedAuthorizationService(store, fc, testTTLs())

	created, err := svc.CreateUser(ctx, "kc-cache-1")
	require.NoError(t, err)

	first, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, first)
	storeHits := store.Calls("GetUser")

	second, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	// The second read was served from the cache.
	assert.Equal(t, storeHits, store.Calls("GetUser"))
}

func TestGetUserCorruptEntryFallsThrough(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fc := newFakeCache()
	svc := services.NewCachedAuthorizationService(store, fc, testTTLs())

	created, err := svc.CreateUser(ctx, "kc-corrupt")
	require.NoError(t, err)

	fc.Set(ctx, cache.UserKey(created.ID), []byte("{not json"), time.Minute)

	user, err := svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "kc-corrupt", user.KeycloakID)
}

func TestListUsersCachesPageWithRoles(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fc := newFakeCache()
	svc := services.NewCachedAuthorizationService(store, fc, testTTLs())

	u1, err := svc.CreateUser(ctx, "kc-list-1")
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, "kc-list-2")
	require.NoError(t, err)
	role, err := svc.CreateRole(ctx, "admin")
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, u1.ID, role.ID))

	params := pageParams(1, 20)
	users, total, err := svc.ListUsers(ctx, params)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, users, 2)
	assert.Len(t, users[0].Roles, 1)
	assert.NotNil(t, users[1].Roles)
	assert.Empty(t, users[1].Roles)
	listCalls := store.Calls("ListUsers")

	_, _, err = svc.ListUsers(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, listCalls, store.Calls("ListUsers"))
}

func TestRoleRenameInvalidatesUserCaches(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fc := newFakeCache()
	svc := services.NewCachedAuthorizationService(store, fc, testTTLs())

	user, err := svc.CreateUser(ctx, "kc-rename")
	require.NoError(t, err)
	role, err := svc.CreateRole(ctx, "viewer")
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, user.ID, role.ID))

	// Warm the user entry; it embeds the old role name.
	_, err = svc.GetUser(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, fc.has(cache.UserKey(user.ID)))

	_, err = svc.UpdateRole(ctx, role.ID, "reader")
	require.NoError(t, err)

	assert.False(t, fc.has(cache.UserKey(user.ID)))
	assert.Contains(t, fc.deletedPatterns(), cache.UserPattern())
	assert.Contains(t, fc.deletedPatterns(), cache.UsersListPattern())
	assert.Contains(t, fc.deletedPatterns(), cache.RolesListPattern())
}

func TestAssignInvalidatesOnlyAffectedUser(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	fc := newFakeCache()
	svc := services.NewCachedAuthorizationService(store, fc, testTTLs())

	u1, err := svc.CreateUser(ctx, "kc-assign-1")
	require.NoError(t, err)
	u2, err := svc.CreateUser(ctx, "kc-assign-2")
	require.NoError(t, err)
	role, err := svc.CreateRole(ctx, "admin")
	require.NoError(t, err)

	// Warm both user entries.
	_, err = svc.GetUser(ctx, u1.ID)
	require.NoError(t, err)
	_, err = svc.GetUser(ctx, u2.ID)
	require.NoError(t, err)

	require.NoError(t, svc.AssignRole(ctx, u1.ID, role.ID))

	assert.False(t, fc.has(cache.UserKey(u1.ID)))
	assert.True(t, fc.has(cache.UserKey(u2.ID)))
}

func TestRoleNameValidation(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	svc := services.NewCachedAuthorizationService(store, newFakeCache(), testTTLs())

	_, err := svc.CreateRole(ctx, "   ")
	var vErr *services.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "name", vErr.Field)

	_, err = svc.CreateRole(ctx, strings.Repeat("x", 256))
	require.ErrorAs(t, err, &vErr)

	role, err := svc.CreateRole(ctx, "  admin  ")
	require.NoError(t, err)
	assert.Equal(t, "admin", role.Name)

	_, err = svc.CreateRole(ctx, "admin")
	assert.ErrorIs(t, err, services.ErrRoleNameExists)
}
