package cache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestKeysAreDeterministic(t *testing.T) {
	id := uuid.MustParse("7a1e3f7e-68f9-4f5a-9d3c-2b1a0c9d8e7f")

	assert.Equal(t, "identity-api:user:7a1e3f7e-68f9-4f5a-9d3c-2b1a0c9d8e7f", UserKey(id))
	assert.Equal(t, "identity-api:role:7a1e3f7e-68f9-4f5a-9d3c-2b1a0c9d8e7f", RoleKey(id))
	assert.Equal(t, "identity-api:users:page:2:size:50", UsersListKey(2, 50))
	assert.Equal(t, "identity-api:roles:page:1:size:20", RolesListKey(1, 20))
	assert.Equal(t, "identity-api:kc:profile:abc-123", ProfileKey("abc-123"))
}

func TestPatternsCoverKeys(t *testing.T) {
	// List patterns must match list keys but not single-entity keys,
	// since the invalidation table distinguishes the two.
	assert.Equal(t, "identity-api:users:*", UsersListPattern())
	assert.Equal(t, "identity-api:user:*", UserPattern())
	assert.Equal(t, "identity-api:roles:*", RolesListPattern())
	assert.Equal(t, "identity-api:kc:profile:*", ProfilePattern())
}

func TestDisabledCacheIsSafe(t *testing.T) {
	c := &Cache{}
	assert.False(t, c.Enabled())
	_, ok := c.Get(context.Background(), "any")
	assert.False(t, ok)
	// No-ops, must not panic.
	c.Set(context.Background(), "any", []byte("x"), 0)
	c.Delete(context.Background(), "any")
	c.DeletePattern(context.Background(), "any:*")
	assert.NoError(t, c.Close())
}
