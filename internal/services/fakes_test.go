package services_test

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ahmetcoskunkizilkaya/identity-api/internal/keycloak"
	"github.com/ahmetcoskunkizilkaya/identity-api/internal/pagination"
)

func pageParams(page, size int) pagination.Params {
	return pagination.New(page, size)
}

// fakeCache records every set and delete so invalidation tests can assert
// exactly which keys were touched.
type fakeCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	sets     []string
	deletes  []string
	patterns []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Enabled() bool { return true }

func (c *fakeCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	return data, ok
}

func (c *fakeCache) Set(_ context.Context, key string, value []byte, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets = append(c.sets, key)
}

func (c *fakeCache) Delete(_ context.Context, keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		delete(c.data, key)
		c.deletes = append(c.deletes, key)
	}
}

func (c *fakeCache) DeletePattern(_ context.Context, pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.patterns = append(c.patterns, pattern)
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
		}
	}
}

func (c *fakeCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

func (c *fakeCache) deletedPatterns() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.patterns...)
}

// fakeProvider is a scripted identity provider.
type fakeProvider struct {
	unconfigured bool

	createID  string
	createErr error
	profile   *keycloak.Profile
	getErr    error
	updateErr error
	deleteErr error

	createCalls int
	getCalls    int
	deleteCalls int
	deletedIDs  []string
}

func (p *fakeProvider) IsConfigured() bool             { return !p.unconfigured }
func (p *fakeProvider) ProfileCacheTTL() time.Duration { return 5 * time.Minute }

func (p *fakeProvider) CreateUser(_ context.Context, _ string, _, _ *string, _ string) (string, error) {
	p.createCalls++
	if p.createErr != nil {
		return "", p.createErr
	}
	return p.createID, nil
}

func (p *fakeProvider) GetUser(_ context.Context, _ string) (*keycloak.Profile, error) {
	p.getCalls++
	if p.getErr != nil {
		return nil, p.getErr
	}
	return p.profile, nil
}

func (p *fakeProvider) UpdateUser(_ context.Context, _ string, _, _ *string) error {
	return p.updateErr
}

func (p *fakeProvider) DeleteUser(ctx context.Context, keycloakID string) error {
	p.deleteCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.deleteErr != nil {
		return p.deleteErr
	}
	p.deletedIDs = append(p.deletedIDs, keycloakID)
	return nil
}

func (p *fakeProvider) FindUsersByEmail(_ context.Context, _ string) ([]keycloak.Profile, error) {
	return nil, nil
}

func strPtr(s string) *string { return &s }
