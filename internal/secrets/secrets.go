package secrets

import (
	"os"
	"sync"
)

// Provider resolves a named secret. Implementations return identity facts
// only; precedence between sources is the Chain's job.
type Provider interface {
	// Name returns the provider identifier (e.g. "env", "static").
	Name() string

	// Get returns the secret value and whether it was found.
	Get(name string) (string, bool)
}

// EnvProvider reads secrets from environment variables.
type EnvProvider struct{}

func (EnvProvider) Name() string { return "env" }

func (EnvProvider) Get(name string) (string, bool) {
	val := os.Getenv(name)
	return val, val != ""
}

// StaticProvider serves secrets from a fixed map. Used as a low-precedence
// fallback for defaults and in tests.
type StaticProvider struct {
	values map[string]string
}

func NewStaticProvider(values map[string]string) *StaticProvider {
	return &StaticProvider{values: values}
}

func (*StaticProvider) Name() string { return "static" }

func (p *StaticProvider) Get(name string) (string, bool) {
	val, ok := p.values[name]
	return val, ok
}

// Chain tries providers in order; the first hit wins and is memoized so
// repeated lookups don't re-query slower providers.
type Chain struct {
	providers []Provider
	mu        sync.RWMutex
	cache     map[string]string
}

func NewChain(providers ...Provider) *Chain {
	return &Chain{
		providers: providers,
		cache:     make(map[string]string),
	}
}

func (c *Chain) Get(name string) (string, bool) {
	c.mu.RLock()
	if val, ok := c.cache[name]; ok {
		c.mu.RUnlock()
		return val, true
	}
	c.mu.RUnlock()

	for _, p := range c.providers {
		if val, ok := p.Get(name); ok {
			c.mu.Lock()
			c.cache[name] = val
			c.mu.Unlock()
			return val, true
		}
	}
	return "", false
}

// GetOr returns the resolved secret or fallback when no provider has it.
func (c *Chain) GetOr(name, fallback string) string {
	if val, ok := c.Get(name); ok {
		return val
	}
	return fallback
}

// Default is the chain used by config loading: environment first.
func Default() *Chain {
	return NewChain(EnvProvider{})
}
