package orchestration

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"
)

// ErrCredentialUnavailable wraps provider failures. Retrying a dial cannot
// help until the provider can issue again, so the connection layer treats it
// as fatal rather than a transport blip.
var ErrCredentialUnavailable = errors.New("credential unavailable")

// Credential is an opaque, possibly time-limited token for negotiating with
// the peer. A zero ExpiresAt means the credential never expires.
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

func (c Credential) expiringWithin(margin time.Duration) bool {
	if c.ExpiresAt.IsZero() {
		return false
	}
	return time.Until(c.ExpiresAt) <= margin
}

// CredentialProvider issues credentials for (re)negotiation. The orchestrator
// only consumes credentials; issuance lives outside this module.
type CredentialProvider interface {
	Credential(ctx context.Context) (Credential, error)
}

// StaticCredentialProvider returns a fixed credential.
type StaticCredentialProvider struct {
	Value Credential
}

func (p StaticCredentialProvider) Credential(context.Context) (Credential, error) {
	return p.Value, nil
}

// EnvCredentialProvider reads the credential from an environment variable.
type EnvCredentialProvider struct {
	Var string
}

func (p EnvCredentialProvider) Credential(context.Context) (Credential, error) {
	token, ok := os.LookupEnv(p.Var)
	if !ok || token == "" {
		return Credential{}, fmt.Errorf("credential not found in %s", p.Var)
	}
	return Credential{Token: token}, nil
}

// refreshMargin is how close to expiry a cached credential may get before
// the provider is asked for a fresh one.
const refreshMargin = 30 * time.Second

// credentialCache wraps a provider and re-queries it only when the cached
// credential is missing or about to expire.
type credentialCache struct {
	provider CredentialProvider

	mu     sync.Mutex
	cached Credential
}

func newCredentialCache(provider CredentialProvider) *credentialCache {
	return &credentialCache{provider: provider}
}

func (c *credentialCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached.Token != "" && !c.cached.expiringWithin(refreshMargin) {
		return c.cached.Token, nil
	}

	credential, err := c.provider.Credential(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrCredentialUnavailable, err)
	}
	c.cached = credential
	return credential.Token, nil
}

func (c *credentialCache) Invalidate() {
	c.mu.Lock()
	c.cached = Credential{}
	c.mu.Unlock()
}
