package siar

import (
	"context"
	"sync"

	"github.com/Miguel-byte-breath/sig-riego-rdc-siar-pm/internal/metrics"
)

// TokenProvider owns the process-wide cached SIAR token. The token carries
// no client-side expiry; it is reused until the data endpoint rejects it,
// at which point the caller invalidates and re-acquires once.
type TokenProvider struct {
	client *Client
	user   string
	pass   string

	mu    sync.Mutex
	token string
}

// NewTokenProvider creates a provider for the configured credentials. Empty
// credentials are tolerated here so the service can start without them;
// Token fails fast before touching the network.
func NewTokenProvider(client *Client, user, pass string) *TokenProvider {
	return &TokenProvider{client: client, user: user, pass: pass}
}

// Token returns the cached token, acquiring a fresh one when the cache is
// empty. Acquisition runs under the same mutex that guards the cache, so
// concurrent callers serialize rather than racing the auth endpoints.
func (t *TokenProvider) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" {
		return t.token, nil
	}

	if t.user == "" || t.pass == "" {
		return "", ErrMissingCredentials
	}

	cipheredUser, err := t.client.CipherString(ctx, t.user)
	if err != nil {
		return "", err
	}
	cipheredPass, err := t.client.CipherString(ctx, t.pass)
	if err != nil {
		return "", err
	}
	token, err := t.client.ObtainToken(ctx, cipheredUser, cipheredPass)
	if err != nil {
		return "", err
	}

	metrics.TokenRefreshTotal.Inc()
	t.token = token
	return t.token, nil
}

// Invalidate clears the cached token, forcing the next Token call to
// re-authenticate.
func (t *TokenProvider) Invalidate() {
	t.mu.Lock()
	t.token = ""
	t.mu.Unlock()
}
