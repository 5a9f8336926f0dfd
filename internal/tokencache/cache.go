// Package tokencache maps credential app_id to a cached bearer token (C3).
// Refresh happens on miss or within 60s of expiry.
package tokencache

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const refreshSkew = 60 * time.Second

type entry struct {
	token     string
	expiresAt time.Time
}

// RefreshFunc performs the OAuth client-credentials grant for one
// credential and returns the bearer token and its server-declared lifetime.
type RefreshFunc func(ctx context.Context) (token string, expiresIn time.Duration, err error)

// Cache is a process-local, concurrency-safe app_id -> token map.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
}

// New builds an empty token cache.
func New() *Cache {
	return &Cache{entries: make(map[string]entry)}
}

// Get returns a valid bearer token for appID, calling refresh on a cache
// miss or when the cached token is within 60s of expiry.
func (c *Cache) Get(ctx context.Context, appID string, refresh RefreshFunc) (string, error) {
	c.mu.Lock()
	e, ok := c.entries[appID]
	c.mu.Unlock()

	if ok && time.Until(e.expiresAt) > refreshSkew {
		return e.token, nil
	}

	token, expiresIn, err := refresh(ctx)
	if err != nil {
		return "", err
	}
	expiresAt := time.Now().Add(expiresIn)

	// Best-effort cross-check: if the access token happens to be a JWT,
	// reconcile its exp claim with the server's expires_in and trust
	// whichever is sooner. Opaque (non-JWT) tokens are the expected case for
	// this upstream and simply fall back to expires_in alone.
	if claimed, ok := jwtExpiry(token); ok && claimed.Before(expiresAt) {
		expiresAt = claimed
	}

	c.mu.Lock()
	c.entries[appID] = entry{token: token, expiresAt: expiresAt}
	c.mu.Unlock()

	return token, nil
}

// Evict removes a cached token, e.g. after a 401 marks the credential as
// errored — the stale token must never be reused even if it looks unexpired.
func (c *Cache) Evict(appID string) {
	c.mu.Lock()
	delete(c.entries, appID)
	c.mu.Unlock()
}

func jwtExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, ok := claims["exp"]
	if !ok {
		return time.Time{}, false
	}
	switch v := exp.(type) {
	case float64:
		return time.Unix(int64(v), 0), true
	default:
		return time.Time{}, false
	}
}
