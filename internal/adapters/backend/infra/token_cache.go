package infra

import (
	"context"
	"sync"
	"time"

	"github.com/bnema/dcloud-assistant/internal/domain"
	"github.com/bnema/dcloud-assistant/internal/ports"
	"golang.org/x/sync/singleflight"
)

type TokenSource interface {
	Token(ctx context.Context, login domain.InfraLogin) (string, error)
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenCache reuses infra tokens for ttl and collapses concurrent logins for
// the same identity. A zero ttl disables caching entirely.
type TokenCache struct {
	source TokenSource
	ttl    time.Duration
	clock  ports.Clock

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]cachedToken
}

func NewTokenCache(source TokenSource, ttl time.Duration, clock ports.Clock) *TokenCache {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	return &TokenCache{
		source:  source,
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cachedToken),
	}
}

func (c *TokenCache) Token(ctx context.Context, login domain.InfraLogin) (string, error) {
	if c.ttl <= 0 {
		return c.source.Token(ctx, login)
	}

	key := login.AuthURL + "\x00" + login.User
	if token, ok := c.lookup(key); ok {
		return token, nil
	}

	value, err, _ := c.group.Do(key, func() (any, error) {
		if token, ok := c.lookup(key); ok {
			return token, nil
		}
		token, err := c.source.Token(ctx, login)
		if err != nil {
			return "", err
		}

		c.mu.Lock()
		c.entries[key] = cachedToken{value: token, expiresAt: c.clock.Now().Add(c.ttl)}
		c.mu.Unlock()
		return token, nil
	})
	if err != nil {
		return "", err
	}

	return value.(string), nil
}

func (c *TokenCache) lookup(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok || !c.clock.Now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.value, true
}
