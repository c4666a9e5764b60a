package middleware

import (
	"net/http"
	"sync"
	"time"

	platformauth "github.com/zenGate-Global/inspection-scheduler/platform/go/auth"
	"github.com/zenGate-Global/inspection-scheduler/platform/go/tenant"
)

// Resolver defines the minimal lookup capability required to populate a tenant
// Space from an account id. Implemented by the accounts store.
type Resolver interface {
	ResolveAccountSpace(accountID int64) (tenant.Space, error)
}

// Config controls middleware behavior.
type Config struct {
	// Optional small in-memory TTL cache to avoid DB hits; zero disables caching.
	CacheTTL time.Duration
}

// WithAccountSpace resolves the tenant account from JWT claims and attaches
// tenant.Space to the context. Requests without an account claim are rejected.
func WithAccountSpace(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	var cache *accountCache
	if cfg.CacheTTL > 0 {
		cache = newAccountCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := platformauth.UserFromContext(r.Context())
			if !ok || creds == nil || creds.AccountID == 0 {
				http.Error(w, "account required", http.StatusUnauthorized)
				return
			}

			if cached := cacheGet(cache, creds.AccountID); cached != nil {
				ctx := tenant.WithSpace(r.Context(), *cached)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			space, err := resolver.ResolveAccountSpace(creds.AccountID)
			if err != nil {
				http.Error(w, "account not found", http.StatusUnauthorized)
				return
			}

			cachePut(cache, space)

			ctx := tenant.WithSpace(r.Context(), space)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type accountCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[int64]cacheItem
}

type cacheItem struct {
	space     tenant.Space
	expiresAt time.Time
}

func newAccountCache(ttl time.Duration) *accountCache {
	return &accountCache{ttl: ttl, items: make(map[int64]cacheItem)}
}

func cacheGet(c *accountCache, id int64) *tenant.Space {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[id]
	if !ok || time.Now().After(item.expiresAt) {
		return nil
	}
	return &item.space
}

func cachePut(c *accountCache, space tenant.Space) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[space.AccountID] = cacheItem{space: space, expiresAt: time.Now().Add(c.ttl)}
}
