package records

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Nachi-Kulkarni/portia-hackathon/claim-negotiator/internal/claim"
)

// #region cache

// Cache memoizes successful lookups of the wrapped sources. Misses and
// errors are never cached.
type Cache struct {
	policies   PolicySource
	precedents PrecedentSource
	cache      *gocache.Cache
}

// NewCache wraps the sources with a TTL cache. Either source may be nil when
// the cache only fronts one of them.
func NewCache(policies PolicySource, precedents PrecedentSource, ttl, cleanup time.Duration) *Cache {
	return &Cache{
		policies:   policies,
		precedents: precedents,
		cache:      gocache.New(ttl, cleanup),
	}
}

// Policy implements PolicySource.
func (c *Cache) Policy(ctx context.Context, policyNumber string) (claim.PolicyRecord, error) {
	key := "policy:" + policyNumber
	if v, ok := c.cache.Get(key); ok {
		return v.(claim.PolicyRecord), nil
	}
	if c.policies == nil {
		return claim.PolicyRecord{}, fmt.Errorf("%w: %w", ErrNotFound, &claim.PolicyNotFoundError{PolicyNumber: policyNumber})
	}
	p, err := c.policies.Policy(ctx, policyNumber)
	if err != nil {
		return claim.PolicyRecord{}, err
	}
	c.cache.Set(key, p, gocache.DefaultExpiration)
	return p, nil
}

// Precedents implements PrecedentSource.
func (c *Cache) Precedents(ctx context.Context, claimType string) ([]claim.PrecedentCase, error) {
	key := "precedents:" + claimType
	if v, ok := c.cache.Get(key); ok {
		return append([]claim.PrecedentCase(nil), v.([]claim.PrecedentCase)...), nil
	}
	if c.precedents == nil {
		return nil, nil
	}
	cases, err := c.precedents.Precedents(ctx, claimType)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, append([]claim.PrecedentCase(nil), cases...), gocache.DefaultExpiration)
	return cases, nil
}

// Flush drops every cached lookup.
func (c *Cache) Flush() {
	c.cache.Flush()
}

// #endregion cache
