package cache

import (
	"time"

	exchangedomain "github.com/agencyhub/entitlex/internal/exchange/domain"
)

const defaultLimitsTTL = 15 * time.Second

// LimitsCache stores composed effective limits per tenant. Every quota check
// in the wider system reads these, so they are cached briefly and invalidated
// on any exchange write.
type LimitsCache interface {
	Get(tenantID string) (exchangedomain.EffectiveLimits, bool)
	Set(tenantID string, limits exchangedomain.EffectiveLimits)
	Invalidate(tenantID string)
}

type limitsCache struct {
	limits Cache[string, exchangedomain.EffectiveLimits]
	ttl    time.Duration
}

// NewLimitsCache returns an in-memory effective-limits cache.
func NewLimitsCache() LimitsCache {
	return &limitsCache{
		limits: NewTTLCache[string, exchangedomain.EffectiveLimits](),
		ttl:    defaultLimitsTTL,
	}
}

func (c *limitsCache) Get(tenantID string) (exchangedomain.EffectiveLimits, bool) {
	return c.limits.Get(tenantID)
}

func (c *limitsCache) Set(tenantID string, limits exchangedomain.EffectiveLimits) {
	c.limits.Set(tenantID, limits, c.ttl)
}

func (c *limitsCache) Invalidate(tenantID string) {
	c.limits.Delete(tenantID)
}
