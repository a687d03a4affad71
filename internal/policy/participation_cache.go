package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	id "agora/pkg/domain"
)

const participationCacheTTL = 30 * time.Second

// CachedIndex fronts an Index with a short-lived redis cache. Participation
// changes rarely relative to how often it is consulted (every policy check on
// deliberation-scoped resources), and the join/leave paths invalidate
// eagerly, so a small TTL bounds staleness from out-of-band writes.
//
// Cache failures fall through to the inner index; the cache can only make
// evaluation faster, never wrong in the deny direction for longer than the
// TTL.
type CachedIndex struct {
	inner  Index
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// CacheOption configures a CachedIndex.
type CacheOption func(*CachedIndex)

// WithCacheTTL overrides the entry lifetime.
func WithCacheTTL(ttl time.Duration) CacheOption {
	return func(c *CachedIndex) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheLogger sets the cache logger.
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *CachedIndex) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCachedIndex wraps an Index with a redis cache.
func NewCachedIndex(inner Index, client redis.UniversalClient, opts ...CacheOption) *CachedIndex {
	c := &CachedIndex{
		inner:  inner,
		client: client,
		ttl:    participationCacheTTL,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func participationKey(principalID id.PrincipalID) string {
	return fmt.Sprintf("participation:%s", principalID.String())
}

// DeliberationsFor returns the principal's deliberations, from cache when
// fresh.
func (c *CachedIndex) DeliberationsFor(ctx context.Context, principalID id.PrincipalID) ([]id.DeliberationID, error) {
	if principalID.IsNil() {
		return nil, nil
	}

	key := participationKey(principalID)
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var cached []id.DeliberationID
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		// Unreadable entry; fall through and rewrite it.
	} else if err != redis.Nil {
		c.logger.WarnContext(ctx, "participation cache read failed", "error", err)
	}

	ids, err := c.inner.DeliberationsFor(ctx, principalID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(ids); err == nil {
		if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "participation cache write failed", "error", err)
		}
	}
	return ids, nil
}

// Participates reports membership in one deliberation.
func (c *CachedIndex) Participates(ctx context.Context, principalID id.PrincipalID, deliberationID id.DeliberationID) (bool, error) {
	ids, err := c.DeliberationsFor(ctx, principalID)
	if err != nil {
		return false, err
	}
	for _, d := range ids {
		if d == deliberationID {
			return true, nil
		}
	}
	return false, nil
}

// Invalidate drops the principal's cached participation. Called by the
// join/leave paths after a membership write commits.
func (c *CachedIndex) Invalidate(ctx context.Context, principalID id.PrincipalID) {
	if principalID.IsNil() {
		return
	}
	if err := c.client.Del(ctx, participationKey(principalID)).Err(); err != nil {
		c.logger.WarnContext(ctx, "participation cache invalidation failed",
			"error", err,
			"principal_id", principalID.String(),
		)
	}
}
