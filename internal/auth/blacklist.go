package auth

import (
	"context"
	"time"

	"github.com/swiftride/dispatch/pkg/redis"
)

const blacklistKeyPrefix = "blacklist:"

// Blacklist stores revoked token IDs in Redis. Each entry's TTL matches the
// token's remaining lifetime, so entries vanish exactly when the token itself
// would stop validating anyway.
type Blacklist struct {
	redis *redis.Client
}

// NewBlacklist creates a Redis-backed token blacklist
func NewBlacklist(client *redis.Client) *Blacklist {
	return &Blacklist{redis: client}
}

// Revoke marks a token ID as revoked until it would naturally expire
func (b *Blacklist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		// token already expired, nothing to store
		return nil
	}
	return b.redis.SetWithExpiration(ctx, blacklistKeyPrefix+tokenID, "revoked", ttl)
}

// IsRevoked reports whether a token ID is on the blacklist
func (b *Blacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return b.redis.Exists(ctx, blacklistKeyPrefix+tokenID)
}
