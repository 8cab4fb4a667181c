package auth

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Session JWTs are stateless; revocation works through a Redis denylist of
// token IDs plus a per-user registry so all of a user's sessions can be
// killed on role change or removal. Entries expire with the token itself.
const (
	revokedJTIPrefix   = "revoked_jti:"
	userSessionsPrefix = "user_sessions:"
	sessionRegistryTTL = 25 * time.Hour // slightly beyond the longest session TTL
)

// TrackSession registers a freshly issued session for later bulk revocation.
func TrackSession(ctx context.Context, rdb *redis.Client, userID, jti string) {
	if rdb == nil || userID == "" || jti == "" {
		return
	}
	key := userSessionsPrefix + userID
	rdb.SAdd(ctx, key, jti)
	rdb.Expire(ctx, key, sessionRegistryTTL)
}

// RevokeSession denylists one token ID until it would have expired anyway.
func RevokeSession(ctx context.Context, rdb *redis.Client, jti string, ttl time.Duration) {
	if rdb == nil || jti == "" {
		return
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	rdb.Set(ctx, revokedJTIPrefix+jti, "1", ttl)
}

// RevokeUserSessions denylists every tracked session of a user.
func RevokeUserSessions(ctx context.Context, rdb *redis.Client, userID string) {
	if rdb == nil || userID == "" {
		return
	}
	key := userSessionsPrefix + userID
	jtis, err := rdb.SMembers(ctx, key).Result()
	if err == nil {
		for _, jti := range jtis {
			rdb.Set(ctx, revokedJTIPrefix+jti, "1", sessionRegistryTTL)
		}
	}
	rdb.Del(ctx, key)
}

// IsSessionRevoked reports whether a token ID is on the denylist.
func IsSessionRevoked(ctx context.Context, rdb *redis.Client, jti string) bool {
	if rdb == nil || jti == "" {
		return false
	}
	n, err := rdb.Exists(ctx, revokedJTIPrefix+jti).Result()
	return err == nil && n > 0
}
