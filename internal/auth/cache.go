package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// CachedVerifier wraps another Verifier with a short-lived Redis cache so a
// burst of admin writes does not hammer the identity provider. Only
// successful verifications are cached; failures always re-verify. Tokens
// are cached under their SHA-256 digest, never in the clear.
type CachedVerifier struct {
	inner  Verifier
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedVerifier wraps a verifier with a Redis cache.
func NewCachedVerifier(inner Verifier, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedVerifier {
	return &CachedVerifier{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "auth:token:" + hex.EncodeToString(sum[:])
}

// Verify checks the cache first and falls back to the inner verifier. Cache
// errors are logged and treated as misses.
func (c *CachedVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	key := cacheKey(token)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var identity Identity
		if err := json.Unmarshal([]byte(cached), &identity); err == nil {
			return &identity, nil
		}
		// Unparseable entry, drop it and re-verify.
		c.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.logger.WarnContext(ctx, "auth cache read failed",
			slog.String("error", err.Error()),
		)
	}

	identity, err := c.inner.Verify(ctx, token)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(identity); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "auth cache write failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return identity, nil
}
