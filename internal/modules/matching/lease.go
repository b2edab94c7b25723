// README: Short-lived supplier reservations between selection and order persistence, backed by Redis.
package matching

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ravito/internal/types"
)

const leaseKeyPrefix = "matching:supplier:%s:lease"

// Leaser reserves a supplier for one checkout. Acquire reports false when another owner holds it.
type Leaser interface {
	Acquire(ctx context.Context, supplierID types.ID, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, supplierID types.ID, owner string) error
}

// releaseScript deletes the lease only if it is still held by the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLeaser struct {
	redis *redis.Client
}

func NewRedisLeaser(redis *redis.Client) *RedisLeaser {
	return &RedisLeaser{redis: redis}
}

func (l *RedisLeaser) Acquire(ctx context.Context, supplierID types.ID, owner string, ttl time.Duration) (bool, error) {
	return l.redis.SetNX(ctx, leaseKey(supplierID), owner, ttl).Result()
}

func (l *RedisLeaser) Release(ctx context.Context, supplierID types.ID, owner string) error {
	return releaseScript.Run(ctx, l.redis, []string{leaseKey(supplierID)}, owner).Err()
}

// Holder returns the current lease owner, or "" when the supplier is free.
func (l *RedisLeaser) Holder(ctx context.Context, supplierID types.ID) (string, error) {
	val, err := l.redis.Get(ctx, leaseKey(supplierID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

func leaseKey(supplierID types.ID) string {
	return fmt.Sprintf(leaseKeyPrefix, string(supplierID))
}
