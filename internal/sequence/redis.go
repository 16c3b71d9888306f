package sequence

import (
	"context"
	"fmt"

	"github.com/ariefcatur/go-marketplace-orders/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisCounter relies on INCR, which is atomic across every client of the
// same Redis instance.
type RedisCounter struct{ Redis redis.Cmdable }

func (c RedisCounter) Incr(ctx context.Context, namespace string) (int64, error) {
	return c.Redis.Incr(ctx, fmt.Sprintf(redisx.KeySequence, namespace)).Result()
}
