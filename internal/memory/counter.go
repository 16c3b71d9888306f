package memory

import (
	"context"
	"sync"
	"sync/atomic"
)

// Counter is a process-local sequence per namespace.
type Counter struct {
	seqs sync.Map // namespace -> *atomic.Int64
}

func NewCounter() *Counter { return &Counter{} }

func (c *Counter) Incr(ctx context.Context, namespace string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	v, _ := c.seqs.LoadOrStore(namespace, &atomic.Int64{})
	return v.(*atomic.Int64).Add(1), nil
}
