package memory

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestCounterIsContiguousUnderConcurrency(t *testing.T) {
	c := NewCounter()
	const n = 200

	var (
		mu  sync.Mutex
		got []int64
	)
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < n; i++ {
		g.Go(func() error {
			v, err := c.Incr(ctx, "orderNumber")
			if err != nil {
				return err
			}
			mu.Lock()
			got = append(got, v)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	for i, v := range got {
		assert.Equal(t, int64(i+1), v)
	}

	other, err := c.Incr(context.Background(), "bulk")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}
