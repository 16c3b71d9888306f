package redisx

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimIsExclusive(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := New(mr.Addr())
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()

	key := fmt.Sprintf(KeyDedup, "notifier", "evt-1")
	ok, err := Claim(ctx, rdb, key, "1", TTLDedup)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Claim(ctx, rdb, key, "1", TTLDedup)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists(key))
	assert.Equal(t, TTLDedup, mr.TTL(key))
}
