package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_TakeIsOneTime(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("state", time.Minute)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	v, err := c.Take(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", v)

	_, err = c.Take(ctx, "k")
	require.True(t, IsNotFound(err))
	_, err = c.Get(ctx, "k")
	require.True(t, IsNotFound(err))
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory("", 0)

	require.NoError(t, c.Set(ctx, "short", "v", 20*time.Millisecond))
	require.NoError(t, c.Set(ctx, "forever", "v", 0))
	time.Sleep(40 * time.Millisecond)

	_, err := c.Get(ctx, "short")
	require.True(t, IsNotFound(err))
	v, err := c.Get(ctx, "forever")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}

func TestNew_DefaultsToMemory(t *testing.T) {
	c, err := New(context.Background(), Config{Kind: "unknown"})
	require.NoError(t, err)
	require.NoError(t, c.Ping(context.Background()))
	require.NoError(t, c.Close())
}
