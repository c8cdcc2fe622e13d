package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "http://not-redis")
	assert.Error(t, err)
}

func TestNewClientPings(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	defer client.Close()
}

func TestFirstSeenWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	d := NewDeduper(client)
	window := time.Minute

	first, err := d.FirstSeen(ctx, "view:u1:v1", window)
	require.NoError(t, err)
	assert.True(t, first)
	assert.True(t, mr.Exists("cardlink:view:u1:v1"))
	assert.Equal(t, window, mr.TTL("cardlink:view:u1:v1"))

	first, err = d.FirstSeen(ctx, "view:u1:v1", window)
	require.NoError(t, err)
	assert.False(t, first)

	// other keys are tracked separately
	first, err = d.FirstSeen(ctx, "view:u1:v2", window)
	require.NoError(t, err)
	assert.True(t, first)

	mr.FastForward(window + time.Second)
	assert.False(t, mr.Exists("cardlink:view:u1:v1"))

	first, err = d.FirstSeen(ctx, "view:u1:v1", window)
	require.NoError(t, err)
	assert.True(t, first)
}

func TestFirstSeenReportsRedisErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	first, err := NewDeduper(client).FirstSeen(context.Background(), "view:u1:v1", time.Minute)
	assert.Error(t, err)
	assert.False(t, first)
}
