package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*redisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return newRedisStore(client, ""), mr
}

func TestRedisStore_SaveLoad(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Snapshot{
		CPUUsage:       12.5,
		MemoryUsage:    77,
		CurrentTime:    "14:05",
		NetworkLatency: "50ms",
		PacketLoss:     "0%",
	}))

	fields, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 12.5, fields[FieldCPUUsage])
	assert.Equal(t, 77.0, fields[FieldMemoryUsage])
	assert.Equal(t, "14:05", fields[FieldCurrentTime])
	assert.Equal(t, "Neko0v0-脑容量77%-14:05", defaultTemplate().Render(fields))
	assert.Equal(t, []string{defaultRedisKey}, mr.Keys())
}

func TestRedisStore_Overwrites(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, Snapshot{MemoryUsage: 10, CurrentTime: "10:00"}))
	require.NoError(t, store.Save(ctx, Snapshot{MemoryUsage: 20, CurrentTime: "10:01"}))

	assert.Equal(t, "20", mr.HGet(defaultRedisKey, FieldMemoryUsage))
	assert.Equal(t, "10:01", mr.HGet(defaultRedisKey, FieldCurrentTime))
	assert.Len(t, mr.Keys(), 1)
}

func TestRedisStore_LoadEmpty(t *testing.T) {
	store, _ := newTestRedisStore(t)
	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, errNoSnapshot)
}

func TestRedisStore_Unreachable(t *testing.T) {
	store, mr := newTestRedisStore(t)
	mr.Close()

	assert.Error(t, store.Save(context.Background(), Snapshot{}))
	_, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, errNoSnapshot)
}
