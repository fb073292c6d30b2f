package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const defaultRedisKey = "nekocard:snapshot"

// redisStore keeps the snapshot in one hash so several agents on the same
// host can share it.
type redisStore struct {
	client *redis.Client
	key    string
}

func newRedisStore(client *redis.Client, key string) *redisStore {
	if key == "" {
		key = defaultRedisKey
	}
	return &redisStore{client: client, key: key}
}

func (s *redisStore) Save(ctx context.Context, snap Snapshot) error {
	values := make(map[string]interface{}, len(cardFieldNames))
	for name, v := range snap.Fields() {
		values[name] = formatValue(v)
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key)
	pipe.HSet(ctx, s.key, values)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("saving snapshot to redis: %w", err)
	}
	return nil
}

func (s *redisStore) Load(ctx context.Context) (CardFields, error) {
	values, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("loading snapshot from redis: %w", err)
	}
	if len(values) == 0 {
		return nil, errNoSnapshot
	}

	fields := make(CardFields, len(values))
	for name, v := range values {
		fields[name] = v
	}
	// Keep the percentages numeric so precision specs still apply.
	for _, name := range []string{FieldCPUUsage, FieldMemoryUsage} {
		if raw, ok := values[name]; ok {
			if f, err := strconv.ParseFloat(raw, 64); err == nil {
				fields[name] = f
			}
		}
	}
	return fields, nil
}
