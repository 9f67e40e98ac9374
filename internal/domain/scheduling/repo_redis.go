package scheduling

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each appointment as a JSON hash field under key and the
// insertion order in the list key+":order".
type RedisStore struct {
	client *redis.Client
	key    string
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

func (s *RedisStore) orderKey() string { return s.key + ":order" }

func (s *RedisStore) GetAll(ctx context.Context) ([]Appointment, error) {
	ids, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	vals, err := s.client.HMGet(ctx, s.key, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hmget: %w", err)
	}
	out := make([]Appointment, 0, len(vals))
	for i, v := range vals {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		a, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("decode appointment %s: %w", ids[i], err)
		}
		out = append(out, a)
	}
	return out, nil
}

// upsertScript writes the record and appends a new id to the order list in
// one atomic step.
var upsertScript = redis.NewScript(`
local added = redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
if added == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[1])
end
return added
`)

func (s *RedisStore) Upsert(ctx context.Context, a Appointment) error {
	data, err := encodeRecord(a)
	if err != nil {
		return fmt.Errorf("encode appointment: %w", err)
	}
	if err := upsertScript.Run(ctx, s.client, []string{s.key, s.orderKey()}, a.ID, string(data)).Err(); err != nil {
		return fmt.Errorf("redis upsert: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, s.key, id)
		pipe.LRem(ctx, s.orderKey(), 0, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis remove: %w", err)
	}
	return nil
}

// Ping reports whether the Redis server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
