package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"

	"github.com/technosupport/vapix-events/internal/vapix/event"
)

// RedisStore mirrors tracked events into one hash per device:
// "<prefix>:<device>" with field "<topic>|<id>" holding the event JSON.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(device string) string {
	return fmt.Sprintf("%s:%s", s.prefix, device)
}

// Publish stores or deletes the envelope's event.
func (s *RedisStore) Publish(ctx context.Context, env Envelope) error {
	key := s.key(env.Device)
	field := env.Event.Key()

	if env.Change == ChangeRemoved {
		if err := s.client.HDel(ctx, key, field).Err(); err != nil {
			return fmt.Errorf("redis hdel %s %s: %w", key, field, err)
		}
		return nil
	}

	data, err := json.Marshal(env.Event)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}
	if err := s.client.HSet(ctx, key, field, data).Err(); err != nil {
		return fmt.Errorf("redis hset %s %s: %w", key, field, err)
	}
	return nil
}

// Load returns the stored events of device sorted by key. Entries that no
// longer decode are skipped.
func (s *RedisStore) Load(ctx context.Context, device string) ([]event.Event, error) {
	key := s.key(device)
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall %s: %w", key, err)
	}

	out := make([]event.Event, 0, len(fields))
	for _, raw := range fields {
		var ev event.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}
