package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore хранит корзину JSON-строкой под ключом cart:<session>.
// TTL продлевается при каждом сохранении.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (r *RedisStore) key(session string) string {
	return fmt.Sprintf("cart:%s", session)
}

func (r *RedisStore) Load(ctx context.Context, session string) (*Cart, error) {
	data, err := r.client.Get(ctx, r.key(session)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cart: load %q: %w", session, err)
	}
	c := New()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("cart: decode %q: %w", session, err)
	}
	return c, nil
}

func (r *RedisStore) Save(ctx context.Context, session string, c *Cart) error {
	if c.IsEmpty() {
		return r.Delete(ctx, session)
	}
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("cart: encode %q: %w", session, err)
	}
	if err := r.client.Set(ctx, r.key(session), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("cart: save %q: %w", session, err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, session string) error {
	if err := r.client.Del(ctx, r.key(session)).Err(); err != nil {
		return fmt.Errorf("cart: delete %q: %w", session, err)
	}
	return nil
}
