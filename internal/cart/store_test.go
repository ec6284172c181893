package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

func stores(t *testing.T) map[string]Store {
	rs, _ := newRedisStore(t, time.Hour)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  rs,
	}
}

func TestStore_SessionsAreIsolated(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := Mutate(ctx, s, "a", func(c *Cart) error {
				_, err := c.AddLine(scarf(5), 2, "")
				return err
			})
			require.NoError(t, err)

			a, err := s.Load(ctx, "a")
			require.NoError(t, err)
			assert.EqualValues(t, 2, a.ItemCount())

			b, err := s.Load(ctx, "b")
			require.NoError(t, err)
			assert.True(t, b.IsEmpty())

			require.NoError(t, s.Delete(ctx, "a"))
			a, err = s.Load(ctx, "a")
			require.NoError(t, err)
			assert.True(t, a.IsEmpty())
		})
	}
}

func TestMutate_ErrorDiscardsChanges(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_, err := Mutate(ctx, s, "a", func(c *Cart) error {
				_, err := c.AddLine(scarf(5), 1, "")
				return err
			})
			require.NoError(t, err)

			boom := errors.New("boom")
			_, err = Mutate(ctx, s, "a", func(c *Cart) error {
				c.Clear()
				return boom
			})
			assert.ErrorIs(t, err, boom)

			c, err := s.Load(ctx, "a")
			require.NoError(t, err)
			assert.EqualValues(t, 1, c.ItemCount())
		})
	}
}

func TestMemoryStore_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	c := New()
	_, _ = c.AddLine(scarf(5), 1, "")
	require.NoError(t, s.Save(ctx, "a", c))

	c.Clear()
	loaded, err := s.Load(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, loaded.ItemCount())
}

func TestRedisStore_KeyAndTTL(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, 30*time.Minute)

	_, err := Mutate(ctx, s, "sess-1", func(c *Cart) error {
		_, err := c.AddLine(scarf(5), 1, "")
		return err
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("cart:sess-1"))
	assert.Equal(t, 30*time.Minute, mr.TTL("cart:sess-1"))

	mr.FastForward(31 * time.Minute)
	c, err := s.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func TestRedisStore_EmptyCartRemovesKey(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)

	_, err := Mutate(ctx, s, "a", func(c *Cart) error {
		_, err := c.AddLine(scarf(5), 1, "")
		return err
	})
	require.NoError(t, err)
	_, err = Mutate(ctx, s, "a", func(c *Cart) error {
		return c.RemoveLine(LineKey{ProductID: 1})
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("cart:a"))
}

func TestRedisStore_CorruptValue(t *testing.T) {
	ctx := context.Background()
	s, mr := newRedisStore(t, time.Hour)
	require.NoError(t, mr.Set("cart:a", "{not json"))

	_, err := s.Load(ctx, "a")
	assert.Error(t, err)
}
