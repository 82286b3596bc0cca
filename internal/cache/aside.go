package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// TagsKey holds the distinct tag list served by GET /api/tags.
	TagsKey = "tags:all"
	TagsTTL = 5 * time.Minute

	keyspacePrefix = "snapshare:"
)

func namespaced(key string) string {
	return keyspacePrefix + key
}

// GetJSON reads key and unmarshals it into dest. It reports false on a miss
// or when no client is configured.
func GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}
	raw, err := client.Get(ctx, namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON marshals v into key with the given TTL.
func SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return client.Set(ctx, namespaced(key), b, ttl).Err()
}

// Aside serves dest from Redis, falling back to fetch on a miss and storing
// the result. A result is only stored if no Invalidate of key ran while fetch
// was in flight. Redis failures degrade to calling fetch.
func Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) error {
	if found, err := GetJSON(ctx, key, dest); err == nil && found {
		return nil
	}
	gen, genErr := generation(ctx, key)
	if err := fetch(); err != nil {
		return err
	}
	if genErr == nil {
		_ = storeIfCurrent(ctx, key, gen, dest, ttl)
	}
	return nil
}

// Invalidate removes key and bumps its generation. It is a no-op without a
// client.
func Invalidate(ctx context.Context, key string) {
	if client == nil {
		return
	}
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey(key))
		pipe.Del(ctx, namespaced(key))
		return nil
	})
}

var errStaleGeneration = errors.New("cache: generation moved during fetch")

func generationKey(key string) string {
	return namespaced(key) + ":gen"
}

func generation(ctx context.Context, key string) (string, error) {
	if client == nil {
		return "", nil
	}
	gen, err := client.Get(ctx, generationKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return gen, err
}

func storeIfCurrent(ctx context.Context, key, gen string, v any, ttl time.Duration) error {
	if client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	genKey := generationKey(key)
	return client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStaleGeneration
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, namespaced(key), b, ttl)
			return nil
		})
		return err
	}, genKey)
}
