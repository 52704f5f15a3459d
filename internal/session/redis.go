package session

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPrefix = "portal:session:"

// Redis stores sessions as JSON strings with a native expiry.
type Redis struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Load(ctx context.Context, id string) (*Data, error) {
	raw, err := r.client.Get(ctx, redisPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (r *Redis) Save(ctx context.Context, d *Data, ttl time.Duration) error {
	raw, err := encode(d)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisPrefix+d.ID, string(raw), ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, redisPrefix+id).Err()
}
