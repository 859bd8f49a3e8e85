package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Redis keeps sessions in Redis with a TTL, for deployments that run more
// than one instance behind a load balancer. Staged source files are still
// local to the instance that created them; the temp sweeper collects them.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects and pings; a dead Redis is a startup error, not a
// runtime surprise.
func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Redis{client: c, ttl: ttl}, nil
}

func (r *Redis) key(id string) string { return fmt.Sprintf("session:%s", id) }

func (r *Redis) Set(ctx context.Context, s Session) error {
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(s.ID), b, r.ttl).Err()
}

func (r *Redis) Get(ctx context.Context, id string) (Session, bool, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if err == redis.Nil {
		return Session{}, false, nil
	}
	if err != nil {
		return Session{}, false, err
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return Session{}, false, err
	}
	return s, true, nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}

func (r *Redis) Close() error { return r.client.Close() }
