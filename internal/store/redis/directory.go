package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"clinicbook/internal/directory"
	"clinicbook/internal/domain"
)

type Options struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(opts Options) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: opts.Addr, Password: opts.Password, DB: opts.DB})
}

// CachedDirectory is a read-through cache in front of another directory. Redis failures are
// logged and the lookup falls through to the wrapped directory. A cached user can lag the
// wrapped directory by up to the ttl unless Invalidate is called.
type CachedDirectory struct {
	client redis.Cmdable
	next   directory.Directory
	ttl    time.Duration
	log    *slog.Logger
}

func NewCachedDirectory(client redis.Cmdable, next directory.Directory, ttl time.Duration, log *slog.Logger) *CachedDirectory {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedDirectory{
		client: client,
		next:   next,
		ttl:    ttl,
		log:    log.With(slog.String("component", "redis.directory")),
	}
}

func (c *CachedDirectory) GetUser(ctx context.Context, id string) (domain.User, error) {
	key := userKey(id)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var u domain.User
		if err := json.Unmarshal(data, &u); err == nil {
			return u, nil
		}
		c.log.Warn("discarding corrupt cache entry", slog.String("key", key))
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("cache read failed", slog.Any("err", err), slog.String("key", key))
	}

	u, err := c.next.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}

	payload, err := json.Marshal(u)
	if err != nil {
		return u, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.log.Warn("cache write failed", slog.Any("err", err), slog.String("key", key))
	}
	return u, nil
}

// Invalidate drops a cached user, e.g. after the account system deactivates them.
func (c *CachedDirectory) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, userKey(id)).Err()
}

func userKey(id string) string {
	return "clinicbook:user:" + id
}

var _ directory.Directory = (*CachedDirectory)(nil)
