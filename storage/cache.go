package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/ANTOSOJAN/task-management-system/domain"
)

// Cache wraps a store with a Redis read-through cache for user id lookups,
// which resolve creator emails on every home and board view.
type Cache struct {
	domain.Store
	redis *redis.Client
	ttl   time.Duration
	log   *log.Logger
}

// NewCache creates a caching wrapper using the provided Redis client and TTL.
func NewCache(base domain.Store, client *redis.Client, ttl time.Duration, logger *log.Logger) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Cache{Store: base, redis: client, ttl: ttl, log: logger}
}

// cachedUser is the cached projection of a user; board lists change too
// often to cache.
type cachedUser struct {
	Email  string `json:"email"`
	UserID string `json:"userId"`
}

func (c *Cache) FindUserByID(ctx context.Context, userID string) (*domain.User, error) {
	if u, ok := c.load(ctx, userID); ok {
		return u, nil
	}
	u, err := c.Store.FindUserByID(ctx, userID)
	if err != nil || u == nil {
		return u, err
	}
	c.store(ctx, *u)
	return u, nil
}

// CreateUser evicts any stale entry for the new user's id.
func (c *Cache) CreateUser(ctx context.Context, u domain.User) error {
	if err := c.Store.CreateUser(ctx, u); err != nil {
		return err
	}
	c.evict(ctx, u.UserID)
	return nil
}

// Ping checks Redis and the wrapped store.
func (c *Cache) Ping(ctx context.Context) error {
	if c.redis != nil {
		if err := c.redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return Ping(ctx, c.Store)
}

func (c *Cache) load(ctx context.Context, userID string) (*domain.User, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, userCacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithError(err).WithField("uid", userID).Debug("user cache read failed")
			// On redis errors fall back to the backing storage without failing.
			_ = c.redis.Del(ctx, userCacheKey(userID)).Err()
		}
		return nil, false
	}
	var cu cachedUser
	if err := sonic.Unmarshal(data, &cu); err != nil || cu.Email == "" {
		_ = c.redis.Del(ctx, userCacheKey(userID)).Err()
		return nil, false
	}
	return &domain.User{Email: cu.Email, UserID: cu.UserID, Boards: []string{}}, true
}

func (c *Cache) store(ctx context.Context, u domain.User) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	data, err := sonic.Marshal(cachedUser{Email: u.Email, UserID: u.UserID})
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, userCacheKey(u.UserID), data, c.ttl).Err()
}

func (c *Cache) evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, userCacheKey(userID)).Result()
}

func userCacheKey(userID string) string {
	return "user-by-id:" + userID
}
