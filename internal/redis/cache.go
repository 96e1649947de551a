package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Key patterns:
// - account:{account_id}:exists - positive existence lookups

const DefaultAccountTTL = 5 * time.Minute

type CacheStore struct {
	client     *goredis.Client
	accountTTL time.Duration
}

func NewCacheStore(client *goredis.Client, accountTTL time.Duration) *CacheStore {
	if accountTTL <= 0 {
		accountTTL = DefaultAccountTTL
	}
	return &CacheStore{client: client, accountTTL: accountTTL}
}

func accountExistsKey(accountID string) string {
	return fmt.Sprintf("account:%s:exists", accountID)
}

// AccountExists reports whether a positive lookup for accountID is cached.
func (c *CacheStore) AccountExists(ctx context.Context, accountID string) (bool, error) {
	_, err := c.client.Get(ctx, accountExistsKey(accountID)).Result()
	if err == goredis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *CacheStore) RememberAccount(ctx context.Context, accountID string) error {
	return c.client.Set(ctx, accountExistsKey(accountID), "1", c.accountTTL).Err()
}

func (c *CacheStore) ForgetAccount(ctx context.Context, accountID string) error {
	return c.client.Del(ctx, accountExistsKey(accountID)).Err()
}

func (c *CacheStore) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
