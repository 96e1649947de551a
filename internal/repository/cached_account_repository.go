package repository

import (
	"context"

	"rancho-chat/pkg/logger"
)

// AccountExistenceCache remembers accounts known to exist, e.g. redis.CacheStore.
type AccountExistenceCache interface {
	AccountExists(ctx context.Context, accountID string) (bool, error)
	RememberAccount(ctx context.Context, accountID string) error
}

// CachedAccountRepository answers CheckByID from the cache when it can.
// Only positive results are cached, so a new account is visible immediately.
// Cache faults fall through to the wrapped repository.
type CachedAccountRepository struct {
	AccountRepository
	cache AccountExistenceCache
	log   *logger.Logger
}

func NewCachedAccountRepository(inner AccountRepository, cache AccountExistenceCache, l *logger.Logger) *CachedAccountRepository {
	if l == nil {
		l = logger.NewNop()
	}
	return &CachedAccountRepository{AccountRepository: inner, cache: cache, log: l}
}

func (r *CachedAccountRepository) CheckByID(ctx context.Context, id string) (bool, error) {
	hit, err := r.cache.AccountExists(ctx, id)
	if err != nil {
		r.log.WithContext(ctx).Warnf("account cache read failed for %s: %s", id, err)
	} else if hit {
		return true, nil
	}

	found, err := r.AccountRepository.CheckByID(ctx, id)
	if err != nil || !found {
		return found, err
	}
	if err := r.cache.RememberAccount(ctx, id); err != nil {
		r.log.WithContext(ctx).Warnf("account cache write failed for %s: %s", id, err)
	}
	return true, nil
}
