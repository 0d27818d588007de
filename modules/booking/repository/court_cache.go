package repository

import (
	"context"
	"fmt"
	"time"

	"courtbook-api/core/cache"
	"courtbook-api/core/constants"
	"courtbook-api/core/logger"
	"courtbook-api/modules/booking/entity"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CachedCourtRepository serves the court catalogue from cache. Courts are
// read-only here, so a short TTL is the only invalidation.
type CachedCourtRepository struct {
	BookingRepositoryInterface
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedCourtRepository(inner BookingRepositoryInterface, c cache.Cache, ttl time.Duration) *CachedCourtRepository {
	return &CachedCourtRepository{
		BookingRepositoryInterface: inner,
		cache:                      c,
		ttl:                        ttl,
	}
}

func courtCacheKey(tenantID uuid.UUID) string {
	return fmt.Sprintf(constants.RedisKeyCourtCatalog, tenantID.String())
}

func (r *CachedCourtRepository) ListCourts(ctx context.Context, tenantID uuid.UUID) ([]entity.Court, error) {
	key := courtCacheKey(tenantID)

	var cached []entity.Court
	hit, err := r.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		logger.Warn("CachedCourtRepository:ListCourts:CacheRead", "error", err, "tenant_id", tenantID)
	}
	if hit {
		return cached, nil
	}

	// the load is shared by every waiter on key, so one caller going away
	// must not fail the others
	v, err, _ := r.group.Do(key, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.DefaultTimeout)
		defer cancel()

		courts, err := r.BookingRepositoryInterface.ListCourts(loadCtx, tenantID)
		if err != nil {
			return nil, err
		}
		if err := r.cache.SetJSON(loadCtx, key, courts, r.ttl); err != nil {
			logger.Warn("CachedCourtRepository:ListCourts:CacheWrite", "error", err, "tenant_id", tenantID)
		}
		return courts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]entity.Court), nil
}
