package booking

import (
	"time"

	"courtbook-api/core/cache"
	"courtbook-api/core/database"
	"courtbook-api/modules/booking/repository"
)

// Init builds the tenant-scoped booking store. When a cache is given, the
// court catalogue is served through it.
func Init(db database.IDatabase, c cache.Cache, courtTTL time.Duration) repository.BookingRepositoryInterface {
	repo := repository.NewBookingRepository(db)
	if c == nil {
		return repo
	}
	return repository.NewCachedCourtRepository(repo, c, courtTTL)
}
