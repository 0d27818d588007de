package repository_test

import (
	"context"
	"testing"
	"time"

	"courtbook-api/core/database"
	"courtbook-api/modules/booking/entity"
	"courtbook-api/modules/booking/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bookingCols = []string{
	"id", "tenant_id", "court_id", "court_name", "starts_at", "ends_at", "status",
	"modality", "client_id", "client_name", "responsible_label", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*repository.BookingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return repository.NewBookingRepository(database.New(sqlx.NewDb(db, "postgres"))), mock
}

func TestGetTenantByCode(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT id, code, name FROM tenants WHERE code = \$1`).
		WithArgs("arena").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name"}).AddRow(id.String(), "arena", "Arena Beach"))
	mock.ExpectQuery(`SELECT id, code, name FROM tenants WHERE code = \$1`).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "code", "name"}))

	tenant, err := repo.GetTenantByCode(context.Background(), "arena")
	require.NoError(t, err)
	require.NotNil(t, tenant)
	assert.Equal(t, id, tenant.ID)
	assert.Equal(t, "Arena Beach", tenant.Name)

	tenant, err = repo.GetTenantByCode(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, tenant)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListBookings_BuildsTenantScopedFilter(t *testing.T) {
	repo, mock := newMockRepo(t)
	tenantID := uuid.New()
	from := time.Date(2025, 11, 22, 3, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	starts := time.Date(2025, 11, 22, 21, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(bookingCols).AddRow(
		uuid.New().String(), tenantID.String(), uuid.New().String(), "Quadra 1",
		starts, starts.Add(time.Hour), "scheduled", "futevolei", nil, nil, "Joao", starts, starts,
	)

	mock.ExpectQuery(`FROM bookings b .* WHERE b.tenant_id = \$1 AND b.starts_at < \$2 AND b.ends_at > \$3 AND b.status = ANY\(\$4\) AND .* LIKE \$5 ORDER BY b.starts_at ASC, c.name ASC LIMIT \$6`).
		WithArgs(tenantID, to, from, sqlmock.AnyArg(), "%joao%", 10).
		WillReturnRows(rows)

	bookings, err := repo.ListBookings(context.Background(), tenantID, entity.BookingFilter{
		From:       &from,
		To:         &to,
		Statuses:   []entity.BookingStatus{entity.BookingStatusScheduled, entity.BookingStatusConfirmed},
		ClientName: "joao",
		Limit:      10,
	})
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, "Quadra 1", bookings[0].CourtName)
	assert.Equal(t, "Joao", bookings[0].Responsible())
	assert.Nil(t, bookings[0].ClientID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBooking_ExclusionViolationIsOverlap(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2025, 11, 22, 21, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`INSERT INTO bookings`).
		WillReturnError(&pq.Error{Code: "23P01", Message: "conflicting key value violates exclusion constraint"})

	created, err := repo.CreateBooking(context.Background(), &entity.Booking{
		TenantID:         uuid.New(),
		CourtID:          uuid.New(),
		StartsAt:         start,
		EndsAt:           start.Add(time.Hour),
		Status:           entity.BookingStatusScheduled,
		ResponsibleLabel: "Carlos",
	})
	assert.Nil(t, created)
	assert.ErrorIs(t, err, repository.ErrBookingOverlap)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateBooking(t *testing.T) {
	repo, mock := newMockRepo(t)
	tenantID, id := uuid.New(), uuid.New()
	end := time.Date(2025, 11, 22, 23, 0, 0, 0, time.UTC)
	canceled := entity.BookingStatusCanceled

	_, err := repo.UpdateBooking(context.Background(), tenantID, id, entity.BookingPatch{})
	assert.Error(t, err)

	mock.ExpectQuery(`UPDATE bookings SET updated_at = NOW\(\), ends_at = \$3, status = \$4\s+WHERE tenant_id = \$1 AND id = \$2`).
		WithArgs(tenantID, id, end, "canceled").
		WillReturnRows(sqlmock.NewRows(bookingCols))

	updated, err := repo.UpdateBooking(context.Background(), tenantID, id, entity.BookingPatch{EndsAt: &end, Status: &canceled})
	require.NoError(t, err)
	assert.Nil(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
