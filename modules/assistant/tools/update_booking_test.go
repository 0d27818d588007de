package tools

import (
	"testing"

	"courtbook-api/modules/booking/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateBooking_AppliesOnlyAllowListedFields(t *testing.T) {
	f := newFixture(t)
	court := f.repo.AddCourt(f.tenant.ID, "Quadra 1", "futevolei")
	other := f.repo.AddCourt(f.tenant.ID, "Quadra 2", "futevolei")
	b := f.book(court, "Pedro", 22, 18, 19)

	res := f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos": map[string]any{
			"status":    "canceled",
			"court_id":  other.ID.String(),
			"tenant_id": uuid.NewString(),
		},
	})

	require.True(t, res.OK, res.Error)
	assert.Equal(t, PolicyWriteAllowed, res.Policy)
	assert.Equal(t, []string{"status"}, res.Applied)
	assert.Equal(t, []string{"court_id", "tenant_id"}, res.Ignored)

	stored := f.repo.Booking(b.ID)
	assert.Equal(t, entity.BookingStatusCanceled, stored.Status)
	assert.Equal(t, court.ID, stored.CourtID)
	assert.Equal(t, f.tenant.ID, stored.TenantID)
}

func TestUpdateBooking_NoAllowedField(t *testing.T) {
	f := newFixture(t)
	court := f.repo.AddCourt(f.tenant.ID, "Quadra 1")
	b := f.book(court, "Pedro", 22, 18, 19)

	res := f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"responsavel": "Outro"},
	})

	assert.False(t, res.OK)
	assert.Equal(t, PolicyWriteRejected, res.Policy)
	assert.Equal(t, ReasonNoAllowedFields, res.Reason)
	assert.Equal(t, "Pedro", f.repo.Booking(b.ID).ResponsibleLabel)
}

func TestUpdateBooking_IsTenantScoped(t *testing.T) {
	f := newFixture(t)
	foreign := f.repo.AddTenant("outra")
	court := f.repo.AddCourt(foreign.ID, "Quadra 1")
	b := f.repo.AddBooking(entity.Booking{
		TenantID: foreign.ID,
		CourtID:  court.ID,
		StartsAt: f.clock.ToUTC(2025, 11, 22, 18, 0),
		EndsAt:   f.clock.ToUTC(2025, 11, 22, 19, 0),
	})

	res := f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"status": "canceled"},
	})

	assert.False(t, res.OK)
	assert.Equal(t, PolicyWriteNoOp, res.Policy)
	assert.Equal(t, ReasonNotFound, res.Reason)
	assert.Equal(t, entity.BookingStatusScheduled, f.repo.Booking(b.ID).Status)
}

func TestUpdateBooking_EndTimes(t *testing.T) {
	f := newFixture(t)
	court := f.repo.AddCourt(f.tenant.ID, "Quadra 1")
	b := f.book(court, "Pedro", 22, 20, 22)

	res := f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"end": "00:00"},
	})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, []string{"end"}, res.Applied)
	assert.Equal(t, "00:00", res.Booking.EndTime)
	assert.True(t, f.repo.Booking(b.ID).EndsAt.Equal(f.clock.ToUTC(2025, 11, 23, 0, 0)))

	res = f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"end": "19:00"},
	})
	assert.Equal(t, ReasonInvalidInterval, res.Reason)

	res = f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"start": "2025-11-22T22:30:00Z", "end": "21:30"},
	})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "19:30", res.Booking.StartTime)
	assert.Equal(t, "21:30", res.Booking.EndTime)
}

func TestUpdateBooking_ConflictIsRejected(t *testing.T) {
	f := newFixture(t)
	court := f.repo.AddCourt(f.tenant.ID, "Quadra 1")
	b := f.book(court, "Pedro", 22, 18, 19)
	f.book(court, "Maria", 22, 20, 21)

	res := f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"end": "20:30"},
	})

	assert.False(t, res.OK)
	assert.Equal(t, ReasonTimeConflict, res.Reason)
	assert.True(t, res.Conflict)
	assert.True(t, f.repo.Booking(b.ID).EndsAt.Equal(f.clock.ToUTC(2025, 11, 22, 19, 0)))
}

func TestUpdateBooking_ModalityMustBelongToCourt(t *testing.T) {
	f := newFixture(t)
	court := f.repo.AddCourt(f.tenant.ID, "Quadra 1", "futevolei", "volei")
	b := f.book(court, "Pedro", 22, 18, 19)

	res := f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"modality": "tenis"},
	})
	assert.Equal(t, ReasonInvalidModality, res.Reason)

	res = f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"modality": "Vôlei"},
	})
	require.True(t, res.OK, res.Error)
	assert.Equal(t, "volei", f.repo.Booking(b.ID).Modality)
}

func TestUpdateBooking_CanceledIsTerminal(t *testing.T) {
	f := newFixture(t)
	court := f.repo.AddCourt(f.tenant.ID, "Quadra 1")
	b := f.book(court, "Pedro", 22, 18, 19)

	res := f.run(UpdateBooking, map[string]any{
		"agendamento_id": b.ID.String(),
		"campos":         map[string]any{"status": "canceled"},
	})
	require.True(t, res.OK, res.Error)

	for _, status := range []string{"scheduled", "confirmed"} {
		res = f.run(UpdateBooking, map[string]any{
			"agendamento_id": b.ID.String(),
			"campos":         map[string]any{"status": status},
		})
		assert.False(t, res.OK, status)
		assert.Equal(t, PolicyWriteRejected, res.Policy, status)
		assert.Equal(t, ReasonBookingCanceled, res.Reason, status)
		assert.Empty(t, res.Applied, status)
		assert.Equal(t, entity.BookingStatusCanceled, f.repo.Booking(b.ID).Status, status)
	}
}
