package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"courtbook-api/modules/assistant/availability"
	"courtbook-api/modules/assistant/mapper"
	"courtbook-api/modules/assistant/resolver"
	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/booking/entity"
	"courtbook-api/modules/booking/repository"

	"github.com/google/uuid"
)

// MutableFields is the allow-list of booking fields an update may touch.
var MutableFields = []string{"start", "end", "status", "modality"}

func isMutable(field string) bool {
	for _, f := range MutableFields {
		if f == field {
			return true
		}
	}
	return false
}

func (e *Executor) updateBooking(ctx context.Context, scope Scope, args map[string]any) *Result {
	id, err := uuid.Parse(stringArg(args, "agendamento_id"))
	if err != nil {
		return rejected(DomainBookings, ReasonInvalidArguments, "agendamento_id invalido")
	}

	fields, _ := args["campos"].(map[string]any)
	allowed := map[string]string{}
	var ignored []string
	for key := range fields {
		if isMutable(key) {
			allowed[key] = stringArg(fields, key)
		} else {
			ignored = append(ignored, key)
		}
	}
	sort.Strings(ignored)

	if len(allowed) == 0 {
		res := rejected(DomainBookings, ReasonNoAllowedFields, "nenhum campo alteravel informado (start, end, status, modality)")
		res.Ignored = ignored
		return res
	}

	current, err := e.repo.GetBookingByID(ctx, scope.TenantID, id)
	if err != nil {
		return failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao consultar o agendamento")
	}
	if current == nil {
		res := failed(DomainBookings, PolicyWriteNoOp, ReasonNotFound, "agendamento nao encontrado")
		res.Ignored = ignored
		return res
	}

	patch, applied, res := e.buildPatch(ctx, scope, current, allowed)
	if res != nil {
		res.Ignored = ignored
		return res
	}
	// canceled is terminal here; reactivation happens outside the assistant
	if current.Status == entity.BookingStatusCanceled && patch.Status != nil && *patch.Status != entity.BookingStatusCanceled {
		res := rejected(DomainBookings, ReasonBookingCanceled, "agendamento cancelado nao pode mudar de status")
		res.Ignored = ignored
		return res
	}

	startsAt, endsAt := current.StartsAt, current.EndsAt
	if patch.StartsAt != nil {
		startsAt = *patch.StartsAt
	}
	if patch.EndsAt != nil {
		endsAt = *patch.EndsAt
	}
	day := e.clock.DateOf(startsAt)
	requested := availability.Interval{
		Start: e.clock.StartMinutes(day, startsAt),
		End:   e.clock.EndMinutes(day, endsAt),
	}

	if patch.StartsAt != nil || patch.EndsAt != nil {
		if !startsAt.Before(endsAt) {
			return rejected(DomainBookings, ReasonInvalidInterval, "o fim precisa ser depois do inicio")
		}

		status := current.Status
		if patch.Status != nil {
			status = *patch.Status
		}
		if status != entity.BookingStatusCanceled {
			check, err := e.engine.CheckDay(ctx, scope.TenantID, current.CourtID, day, requested, &current.ID)
			if err != nil {
				return failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao verificar disponibilidade")
			}
			if check.Conflict {
				return conflictResult(e, check)
			}
		}
	}

	updated, err := e.repo.UpdateBooking(ctx, scope.TenantID, id, patch)
	if errors.Is(err, repository.ErrBookingOverlap) {
		return e.recheckConflict(ctx, scope, current.CourtID, day, requested, &current.ID)
	}
	if err != nil {
		return failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao atualizar o agendamento")
	}
	if updated == nil {
		return failed(DomainBookings, PolicyWriteNoOp, ReasonNotFound, "agendamento nao encontrado")
	}

	view := mapper.ToBookingView(e.clock, updated)
	return &Result{
		OK:      true,
		Policy:  PolicyWriteAllowed,
		Domain:  DomainBookings,
		Booking: &view,
		Applied: applied,
		Ignored: ignored,
	}
}

// buildPatch turns the allow-listed values into a patch, in MutableFields order.
func (e *Executor) buildPatch(ctx context.Context, scope Scope, current *entity.Booking, allowed map[string]string) (entity.BookingPatch, []string, *Result) {
	var patch entity.BookingPatch
	applied := []string{}
	day := e.clock.DateOf(current.StartsAt)

	for _, field := range MutableFields {
		value, ok := allowed[field]
		if !ok {
			continue
		}
		switch field {
		case "start":
			t, err := e.parseInstant(day, value, false)
			if err != nil {
				return patch, nil, rejected(DomainBookings, ReasonInvalidArguments, err.Error())
			}
			patch.StartsAt = &t
		case "end":
			t, err := e.parseInstant(day, value, true)
			if err != nil {
				return patch, nil, rejected(DomainBookings, ReasonInvalidArguments, err.Error())
			}
			patch.EndsAt = &t
		case "status":
			status := entity.BookingStatus(value)
			if !status.Valid() {
				return patch, nil, rejected(DomainBookings, ReasonInvalidArguments, fmt.Sprintf("status invalido: %s", value))
			}
			patch.Status = &status
		case "modality":
			modality, res := e.checkUpdateModality(ctx, scope, current.CourtID, value)
			if res != nil {
				return patch, nil, res
			}
			patch.Modality = &modality
		}
		applied = append(applied, field)
	}
	return patch, applied, nil
}

// parseInstant accepts HH:mm on the booking's local day or an RFC3339 instant.
// An end of 00:00 is midnight of the following day.
func (e *Executor) parseInstant(day timemodel.Date, value string, isEnd bool) (time.Time, error) {
	if minutes, err := timemodel.ParseClock(value); err == nil {
		if isEnd {
			minutes = timemodel.NormalizeEnd(minutes)
		}
		return e.clock.At(day, minutes), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("horario invalido %q: use HH:mm ou RFC3339", value)
	}
	return t.UTC(), nil
}

func (e *Executor) checkUpdateModality(ctx context.Context, scope Scope, courtID uuid.UUID, value string) (string, *Result) {
	courts, err := e.repo.ListCourts(ctx, scope.TenantID)
	if err != nil {
		return "", failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao consultar quadras")
	}
	for i := range courts {
		if courts[i].ID != courtID {
			continue
		}
		if len(courts[i].Modalities) == 0 {
			return value, nil
		}
		matched, ok := resolver.MatchModality(courts[i].Modalities, value)
		if !ok {
			res := rejected(DomainBookings, ReasonInvalidModality, fmt.Sprintf("a quadra %s nao oferece %s", courts[i].Name, value))
			res.Modalities = []string(courts[i].Modalities)
			return "", res
		}
		return matched, nil
	}
	return value, nil
}
