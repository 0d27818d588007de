package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"courtbook-api/core/logger"
	"courtbook-api/modules/assistant/availability"
	"courtbook-api/modules/assistant/mapper"
	"courtbook-api/modules/assistant/resolver"
	"courtbook-api/modules/assistant/timemodel"
	"courtbook-api/modules/booking/entity"
	"courtbook-api/modules/booking/repository"

	"github.com/google/uuid"
)

func (e *Executor) createBooking(ctx context.Context, scope Scope, args map[string]any) *Result {
	responsible := stringArg(args, "responsavel")

	day, err := timemodel.ParseDate(stringArg(args, "data"))
	if err != nil {
		return rejected(DomainBookings, ReasonInvalidArguments, err.Error())
	}
	start, err := timemodel.ParseClock(stringArg(args, "hora_inicio"))
	if err != nil {
		return rejected(DomainBookings, ReasonInvalidArguments, err.Error())
	}
	end, err := timemodel.ParseClock(stringArg(args, "hora_fim"))
	if err != nil {
		return rejected(DomainBookings, ReasonInvalidArguments, err.Error())
	}
	requested := availability.Interval{Start: start, End: timemodel.NormalizeEnd(end)}
	if requested.Empty() {
		return rejected(DomainBookings, ReasonInvalidInterval, "hora_fim deve ser depois de hora_inicio")
	}

	client, res := e.resolveBookingClient(ctx, scope, stringArg(args, "cliente_id"), responsible)
	if res != nil {
		return res
	}

	courtRes, err := e.resolver.ResolveCourt(ctx, scope.TenantID, stringArg(args, "quadra"), stringArg(args, "modalidade"))
	if err != nil {
		return failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao consultar quadras")
	}
	if courtRes.Outcome != resolver.OutcomeAuto {
		res := rejected(DomainBookings, ReasonMustChooseCourt, "escolha a quadra antes de agendar")
		res.CourtOptions = mapper.ToCourtOptions(courtRes.Candidates, courtRes.Courts)
		return res
	}
	court := courtRes.Court

	modality, note, res := checkModality(court, stringArg(args, "modalidade"))
	if res != nil {
		return res
	}

	check, err := e.engine.CheckDay(ctx, scope.TenantID, court.ID, day, requested, nil)
	if err != nil {
		return failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao verificar disponibilidade")
	}
	if check.Conflict {
		return conflictResult(e, check)
	}

	startsAt, endsAt := e.clock.Interval(day, requested.Start, requested.End)
	booking := &entity.Booking{
		TenantID:         scope.TenantID,
		CourtID:          court.ID,
		StartsAt:         startsAt,
		EndsAt:           endsAt,
		Status:           entity.BookingStatusScheduled,
		Modality:         modality,
		ResponsibleLabel: responsible,
	}
	if client != nil {
		booking.ClientID = &client.ID
		if booking.ResponsibleLabel == "" {
			booking.ResponsibleLabel = client.Name
		}
	}

	created, err := e.repo.CreateBooking(ctx, booking)
	if errors.Is(err, repository.ErrBookingOverlap) {
		return e.recheckConflict(ctx, scope, court.ID, day, requested, nil)
	}
	if err != nil {
		return failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao gravar o agendamento")
	}

	participant := &entity.Participant{
		TenantID:      scope.TenantID,
		BookingID:     created.ID,
		ClientID:      booking.ClientID,
		Name:          booking.ResponsibleLabel,
		IsResponsible: true,
	}
	if err := e.repo.AddParticipant(ctx, participant); err != nil {
		logger.Warn("ToolExecutor:CreateBooking:Participant", "error", err, "booking_id", created.ID)
	}

	view := mapper.ToBookingView(e.clock, created)
	out := &Result{OK: true, Policy: PolicyWriteAllowed, Domain: DomainBookings, Booking: &view, Note: note}
	return out
}

// resolveBookingClient links the booking to a registered client when possible.
// An unknown name is accepted as a walk-in label; a tie is a rejection.
func (e *Executor) resolveBookingClient(ctx context.Context, scope Scope, clientID, responsible string) (*entity.Client, *Result) {
	if clientID != "" {
		id, err := uuid.Parse(clientID)
		if err != nil {
			return nil, rejected(DomainBookings, ReasonInvalidArguments, "cliente_id invalido")
		}
		client, err := e.repo.GetClientByID(ctx, scope.TenantID, id)
		if err != nil {
			return nil, failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao consultar cliente")
		}
		if client == nil {
			return nil, rejected(DomainBookings, ReasonClientNotFound, "cliente nao encontrado")
		}
		return client, nil
	}

	resolution, err := e.resolver.ResolveClient(ctx, scope.TenantID, responsible)
	if err != nil {
		return nil, failed(DomainBookings, PolicyWriteError, ReasonStorage, "falha ao consultar clientes")
	}
	switch resolution.Outcome {
	case resolver.OutcomeAuto:
		return resolution.Client(), nil
	case resolver.OutcomeAmbiguous:
		res := rejected(DomainBookings, ReasonAmbiguousClient, fmt.Sprintf("mais de um cliente corresponde a %q", responsible))
		res.Candidates = mapper.ToClientViews(resolution.Clients)
		return nil, res
	default:
		return nil, nil
	}
}

// checkModality returns the modality to store. A court with a single modality
// always gets it; a court without any accepts whatever was asked.
func checkModality(court *entity.Court, requested string) (string, string, *Result) {
	modalities := []string(court.Modalities)
	switch len(modalities) {
	case 0:
		return strings.TrimSpace(requested), "", nil
	case 1:
		note := ""
		if requested != "" {
			if _, ok := resolver.MatchModality(modalities, requested); !ok {
				note = fmt.Sprintf("a quadra %s so oferece %s; modalidade ajustada", court.Name, modalities[0])
			}
		}
		return modalities[0], note, nil
	}

	if strings.TrimSpace(requested) == "" {
		res := rejected(DomainBookings, ReasonModalityRequired, fmt.Sprintf("informe a modalidade para a quadra %s", court.Name))
		res.Modalities = modalities
		return "", "", res
	}
	matched, ok := resolver.MatchModality(modalities, requested)
	if !ok {
		res := rejected(DomainBookings, ReasonInvalidModality, fmt.Sprintf("a quadra %s nao oferece %s", court.Name, requested))
		res.Modalities = modalities
		return "", "", res
	}
	return matched, "", nil
}

func conflictResult(e *Executor, check *availability.Check) *Result {
	res := rejected(DomainBookings, ReasonTimeConflict, "horario indisponivel nesta quadra")
	res.Conflict = true
	res.Conflicts = mapper.ToBookingViews(e.clock, check.Conflicts)
	res.AvailableIntervals = mapper.ToFreeSlots(check.Free)
	return res
}

// recheckConflict builds the rejection after the storage constraint refused a
// write that the advisory check had let through.
func (e *Executor) recheckConflict(ctx context.Context, scope Scope, courtID uuid.UUID, day timemodel.Date, requested availability.Interval, exclude *uuid.UUID) *Result {
	check, err := e.engine.CheckDay(ctx, scope.TenantID, courtID, day, requested, exclude)
	if err != nil || !check.Conflict {
		res := rejected(DomainBookings, ReasonTimeConflict, "horario indisponivel nesta quadra")
		res.Conflict = true
		return res
	}
	return conflictResult(e, check)
}
