package service

import (
	"fmt"
	"strings"

	"courtbook-api/modules/assistant/dto"
	"courtbook-api/modules/assistant/tools"
)

const (
	msgFallback        = "Desculpe, não consegui processar sua mensagem agora. Pode tentar novamente em instantes?"
	msgUnknownTenant   = "Não encontrei o estabelecimento informado. Verifique o código e tente novamente."
	msgAskAgain        = "Como posso ajudar com os agendamentos?"
	msgNothingChanged  = "Nada foi alterado ainda."
	msgNothingCanceled = "Nada foi cancelado ainda."
	msgNoBookingsToday = "Não há agendamentos para hoje."
	msgChooseByNumber  = "Responda com o número ou o código do cliente."
	msgChooseCourt     = "Responda com o número da quadra."
	msgWhichBooking    = "Qual deles?"
	msgStorageFailure  = "Não consegui acessar os agendamentos agora. Tente novamente em instantes."
)

// bookingLine renders "João Pereira - Quadra 1 - 28/11/2025 das 18:00 às 19:00".
// Identifiers are never shown to the user.
func bookingLine(b dto.BookingView) string {
	line := fmt.Sprintf("%s - %s - %s das %s às %s", b.Responsible, b.Court, b.Date, b.StartTime, b.EndTime)
	if b.Modality != "" {
		line += " (" + b.Modality + ")"
	}
	return line
}

func numberedBookings(bookings []dto.BookingView) string {
	lines := make([]string, len(bookings))
	for i, b := range bookings {
		lines[i] = fmt.Sprintf("%d) %s", i+1, bookingLine(b))
	}
	return strings.Join(lines, "\n")
}

func bookingListing(header string, bookings []dto.BookingView) string {
	return header + "\n" + numberedBookings(bookings)
}

func todayListing(date string, bookings []dto.BookingView) string {
	if len(bookings) == 0 {
		return msgNoBookingsToday
	}
	return bookingListing(fmt.Sprintf("Agendamentos de hoje (%s):", date), bookings)
}

func numberedClients(clients []dto.ClientView) string {
	lines := make([]string, len(clients))
	for i, c := range clients {
		line := fmt.Sprintf("%d) %s", i+1, c.Name)
		if c.Code != "" {
			line = fmt.Sprintf("%d) [%s] %s", i+1, c.Code, c.Name)
		}
		if c.Phone != "" {
			line += " - " + c.Phone
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func numberedCourts(courts []dto.CourtView) string {
	lines := make([]string, len(courts))
	for i, c := range courts {
		line := fmt.Sprintf("%d) %s", c.Ordinal, c.Name)
		if len(c.Modalities) > 0 {
			line += " (" + strings.Join(c.Modalities, ", ") + ")"
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n")
}

func freeSlots(slots []dto.FreeSlot) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = s.StartTime + " às " + s.EndTime
	}
	return strings.Join(parts, ", ")
}

// describeRejection turns a failed tool result into a user-facing sentence.
func describeRejection(r *tools.Result) string {
	switch r.Reason {
	case tools.ReasonTimeConflict:
		msg := "O horário solicitado conflita com outro agendamento."
		if len(r.Conflicts) > 0 {
			msg += "\nConflitos:\n" + numberedBookings(r.Conflicts)
		}
		if len(r.AvailableIntervals) > 0 {
			msg += "\nHorários livres nesse dia: " + freeSlots(r.AvailableIntervals) + "."
		}
		return msg
	case tools.ReasonInvalidInterval:
		return "O horário de término precisa ser depois do horário de início."
	case tools.ReasonAmbiguousClient:
		return "Encontrei mais de um cliente com esse nome:\n" + numberedClients(r.Candidates) + "\n" + msgChooseByNumber
	case tools.ReasonClientNotFound:
		return "Não encontrei o cliente informado."
	case tools.ReasonMustChooseCourt, tools.ReasonCourtNotFound:
		msg := "Preciso saber em qual quadra."
		if len(r.CourtOptions) > 0 {
			msg += "\n" + numberedCourts(r.CourtOptions) + "\n" + msgChooseCourt
		}
		return msg
	case tools.ReasonModalityRequired:
		return "Essa quadra tem mais de uma modalidade: " + strings.Join(r.Modalities, ", ") + ". Qual delas?"
	case tools.ReasonInvalidModality:
		return "Essa modalidade não está disponível na quadra. Opções: " + strings.Join(r.Modalities, ", ") + "."
	case tools.ReasonNoAllowedFields:
		return "Nenhum campo permitido foi informado. Posso alterar início, término, status ou modalidade."
	case tools.ReasonNotFound:
		return "Não encontrei esse agendamento."
	case tools.ReasonBookingCanceled:
		return "Esse agendamento está cancelado e não pode ser reativado por aqui."
	case tools.ReasonInvalidArguments:
		return "Os dados informados estão incompletos ou inválidos."
	case tools.ReasonStorage, tools.ReasonInternal:
		return "Ocorreu uma falha ao acessar os agendamentos."
	}
	if r.Error != "" {
		return r.Error
	}
	return "A operação não pôde ser concluída."
}

// updateFailure names the booking, what was applied and why it stopped.
func updateFailure(inv tools.Invocation) string {
	id, _ := inv.Arguments["agendamento_id"].(string)
	if id == "" {
		id = "informado"
	}
	applied := "nenhum"
	if len(inv.Result.Applied) > 0 {
		applied = strings.Join(inv.Result.Applied, ", ")
	}
	return fmt.Sprintf("Não foi possível alterar o agendamento %s. Campos aplicados: %s. Motivo: %s",
		id, applied, describeRejection(inv.Result))
}

// summarizeInvocations builds a reply from tool results alone, used when the
// model could not compose one.
func summarizeInvocations(invocations []tools.Invocation) string {
	var parts []string
	for _, inv := range invocations {
		r := inv.Result
		if r == nil {
			continue
		}
		if !r.OK {
			parts = append(parts, describeRejection(r))
			continue
		}
		switch inv.Name {
		case tools.ListBookings:
			if len(r.Bookings) == 0 {
				parts = append(parts, "Nenhum agendamento encontrado.")
			} else {
				parts = append(parts, bookingListing("Agendamentos encontrados:", r.Bookings))
			}
		case tools.ListClients:
			if len(r.Clients) == 0 {
				parts = append(parts, "Nenhum cliente encontrado.")
			} else {
				parts = append(parts, "Clientes encontrados:\n"+numberedClients(r.Clients))
			}
		case tools.ListCourts:
			parts = append(parts, "Quadras:\n"+numberedCourts(r.Courts))
		case tools.CreateBooking:
			if r.Booking != nil {
				parts = append(parts, "Agendamento criado: "+bookingLine(*r.Booking)+".")
			}
		case tools.UpdateBooking:
			if r.Booking != nil {
				parts = append(parts, "Agendamento atualizado: "+bookingLine(*r.Booking)+".")
			}
		}
	}
	if len(parts) == 0 {
		return msgFallback
	}
	return strings.Join(parts, "\n\n")
}
