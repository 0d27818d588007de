package service

import (
	"fmt"
	"regexp"
	"strings"

	"courtbook-api/core/logger"
	"courtbook-api/core/metrics"
	"courtbook-api/modules/assistant/dto"
	"courtbook-api/modules/assistant/resolver"
	"courtbook-api/modules/assistant/tools"
)

// guardRule may replace the draft with a deterministic reply built from the
// tool results of the turn. modelOnly rules skip drafts the model never wrote.
type guardRule struct {
	name      string
	modelOnly bool
	apply     func(t *turn, d *draft) (string, bool)
}

var guardRules = []guardRule{
	{name: "update_failed", apply: failedUpdates},
	{name: "ambiguous_client", modelOnly: true, apply: ambiguousClients},
	{name: "must_choose_court", modelOnly: true, apply: mustChooseCourt},
	{name: "change_without_write", modelOnly: true, apply: changeWithoutWrite},
	{name: "unbacked_success", modelOnly: true, apply: unbackedSuccess},
}

// guard returns the reply the user will see.
func (s *assistantService) guard(t *turn, d *draft) string {
	for _, rule := range guardRules {
		if rule.modelOnly && d.deterministic {
			continue
		}
		if reply, ok := rule.apply(t, d); ok {
			metrics.GuardrailOverrides.WithLabelValues(rule.name).Inc()
			logger.Info("AssistantService:Guard:Override", "rule", rule.name, "tenant_id", t.scope.TenantID, "source", d.source)
			return reply
		}
	}

	reply := Sanitize(d.reply)
	if reply == "" {
		if len(t.invocations) > 0 {
			return summarizeInvocations(t.invocations)
		}
		return msgAskAgain
	}
	return reply
}

func failedUpdates(t *turn, _ *draft) (string, bool) {
	var failures, applied []string
	for _, inv := range t.invocations {
		if inv.Name != tools.UpdateBooking {
			continue
		}
		if inv.Result.OK {
			if inv.Result.Booking != nil {
				applied = append(applied, bookingLine(*inv.Result.Booking))
			}
			continue
		}
		failures = append(failures, updateFailure(inv))
	}
	if len(failures) == 0 {
		return "", false
	}
	reply := strings.Join(failures, "\n")
	if len(applied) > 0 {
		reply += "\nAlterações concluídas:\n" + strings.Join(applied, "\n")
	}
	return reply, true
}

func ambiguousClients(t *turn, _ *draft) (string, bool) {
	if anyWritten(t, tools.CreateBooking) {
		return "", false
	}
	creating := HasCreateIntent(t.message) || HasCreateIntent(previousAssistant(t.history))
	for _, inv := range t.invocations {
		r := inv.Result
		if len(r.Candidates) < 2 {
			continue
		}
		if (inv.Name == tools.CreateBooking && r.Reason == tools.ReasonAmbiguousClient) || (inv.Name == tools.ListClients && creating) {
			return "Encontrei mais de um cliente com esse nome:\n" + numberedClients(r.Candidates) + "\n" + msgChooseByNumber, true
		}
	}
	return "", false
}

func mustChooseCourt(t *turn, _ *draft) (string, bool) {
	if anyWritten(t, tools.CreateBooking) {
		return "", false
	}
	for _, inv := range t.invocations {
		r := inv.Result
		if inv.Name != tools.CreateBooking || r.Reason != tools.ReasonMustChooseCourt || len(r.CourtOptions) == 0 {
			continue
		}
		reply := "Em qual quadra deve ficar o agendamento?\n" + numberedCourts(r.CourtOptions)
		if guess, ok := likelyCourt(r.CourtOptions, recentText(t)); ok {
			return reply + fmt.Sprintf("\nVocê quis dizer a %d) %s? Responda \"sim\" para confirmar ou o número de outra quadra.", guess.Ordinal, guess.Name), true
		}
		return reply + "\n" + msgChooseCourt, true
	}
	return "", false
}

func changeWithoutWrite(t *turn, _ *draft) (string, bool) {
	if !HasChangeIntent(t.message) || len(t.invocations) == 0 {
		return "", false
	}
	for _, inv := range t.invocations {
		if inv.Name == tools.CreateBooking || inv.Name == tools.UpdateBooking {
			return "", false
		}
	}

	var found []dto.BookingView
	seen := map[string]bool{}
	for _, inv := range t.invocations {
		if inv.Name != tools.ListBookings || !inv.Result.OK {
			continue
		}
		for _, b := range inv.Result.Bookings {
			if !seen[b.ID] {
				seen[b.ID] = true
				found = append(found, b)
			}
		}
	}

	cancel := HasCancelIntent(t.message)
	if len(found) == 0 {
		if cancel {
			return "Não encontrei agendamentos correspondentes. " + msgNothingCanceled, true
		}
		return "Não encontrei agendamentos correspondentes. " + msgNothingChanged, true
	}

	listing := bookingListing("Encontrei estes agendamentos:", found)
	if cancel {
		what := "esse agendamento"
		if len(found) > 1 {
			what = "esses agendamentos"
		}
		return fmt.Sprintf("%s\n%s Deseja cancelar %s? Responda \"sim\" para confirmar.", listing, msgNothingCanceled, what), true
	}
	if end, _, ok := ExtractEndTime(t.message); ok {
		return fmt.Sprintf("%s\n%s Deseja alterar o término para %s? Responda \"sim\" para confirmar.", listing, msgNothingChanged, FormatEnd(end)), true
	}
	return listing + "\n" + msgNothingChanged + " O que deseja alterar?", true
}

var (
	successClaim  = regexp.MustCompile(`\b(?:criad[oa]s?|cancelad[oa]s?|alterad[oa]s?|atualizad[oa]s?|remarcad[oa]s?|com sucesso|cancelei|criei|alterei|atualizei|agendei|reservei|marquei|remarquei)\b`)
	claimNegation = regexp.MustCompile(`\b(?:nada|nao|nenhum|nenhuma|sem)\b`)
)

// ClaimsSuccess reports whether text says a write happened. Negated mentions
// such as "nada foi cancelado" do not count.
func ClaimsSuccess(text string) bool {
	n := resolver.Normalize(text)
	for _, loc := range successClaim.FindAllStringIndex(n, -1) {
		from := loc[0] - 30
		if from < 0 {
			from = 0
		}
		if !claimNegation.MatchString(n[from:loc[0]]) {
			return true
		}
	}
	return false
}

func unbackedSuccess(t *turn, d *draft) (string, bool) {
	attempted := false
	for _, inv := range t.invocations {
		if inv.Result.Written() {
			return "", false
		}
		if inv.Name == tools.CreateBooking || inv.Name == tools.UpdateBooking {
			attempted = true
		}
	}
	// "quais foram cancelados?" is a question about past changes
	if !attempted && listVerb.MatchString(resolver.Normalize(t.message)) {
		return "", false
	}
	if !ClaimsSuccess(d.reply) {
		return "", false
	}
	for _, inv := range t.invocations {
		if inv.Name == tools.CreateBooking && !inv.Result.OK {
			return "Não foi possível criar o agendamento. " + describeRejection(inv.Result), true
		}
	}
	return "Não consegui confirmar essa operação e nenhuma alteração foi registrada. " + msgAskAgain, true
}

func anyWritten(t *turn, name string) bool {
	for _, inv := range t.invocations {
		if inv.Name == name && inv.Result.Written() {
			return true
		}
	}
	return false
}

// recentText is the current message plus the last few user turns, newest first.
func recentText(t *turn) string {
	parts := []string{t.message}
	for i := len(t.history) - 1; i >= 0 && len(parts) < 4; i-- {
		if t.history[i].Role == "user" {
			parts = append(parts, t.history[i].Content)
		}
	}
	return strings.Join(parts, "\n")
}

var courtOrdinal = regexp.MustCompile(`\bquadra\s+(?:no?\s*)?(\d{1,2})\b`)

// likelyCourt picks the court the conversation points at, by name or number.
func likelyCourt(courts []dto.CourtView, text string) (dto.CourtView, bool) {
	n := resolver.Normalize(text)
	words := map[string]bool{}
	for _, w := range strings.Fields(n) {
		words[w] = true
	}

	var hits []dto.CourtView
	for _, c := range courts {
		name := resolver.Normalize(c.Name)
		if name != "" && strings.Contains(" "+n+" ", " "+name+" ") {
			hits = append(hits, c)
			continue
		}
		for _, w := range strings.Fields(name) {
			if w != "quadra" && len(w) > 3 && words[w] {
				hits = append(hits, c)
				break
			}
		}
	}
	if len(hits) == 1 {
		return hits[0], true
	}
	if len(hits) > 1 {
		return dto.CourtView{}, false
	}

	if m := courtOrdinal.FindStringSubmatch(n); m != nil {
		for _, c := range courts {
			if fmt.Sprint(c.Ordinal) == m[1] {
				return c, true
			}
		}
	}
	return dto.CourtView{}, false
}

var (
	uuidToken   = regexp.MustCompile(`(?i)\b[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\b`)
	hexToken    = regexp.MustCompile(`(?i)\b[0-9a-f]{16,}\b`)
	opaqueToken = regexp.MustCompile(`\b[A-Za-z0-9_-]{20,}\b`)
	idLeftover  = regexp.MustCompile(`(?i)\s*[(\[]\s*(?:id|identificador|c[oó]digo interno)?\s*:?\s*[)\]]`)
	idLabel     = regexp.MustCompile(`(?im)[,;]?\s*\b(?:id|identificador)\s*:\s*([.,;]|$)`)
	filler      = regexp.MustCompile(`(?i)(?:vou (?:verificar|consultar|checar|conferir)|deixa eu (?:ver|verificar)|deixe-me (?:ver|verificar)|um momento|s[oó] um (?:momento|instante)|aguarde(?: um instante)?|let me check|one moment)[^.!?\n]*[.!?…]*[ \t]*`)
	spaces      = regexp.MustCompile(`[ \t]{2,}`)
)

// Sanitize strips identifier-looking tokens and stalling phrases from text
// meant for the user.
func Sanitize(text string) string {
	text = uuidToken.ReplaceAllString(text, "")
	text = hexToken.ReplaceAllString(text, "")
	text = opaqueToken.ReplaceAllStringFunc(text, func(tok string) string {
		if strings.ContainsAny(tok, "0123456789") && strings.IndexFunc(tok, isLetter) >= 0 {
			return ""
		}
		return tok
	})
	text = idLeftover.ReplaceAllString(text, "")
	text = idLabel.ReplaceAllString(text, "$1")
	text = filler.ReplaceAllString(text, "")
	text = spaces.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
