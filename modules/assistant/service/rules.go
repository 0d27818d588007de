package service

import (
	"regexp"
	"strconv"
	"strings"

	"courtbook-api/modules/assistant/resolver"
	"courtbook-api/modules/assistant/timemodel"

	"github.com/gosimple/unidecode"
)

// fold lowercases and strips diacritics but keeps punctuation, so that
// "Às 14:30" becomes "as 14:30" and dates keep their slashes.
func fold(s string) string {
	return strings.ToLower(unidecode.Unidecode(s))
}

// timeRule extracts a new end time from folded text. Rules are tried in the
// order of endTimeRules; the first match wins.
type timeRule struct {
	Name    string
	Pattern *regexp.Regexp
	// Group is the submatch index holding the hour; Group+1 holds the minutes.
	Group int
}

const (
	clockExpr  = `(\d{1,2})\s*(?:h|:)\s*(\d{2})?(?:\s*(?:min|hs|horas?))?`
	looseClock = `(\d{1,2})(?:\s*(?:h|:)\s*(\d{2})?)?(?:\s*(?:hs|horas?))?`
)

var endTimeRules = []timeRule{
	// "das 15h às 17h", "de 18:00 a 19:30": the later time is the new end
	{Name: "interval", Pattern: regexp.MustCompile(`(?:\b(?:das|de)\s+)?\b` + looseClock + `\s*(?:as|a|ate|-)\s+\b` + looseClock), Group: 3},
	// "finalizar às 16", "encerrar as 16h"
	{Name: "finish_verb", Pattern: regexp.MustCompile(`\b(?:finaliz|termin|encerr|acab)\w*\s+(?:as|a|ao|para as|pra as|pras)\s+` + looseClock), Group: 1},
	// "terminar 15:30"
	{Name: "finish_verb_clock", Pattern: regexp.MustCompile(`\b(?:finaliz|termin|encerr|acab)\w*\s+` + clockExpr), Group: 1},
	// "para as 14h30", "pra 14h"
	{Name: "para_as", Pattern: regexp.MustCompile(`\b(?:para|pra|pras)\s+(?:as\s+|a\s+)?` + clockExpr), Group: 1},
	{Name: "para_as_bare", Pattern: regexp.MustCompile(`\b(?:para|pra)\s+as\s+` + looseClock), Group: 1},
	// "até as 22", "até 22h"
	{Name: "ate_as", Pattern: regexp.MustCompile(`\bate\s+as\s+` + looseClock), Group: 1},
	{Name: "ate_clock", Pattern: regexp.MustCompile(`\bate\s+` + clockExpr), Group: 1},
}

// ExtractEndTime finds the end time a message asks for. It returns minutes
// since midnight (24h reads as 00:00) and the name of the rule that matched.
func ExtractEndTime(text string) (int, string, bool) {
	folded := fold(text)
	for _, rule := range endTimeRules {
		for _, m := range rule.Pattern.FindAllStringSubmatchIndex(folded, -1) {
			if rule.Name == "interval" && touchesDate(folded, m[2], m[3]) {
				continue
			}
			hourAt, minAt := 2*rule.Group, 2*rule.Group+2
			if touchesDate(folded, m[hourAt], m[hourAt+1]) {
				continue
			}
			minutes, ok := clockMinutes(folded[m[hourAt]:m[hourAt+1]], group(folded, m, minAt))
			if ok {
				return minutes, rule.Name, true
			}
		}
	}
	return 0, "", false
}

func group(s string, m []int, at int) string {
	if at+1 >= len(m) || m[at] < 0 {
		return ""
	}
	return s[m[at]:m[at+1]]
}

// touchesDate reports whether the number at [start,end) is part of a dd/mm
// date, so "28/11 às 15h" is not read as an 11-to-15 interval.
func touchesDate(s string, start, end int) bool {
	if start < 0 {
		return false
	}
	if start > 0 && s[start-1] == '/' {
		return true
	}
	return end < len(s) && s[end] == '/'
}

func clockMinutes(hourText, minuteText string) (int, bool) {
	hour, err := strconv.Atoi(hourText)
	if err != nil {
		return 0, false
	}
	minute := 0
	if minuteText != "" {
		if minute, err = strconv.Atoi(minuteText); err != nil {
			return 0, false
		}
	}
	if hour == 24 && minute == 0 {
		return 0, true
	}
	if hour > 23 || minute > 59 {
		return 0, false
	}
	return hour*60 + minute, true
}

// FormatEnd renders an extracted end time for the update tool.
func FormatEnd(minutes int) string {
	return timemodel.FormatClock(minutes)
}

var (
	yesWords = map[string]bool{
		"sim": true, "s": true, "ss": true, "isso": true, "pode": true, "confirmo": true,
		"confirma": true, "confirmado": true, "ok": true, "okay": true, "certo": true,
		"claro": true, "yes": true, "beleza": true, "blz": true, "fechado": true,
		"exato": true, "correto": true, "perfeito": true, "positivo": true,
	}
	// words that may follow a yes without narrowing it
	affirmativeFiller = map[string]bool{
		"pode": true, "podem": true, "por": true, "favor": true, "pf": true, "pfv": true,
		"cancelar": true, "cancela": true, "cancele": true, "alterar": true, "altera": true,
		"altere": true, "mudar": true, "muda": true, "confirmar": true, "mesmo": true,
		"entao": true, "ai": true, "obrigado": true, "obrigada": true, "valeu": true,
		"vlw": true, "faz": true, "faca": true, "fazer": true, "ser": true,
	}
	negationPattern = regexp.MustCompile(`\b(?:nao|nem|cancela nao|espera|pera)\b`)

	cancelPattern = regexp.MustCompile(`\b(?:cancelar|cancele|cancela|cancelem|cancelamento|desmarcar|desmarque|desmarca|excluir|exclua|exclui|apagar|apague|apaga|remover|remova|remove)\b`)
	changePattern = regexp.MustCompile(`\b(?:alterar|altere|altera|mudar|mude|muda|trocar|troque|troca|remarcar|remarque|remarca|adiantar|adiante|adianta|atrasar|atrase|atrasa|prorrogar|prorrogue|prorroga|estender|estenda|estende|passar|passe|finalizar|finalize|terminar|termine|encerrar|encerre)\b`)
	createPattern = regexp.MustCompile(`\b(?:agendar|agende|agendo|agenda (?:pra|para)|reservar|reserve|reservo|marcar|marque|marca|vincular|vincule|vincula|cadastrar|cadastre|criar|crie|novo agendamento|nova reserva)\b`)

	bookingNoun  = regexp.MustCompile(`\b(?:agendamentos?|reservas?|agenda|jogos?|horarios? marcados?)\b`)
	listVerb     = regexp.MustCompile(`^(?:quais|qual|liste|listar|lista|mostre|mostrar|mostra|ver|veja|me mostra|me mostre|me passa|tem|ha|existe|existem|como esta|como estao)\b`)
	todayWord    = regexp.MustCompile(`\bhoje\b`)
	otherDayWord = regexp.MustCompile(`\b(?:amanha|ontem|semana|mes|segunda|terca|quarta|quinta|sexta|sabado|domingo|janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)\b|\d`)

	dateLabelPattern = regexp.MustCompile(`\b(\d{2})/(\d{2})/(\d{4})\b`)
	listingLine      = regexp.MustCompile(`^\s*\d{1,2}[).]\s+(.+?)\s+-\s+`)
)

// IsAffirmative reports whether a message is a bare yes/confirmation. Any
// word that could narrow the confirmation ("so o da Maria", "o 2") makes it
// not bare.
func IsAffirmative(message string) bool {
	n := resolver.Normalize(message)
	if n == "" || negationPattern.MatchString(n) {
		return false
	}
	words := strings.Fields(n)
	if len(words) > 5 || !yesWords[words[0]] {
		return false
	}
	for _, w := range words[1:] {
		if !yesWords[w] && !affirmativeFiller[w] {
			return false
		}
	}
	return true
}

func HasCancelIntent(message string) bool {
	return cancelPattern.MatchString(resolver.Normalize(message))
}

func HasChangeIntent(message string) bool {
	n := resolver.Normalize(message)
	return cancelPattern.MatchString(n) || changePattern.MatchString(n)
}

// HasEndChangeIntent is a change request that names a new end time.
func HasEndChangeIntent(message string) bool {
	n := resolver.Normalize(message)
	if cancelPattern.MatchString(n) || !changePattern.MatchString(n) {
		return false
	}
	_, _, ok := ExtractEndTime(message)
	return ok
}

func HasCreateIntent(text string) bool {
	return createPattern.MatchString(resolver.Normalize(text))
}

// listWords is the whole vocabulary of a plain "today's bookings" request.
// Any other word (a name, a court, a day) sends the turn to the model.
var listWords = map[string]bool{
	"quais": true, "qual": true, "quantos": true, "quantas": true, "sao": true, "os": true, "as": true,
	"o": true, "a": true, "e": true, "me": true, "liste": true, "listar": true, "lista": true,
	"mostre": true, "mostrar": true, "mostra": true, "ver": true, "veja": true, "passa": true,
	"tem": true, "ha": true, "existe": true, "existem": true, "como": true, "esta": true, "estao": true,
	"agendamentos": true, "agendamento": true, "reservas": true, "reserva": true, "agenda": true,
	"jogos": true, "jogo": true, "horarios": true, "marcados": true, "de": true, "do": true, "da": true,
	"para": true, "pra": true, "hoje": true, "todos": true, "todas": true, "por": true, "favor": true,
	"ai": true, "algum": true, "alguma": true,
}

// IsTodayListRequest matches short, unambiguous "list today's bookings"
// requests with no date, name or action in them.
func IsTodayListRequest(message string) bool {
	n := resolver.Normalize(message)
	if !bookingNoun.MatchString(n) || HasChangeIntent(message) || createPattern.MatchString(n) {
		return false
	}
	words := strings.Fields(n)
	if len(words) > 8 {
		return false
	}
	for _, w := range words {
		if !listWords[w] {
			return false
		}
	}
	return listVerb.MatchString(n) || todayWord.MatchString(n)
}

// IsTodayQuestion is the broader "what is booked today" question used when the
// model is unavailable.
func IsTodayQuestion(message string) bool {
	n := resolver.Normalize(message)
	if !bookingNoun.MatchString(n) || HasChangeIntent(message) || createPattern.MatchString(n) {
		return false
	}
	return todayWord.MatchString(n) || !otherDayWord.MatchString(n)
}

// MentionsToday is true when the message says "hoje" or names no other day.
func MentionsToday(message string) bool {
	n := resolver.Normalize(message)
	if todayWord.MatchString(n) {
		return true
	}
	stripped := fold(message)
	for _, m := range endTimeRules {
		stripped = m.Pattern.ReplaceAllString(stripped, " ")
	}
	return !otherDayWord.MatchString(resolver.Normalize(stripped))
}

// ParseListingDate returns the first DD/MM/YYYY date of a text.
func ParseListingDate(text string) (timemodel.Date, bool) {
	m := dateLabelPattern.FindStringSubmatch(text)
	if m == nil {
		return timemodel.Date{}, false
	}
	d, err := timemodel.ParseDate(m[3] + "-" + m[2] + "-" + m[1])
	if err != nil {
		return timemodel.Date{}, false
	}
	return d, true
}

// ListingEntry is one numbered booking line as the assistant renders it.
// Date and Start are empty when the line does not carry them.
type ListingEntry struct {
	Name  string
	Date  string
	Start string
}

// ParseListingEntries reads the numbered booking lines of a prior reply.
func ParseListingEntries(text string) []ListingEntry {
	var entries []ListingEntry
	for _, line := range strings.Split(text, "\n") {
		m := listingLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entry := ListingEntry{Name: strings.TrimSpace(m[1])}
		if full := listingDetail.FindStringSubmatch(line); full != nil {
			entry.Date, entry.Start = full[1], full[2]
		}
		entries = append(entries, entry)
	}
	return entries
}

var listingDetail = regexp.MustCompile(`\s-\s.*?(\d{2}/\d{2}/\d{4})\s+das\s+(\d{2}:\d{2})`)

// stripListing drops numbered listing lines, leaving the prose around them.
func stripListing(text string) string {
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if listingLine.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}
