package service

import (
	"testing"
	"time"

	"courtbook-api/modules/assistant/timemodel"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractEndTime(t *testing.T) {
	cases := []struct {
		text string
		want string
		rule string
	}{
		{text: "muda o jogo de hoje das 15h às 17h", want: "17:00", rule: "interval"},
		{text: "de 18:00 a 19:30", want: "19:30", rule: "interval"},
		{text: "pode mudar para as 14h30", want: "14:30", rule: "para_as"},
		{text: "pra 14h", want: "14:00", rule: "para_as"},
		{text: "passar para as 16", want: "16:00", rule: "para_as_bare"},
		{text: "finalizar às 14h", want: "14:00", rule: "finish_verb"},
		{text: "encerrar 15:30", want: "15:30", rule: "finish_verb_clock"},
		{text: "vai até as 24h", want: "00:00", rule: "ate_as"},
		{text: "estender até 22h", want: "22:00", rule: "ate_clock"},
		{text: "Deseja alterar o término para 20:00? Responda \"sim\"", want: "20:00", rule: "para_as"},
	}
	for _, tc := range cases {
		minutes, rule, ok := ExtractEndTime(tc.text)
		require.True(t, ok, tc.text)
		assert.Equal(t, tc.want, FormatEnd(minutes), tc.text)
		assert.Equal(t, tc.rule, rule, tc.text)
	}
}

func TestExtractEndTime_NoMatch(t *testing.T) {
	for _, text := range []string{
		"marcar 28/11 às 15h",
		"terminar as 25h",
		"quais os agendamentos de hoje?",
		"encerrar 2 agendamentos",
	} {
		_, _, ok := ExtractEndTime(text)
		assert.False(t, ok, text)
	}
}

func TestIsAffirmative(t *testing.T) {
	for _, yes := range []string{"sim", "Sim!", "sim, pode cancelar", "Pode", "ok", "confirmo", "sim, pode sim", "Isso mesmo, obrigado"} {
		assert.True(t, IsAffirmative(yes), yes)
	}
	for _, no := range []string{"não", "sim mas não agora", "", "quero remarcar o jogo de amanhã para as 15h", "talvez",
		"sim, só o da Maria", "sim, o 2", "sim, o primeiro", "pode cancelar o do João"} {
		assert.False(t, IsAffirmative(no), no)
	}
}

func TestIntents(t *testing.T) {
	assert.True(t, HasCancelIntent("quero cancelar o jogo do João"))
	assert.False(t, HasCancelIntent("quais jogos foram cancelados?"))

	assert.True(t, HasChangeIntent("muda o jogo para as 15h"))
	assert.False(t, HasChangeIntent("que horas termina o jogo de hoje?"))

	assert.True(t, HasEndChangeIntent("alterar o jogo de hoje para terminar às 20h"))
	assert.False(t, HasEndChangeIntent("quais jogos vão até as 22h hoje?"))
	assert.False(t, HasEndChangeIntent("cancelar o jogo das 15h às 17h"))

	assert.True(t, HasCreateIntent("reservar a quadra 1 amanhã"))
	assert.False(t, HasCreateIntent("quais os agendamentos de hoje?"))
}

func TestIsTodayListRequest(t *testing.T) {
	for _, msg := range []string{"Quais os agendamentos de hoje?", "agendamentos de hoje", "mostra a agenda", "tem jogos hoje?"} {
		assert.True(t, IsTodayListRequest(msg), msg)
	}
	for _, msg := range []string{
		"Quais os agendamentos do João?",
		"quais agendamentos amanhã",
		"cancelar os agendamentos de hoje",
		"agendamentos da quadra 2",
		"bom dia",
	} {
		assert.False(t, IsTodayListRequest(msg), msg)
	}
}

func TestIsTodayQuestion_IsBroader(t *testing.T) {
	msg := "Me fala como está a agenda hoje, por favor"
	assert.False(t, IsTodayListRequest(msg))
	assert.True(t, IsTodayQuestion(msg))
	assert.False(t, IsTodayQuestion("cancelar a agenda de hoje"))
}

func TestMentionsToday(t *testing.T) {
	assert.True(t, MentionsToday("muda o jogo para terminar às 14h30"))
	assert.True(t, MentionsToday("o jogo de hoje termina às 15h?"))
	assert.False(t, MentionsToday("muda o jogo de amanhã para as 14h"))
	assert.False(t, MentionsToday("muda o jogo do dia 28/11 para as 14h"))
}

func TestParseListing(t *testing.T) {
	text := "Encontrei estes agendamentos:\n" +
		"1) João Pereira - Quadra 1 - 28/11/2025 das 18:00 às 19:00 (futevolei)\n" +
		"2) João Pereira - Quadra 2 - 28/11/2025 das 20:00 às 21:00\n" +
		"3. Maria - 18h\n" +
		"Nada foi cancelado ainda. Deseja cancelar?"

	entries := ParseListingEntries(text)
	require.Len(t, entries, 3)
	assert.Equal(t, ListingEntry{Name: "João Pereira", Date: "28/11/2025", Start: "18:00"}, entries[0])
	assert.Equal(t, "20:00", entries[1].Start)
	assert.Equal(t, ListingEntry{Name: "Maria"}, entries[2])

	day, ok := ParseListingDate(text)
	require.True(t, ok)
	assert.Equal(t, timemodel.Date{Year: 2025, Month: time.November, Day: 28}, day)

	_, ok = ParseListingDate("sem data")
	assert.False(t, ok)

	assert.Equal(t, "Encontrei estes agendamentos:\nNada foi cancelado ainda. Deseja cancelar?", stripListing(text))
}
