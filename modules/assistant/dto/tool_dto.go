package dto

import "time"

// BookingView is a booking as tools report it, with local date and times.
type BookingView struct {
	ID          string    `json:"id"`
	Responsible string    `json:"responsavel"`
	ClientID    string    `json:"cliente_id,omitempty"`
	CourtID     string    `json:"quadra_id"`
	Court       string    `json:"quadra"`
	Modality    string    `json:"modalidade"`
	Status      string    `json:"status"`
	Date        string    `json:"data"`
	StartTime   string    `json:"hora_inicio"`
	EndTime     string    `json:"hora_fim"`
	StartsAt    time.Time `json:"inicio_utc"`
	EndsAt      time.Time `json:"fim_utc"`
}

type ClientView struct {
	ID    string `json:"id"`
	Code  string `json:"codigo"`
	Name  string `json:"nome"`
	Phone string `json:"telefone,omitempty"`
	Email string `json:"email,omitempty"`
}

// CourtView carries the 1-based position used when the user answers by number.
type CourtView struct {
	Ordinal    int      `json:"ordem"`
	ID         string   `json:"id"`
	Name       string   `json:"nome"`
	Status     string   `json:"status"`
	Modalities []string `json:"modalidades"`
}

// FreeSlot is a free interval of a court day in local HH:mm.
type FreeSlot struct {
	StartTime string `json:"hora_inicio"`
	EndTime   string `json:"hora_fim"`
}

type Page struct {
	Number int `json:"pagina"`
	Size   int `json:"limite"`
	Count  int `json:"quantidade"`
}

// DateRange is the local range a listing covered, DD/MM/YYYY.
type DateRange struct {
	From string `json:"de"`
	To   string `json:"ate"`
}
