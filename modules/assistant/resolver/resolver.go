// Package resolver maps free-text names to court and client records of a tenant.
package resolver

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"courtbook-api/modules/booking/entity"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const (
	ScoreNone      = 0
	ScoreSubstring = 1
	ScoreContains  = 2
	ScoreExact     = 3
)

type Outcome string

const (
	OutcomeNone      Outcome = "none"
	OutcomeAuto      Outcome = "auto"
	OutcomeAmbiguous Outcome = "ambiguous"
)

var ordinalPattern = regexp.MustCompile(`^(?:quadra )?(?:n |no )?(\d{1,2})$`)

// Normalize lowercases, strips diacritics and punctuation and collapses spaces.
func Normalize(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", " ")
}

// Score compares a query with a candidate name in canonical form:
// 3 exact, 2 one contains the other, 1 a query word appears, 0 otherwise.
func Score(query, candidate string) int {
	q, c := Normalize(query), Normalize(candidate)
	if q == "" || c == "" {
		return ScoreNone
	}
	if q == c {
		return ScoreExact
	}
	if strings.Contains(c, q) || strings.Contains(q, c) {
		return ScoreContains
	}
	for _, token := range strings.Fields(q) {
		if len(token) >= 2 && strings.Contains(c, token) {
			return ScoreSubstring
		}
	}
	return ScoreNone
}

// Candidate is a scored name.
type Candidate struct {
	Index int
	Name  string
	Score int
}

// Rank scores names against query and keeps those with the maximum positive
// score, in input order.
func Rank(query string, names []string) (Outcome, []Candidate) {
	best := ScoreNone
	scored := make([]Candidate, 0, len(names))
	for i, name := range names {
		s := Score(query, name)
		if s == ScoreNone {
			continue
		}
		scored = append(scored, Candidate{Index: i, Name: name, Score: s})
		if s > best {
			best = s
		}
	}

	top := []Candidate{}
	for _, c := range scored {
		if c.Score == best {
			top = append(top, c)
		}
	}

	switch len(top) {
	case 0:
		return OutcomeNone, top
	case 1:
		return OutcomeAuto, top
	default:
		return OutcomeAmbiguous, top
	}
}

// Store is the read surface the resolver needs.
type Store interface {
	ListCourts(ctx context.Context, tenantID uuid.UUID) ([]entity.Court, error)
	SearchClients(ctx context.Context, tenantID uuid.UUID, foldedTerm string, limit int) ([]entity.Client, error)
}

type Options struct {
	InferSingleCourt    bool
	InferSingleModality bool
	ClientSearchLimit   int
}

type Resolver struct {
	store Store
	opts  Options
}

func New(store Store, opts Options) *Resolver {
	if opts.ClientSearchLimit <= 0 {
		opts.ClientSearchLimit = 10
	}
	return &Resolver{store: store, opts: opts}
}

// ClientResolution holds the best-scoring clients for a name.
type ClientResolution struct {
	Outcome Outcome
	Clients []entity.Client
}

func (r *ClientResolution) Client() *entity.Client {
	if r.Outcome != OutcomeAuto || len(r.Clients) != 1 {
		return nil
	}
	return &r.Clients[0]
}

// ResolveClient searches active clients by name. When the whole name has no
// substring hit, the longest word is tried so that partial names still score.
func (r *Resolver) ResolveClient(ctx context.Context, tenantID uuid.UUID, name string) (*ClientResolution, error) {
	folded := Normalize(name)
	if folded == "" {
		return &ClientResolution{Outcome: OutcomeNone}, nil
	}

	clients, err := r.store.SearchClients(ctx, tenantID, folded, r.opts.ClientSearchLimit)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		if word := longestWord(folded); word != "" && word != folded {
			clients, err = r.store.SearchClients(ctx, tenantID, word, r.opts.ClientSearchLimit)
			if err != nil {
				return nil, err
			}
		}
	}

	names := make([]string, len(clients))
	for i := range clients {
		names[i] = clients[i].Name
	}
	outcome, top := Rank(name, names)

	result := &ClientResolution{Outcome: outcome}
	for _, c := range top {
		result.Clients = append(result.Clients, clients[c.Index])
	}
	return result, nil
}

// CourtResolution is the outcome of picking a court. Courts is the full
// active catalogue in ordinal order; Candidates is the subset to offer.
type CourtResolution struct {
	Outcome    Outcome
	Court      *entity.Court
	Via        string
	Candidates []entity.Court
	Courts     []entity.Court
}

// ActiveCourts returns the tenant's active courts ordered by name.
func (r *Resolver) ActiveCourts(ctx context.Context, tenantID uuid.UUID) ([]entity.Court, error) {
	courts, err := r.store.ListCourts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	active := make([]entity.Court, 0, len(courts))
	for _, c := range courts {
		if c.Active() {
			active = append(active, c)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return Normalize(active[i].Name) < Normalize(active[j].Name)
	})
	return active, nil
}

// ResolveCourt picks a court from ref (id, exact name, 1-based ordinal or
// fuzzy name). With no ref it falls back to the only active court, then to the
// only court offering modality, when those inferences are enabled.
func (r *Resolver) ResolveCourt(ctx context.Context, tenantID uuid.UUID, ref, modality string) (*CourtResolution, error) {
	courts, err := r.ActiveCourts(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if len(courts) == 0 {
		return &CourtResolution{Outcome: OutcomeNone}, nil
	}

	ref = strings.TrimSpace(ref)
	if ref == "" {
		return r.inferCourt(courts, modality), nil
	}

	if id, err := uuid.Parse(ref); err == nil {
		for i := range courts {
			if courts[i].ID == id {
				return picked(courts, i, "id"), nil
			}
		}
		return r.unmatched(courts), nil
	}

	folded := Normalize(ref)
	for i := range courts {
		if Normalize(courts[i].Name) == folded {
			return picked(courts, i, "name"), nil
		}
	}

	if m := ordinalPattern.FindStringSubmatch(folded); m != nil {
		n, _ := strconv.Atoi(m[1])
		if n >= 1 && n <= len(courts) {
			return picked(courts, n-1, "ordinal"), nil
		}
	}

	names := make([]string, len(courts))
	for i := range courts {
		names[i] = courts[i].Name
	}
	outcome, top := Rank(ref, names)
	switch outcome {
	case OutcomeAuto:
		return picked(courts, top[0].Index, "fuzzy"), nil
	case OutcomeAmbiguous:
		candidates := make([]entity.Court, 0, len(top))
		for _, c := range top {
			candidates = append(candidates, courts[c.Index])
		}
		return &CourtResolution{Outcome: OutcomeAmbiguous, Candidates: candidates, Courts: courts}, nil
	default:
		return r.unmatched(courts), nil
	}
}

// unmatched handles a reference that names no court. A lone active court is
// never offered as a choice.
func (r *Resolver) unmatched(courts []entity.Court) *CourtResolution {
	if len(courts) == 1 && r.opts.InferSingleCourt {
		return picked(courts, 0, "single_court")
	}
	return &CourtResolution{Outcome: OutcomeNone, Candidates: courts, Courts: courts}
}

func (r *Resolver) inferCourt(courts []entity.Court, modality string) *CourtResolution {
	if len(courts) == 1 && r.opts.InferSingleCourt {
		return picked(courts, 0, "single_court")
	}
	if modality != "" && r.opts.InferSingleModality {
		offering := []int{}
		for i := range courts {
			if _, ok := MatchModality(courts[i].Modalities, modality); ok {
				offering = append(offering, i)
			}
		}
		if len(offering) == 1 {
			return picked(courts, offering[0], "single_modality")
		}
	}
	return &CourtResolution{Outcome: OutcomeAmbiguous, Candidates: courts, Courts: courts}
}

func picked(courts []entity.Court, i int, via string) *CourtResolution {
	court := courts[i]
	return &CourtResolution{Outcome: OutcomeAuto, Court: &court, Via: via, Candidates: courts, Courts: courts}
}

// MatchModality finds requested among a court's modalities, returning the
// configured spelling. Besides an exact match, every word of one side must
// appear as a word of the other ("beach" matches "beach tennis").
func MatchModality(modalities []string, requested string) (string, bool) {
	want := Normalize(requested)
	if want == "" {
		return "", false
	}
	for _, m := range modalities {
		if Normalize(m) == want {
			return m, true
		}
	}
	for _, m := range modalities {
		have := Normalize(m)
		if have != "" && (wordsIn(want, have) || wordsIn(have, want)) {
			return m, true
		}
	}
	return "", false
}

func wordsIn(sub, full string) bool {
	words := map[string]bool{}
	for _, w := range strings.Fields(full) {
		words[w] = true
	}
	for _, w := range strings.Fields(sub) {
		if !words[w] {
			return false
		}
	}
	return true
}

func longestWord(s string) string {
	longest := ""
	for _, w := range strings.Fields(s) {
		if len(w) > len(longest) {
			longest = w
		}
	}
	if len(longest) < 3 {
		return ""
	}
	return longest
}
