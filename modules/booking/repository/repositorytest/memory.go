// Package repositorytest provides an in-memory booking repository for tests.
package repositorytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"courtbook-api/modules/booking/entity"
	"courtbook-api/modules/booking/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Memory implements repository.BookingRepositoryInterface, including the
// storage overlap constraint. Err, when set, is returned by every call.
type Memory struct {
	mu           sync.Mutex
	Tenants      []entity.Tenant
	Courts       []entity.Court
	Clients      []entity.Client
	Bookings     []entity.Booking
	Participants []entity.Participant
	Err          error

	// HideFromListing keeps bookings out of ListBookings while the overlap
	// constraint still sees them, simulating a concurrent insert.
	HideFromListing map[uuid.UUID]bool
}

var _ repository.BookingRepositoryInterface = (*Memory)(nil)

func New() *Memory {
	return &Memory{HideFromListing: map[uuid.UUID]bool{}}
}

func fold(s string) string {
	return strings.ReplaceAll(slug.Make(s), "-", " ")
}

func (m *Memory) AddTenant(code string) entity.Tenant {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := entity.Tenant{ID: uuid.New(), Code: code, Name: code}
	m.Tenants = append(m.Tenants, t)
	return t
}

func (m *Memory) AddCourt(tenantID uuid.UUID, name string, modalities ...string) entity.Court {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := entity.Court{ID: uuid.New(), TenantID: tenantID, Name: name, Status: entity.CourtStatusActive, Modalities: modalities}
	m.Courts = append(m.Courts, c)
	return c
}

func (m *Memory) AddClient(tenantID uuid.UUID, code, name, phone string) entity.Client {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := entity.Client{ID: uuid.New(), TenantID: tenantID, Code: code, Name: name, Active: true}
	if phone != "" {
		c.Phone = &phone
	}
	m.Clients = append(m.Clients, c)
	return c
}

// AddBooking stores a booking as-is, bypassing the overlap constraint.
func (m *Memory) AddBooking(b entity.Booking) entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.Status == "" {
		b.Status = entity.BookingStatusScheduled
	}
	b.CourtName = m.courtName(b.CourtID)
	m.Bookings = append(m.Bookings, b)
	return b
}

// Booking returns the stored booking with id.
func (m *Memory) Booking(id uuid.UUID) *entity.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Bookings {
		if m.Bookings[i].ID == id {
			b := m.Bookings[i]
			return &b
		}
	}
	return nil
}

func (m *Memory) courtName(id uuid.UUID) string {
	for _, c := range m.Courts {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}

func (m *Memory) clientName(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	for _, c := range m.Clients {
		if c.ID == *id {
			name := c.Name
			return &name
		}
	}
	return nil
}

func (m *Memory) GetTenantByCode(_ context.Context, code string) (*entity.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.Tenants {
		if t.Code == code {
			tenant := t
			return &tenant, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListCourts(_ context.Context, tenantID uuid.UUID) ([]entity.Court, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []entity.Court
	for _, c := range m.Courts {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SearchClients(_ context.Context, tenantID uuid.UUID, foldedTerm string, limit int) ([]entity.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []entity.Client
	for _, c := range m.Clients {
		if c.TenantID == tenantID && c.Active && strings.Contains(fold(c.Name), foldedTerm) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) GetClientByID(_ context.Context, tenantID uuid.UUID, id uuid.UUID) (*entity.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, c := range m.Clients {
		if c.TenantID == tenantID && c.ID == id {
			client := c
			return &client, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListBookings(ctx context.Context, tenantID uuid.UUID, filter entity.BookingFilter) ([]entity.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []entity.Booking
	for _, b := range m.Bookings {
		if b.TenantID != tenantID || m.HideFromListing[b.ID] {
			continue
		}
		if filter.To != nil && !b.StartsAt.Before(*filter.To) {
			continue
		}
		if filter.From != nil && !b.EndsAt.After(*filter.From) {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, b.Status) {
			continue
		}
		if filter.CourtID != nil && b.CourtID != *filter.CourtID {
			continue
		}
		b.ClientName = m.clientName(b.ClientID)
		if filter.ClientName != "" && !strings.Contains(fold(b.Responsible()), filter.ClientName) {
			continue
		}
		out = append(out, b)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].CourtName < out[j].CourtName
		}
		return out[i].StartsAt.Before(out[j].StartsAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *Memory) GetBookingByID(_ context.Context, tenantID uuid.UUID, id uuid.UUID) (*entity.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, b := range m.Bookings {
		if b.TenantID == tenantID && b.ID == id {
			booking := b
			booking.ClientName = m.clientName(b.ClientID)
			return &booking, nil
		}
	}
	return nil, nil
}

func (m *Memory) CreateBooking(_ context.Context, booking *entity.Booking) (*entity.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.overlaps(booking.CourtID, booking.StartsAt, booking.EndsAt, uuid.Nil) {
		return nil, repository.ErrBookingOverlap
	}

	created := *booking
	created.ID = uuid.New()
	created.CourtName = m.courtName(created.CourtID)
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	m.Bookings = append(m.Bookings, created)

	created.ClientName = m.clientName(created.ClientID)
	return &created, nil
}

func (m *Memory) AddParticipant(_ context.Context, participant *entity.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	participant.ID = uuid.New()
	m.Participants = append(m.Participants, *participant)
	return nil
}

func (m *Memory) UpdateBooking(_ context.Context, tenantID uuid.UUID, id uuid.UUID, patch entity.BookingPatch) (*entity.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for i := range m.Bookings {
		b := m.Bookings[i]
		if b.TenantID != tenantID || b.ID != id {
			continue
		}
		if patch.StartsAt != nil {
			b.StartsAt = *patch.StartsAt
		}
		if patch.EndsAt != nil {
			b.EndsAt = *patch.EndsAt
		}
		if patch.Status != nil {
			b.Status = *patch.Status
		}
		if patch.Modality != nil {
			b.Modality = *patch.Modality
		}
		if b.Status != entity.BookingStatusCanceled && m.overlaps(b.CourtID, b.StartsAt, b.EndsAt, b.ID) {
			return nil, repository.ErrBookingOverlap
		}
		b.UpdatedAt = time.Now().UTC()
		m.Bookings[i] = b
		b.ClientName = m.clientName(b.ClientID)
		return &b, nil
	}
	return nil, nil
}

func (m *Memory) overlaps(courtID uuid.UUID, start, end time.Time, exclude uuid.UUID) bool {
	for _, b := range m.Bookings {
		if b.CourtID != courtID || b.ID == exclude || b.Status == entity.BookingStatusCanceled {
			continue
		}
		if start.Before(b.EndsAt) && b.StartsAt.Before(end) {
			return true
		}
	}
	return false
}

func hasStatus(statuses []entity.BookingStatus, s entity.BookingStatus) bool {
	for _, st := range statuses {
		if st == s {
			return true
		}
	}
	return false
}
