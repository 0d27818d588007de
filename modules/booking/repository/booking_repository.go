package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"courtbook-api/core/database"
	"courtbook-api/core/logger"
	"courtbook-api/modules/booking/entity"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// ErrBookingOverlap is returned when the storage exclusion constraint rejects
// an insert or update because another active booking overlaps on the court.
var ErrBookingOverlap = errors.New("booking overlaps an existing booking")

// exclusion_violation, raised by the bookings_no_overlap constraint.
const pqExclusionViolation = "23P01"

// Characters folded by foldSQL; must stay aligned with the resolver's canonical form.
const (
	accentedChars = "áàâãäéèêëíìîïóòôõöúùûüçñ"
	plainChars    = "aaaaaeeeeiiiiooooouuuucn"
)

// BookingRepositoryInterface defines the repository contract. Every method is
// scoped by tenant id.
type BookingRepositoryInterface interface {
	GetTenantByCode(ctx context.Context, code string) (*entity.Tenant, error)
	ListCourts(ctx context.Context, tenantID uuid.UUID) ([]entity.Court, error)
	SearchClients(ctx context.Context, tenantID uuid.UUID, foldedTerm string, limit int) ([]entity.Client, error)
	GetClientByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*entity.Client, error)
	ListBookings(ctx context.Context, tenantID uuid.UUID, filter entity.BookingFilter) ([]entity.Booking, error)
	GetBookingByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*entity.Booking, error)
	CreateBooking(ctx context.Context, booking *entity.Booking) (*entity.Booking, error)
	AddParticipant(ctx context.Context, participant *entity.Participant) error
	UpdateBooking(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, patch entity.BookingPatch) (*entity.Booking, error)
}

// BookingRepository handles court, client and booking storage
type BookingRepository struct {
	DB database.IDatabase
}

func NewBookingRepository(db database.IDatabase) *BookingRepository {
	return &BookingRepository{DB: db}
}

const bookingColumns = `
	b.id, b.tenant_id, b.court_id, c.name AS court_name, b.starts_at, b.ends_at, b.status,
	b.modality, b.client_id, cl.name AS client_name, b.responsible_label, b.created_at, b.updated_at`

const bookingJoins = `
	JOIN courts c ON c.id = b.court_id AND c.tenant_id = b.tenant_id
	LEFT JOIN clients cl ON cl.id = b.client_id AND cl.tenant_id = b.tenant_id`

func foldSQL(column string) string {
	return fmt.Sprintf("translate(lower(%s), '%s', '%s')", column, accentedChars, plainChars)
}

// ===================== Tenants =====================

func (r *BookingRepository) GetTenantByCode(ctx context.Context, code string) (*entity.Tenant, error) {
	query := `SELECT id, code, name FROM tenants WHERE code = $1`

	var tenant entity.Tenant
	err := r.DB.GetContext(ctx, &tenant, query, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("BookingRepository:GetTenantByCode", "error", err)
		return nil, err
	}
	return &tenant, nil
}

// ===================== Courts & clients =====================

func (r *BookingRepository) ListCourts(ctx context.Context, tenantID uuid.UUID) ([]entity.Court, error) {
	query := `
		SELECT id, tenant_id, name, status, COALESCE(modalities, '{}') AS modalities
		FROM courts
		WHERE tenant_id = $1
		ORDER BY name ASC
	`

	var courts []entity.Court
	if err := r.DB.SelectContext(ctx, &courts, query, tenantID); err != nil {
		logger.Error("BookingRepository:ListCourts", "error", err, "tenant_id", tenantID)
		return nil, err
	}
	return courts, nil
}

func (r *BookingRepository) SearchClients(ctx context.Context, tenantID uuid.UUID, foldedTerm string, limit int) ([]entity.Client, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, tenant_id, code, name, phone, email, active
		FROM clients
		WHERE tenant_id = $1 AND active = true AND ` + foldSQL("name") + ` LIKE $2
		ORDER BY name ASC
		LIMIT $3
	`

	var clients []entity.Client
	if err := r.DB.SelectContext(ctx, &clients, query, tenantID, "%"+foldedTerm+"%", limit); err != nil {
		logger.Error("BookingRepository:SearchClients", "error", err, "tenant_id", tenantID)
		return nil, err
	}
	return clients, nil
}

func (r *BookingRepository) GetClientByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*entity.Client, error) {
	query := `
		SELECT id, tenant_id, code, name, phone, email, active
		FROM clients WHERE tenant_id = $1 AND id = $2
	`

	var client entity.Client
	if err := r.DB.GetContext(ctx, &client, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("BookingRepository:GetClientByID", "error", err)
		return nil, err
	}
	return &client, nil
}

// ===================== Bookings =====================

// ListBookings returns bookings whose [starts_at, ends_at) intersects
// [filter.From, filter.To), ordered by start.
func (r *BookingRepository) ListBookings(ctx context.Context, tenantID uuid.UUID, filter entity.BookingFilter) ([]entity.Booking, error) {
	conds := []string{"b.tenant_id = $1"}
	args := []any{tenantID}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.To != nil {
		conds = append(conds, "b.starts_at < "+next(*filter.To))
	}
	if filter.From != nil {
		conds = append(conds, "b.ends_at > "+next(*filter.From))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		conds = append(conds, "b.status = ANY("+next(pq.Array(statuses))+")")
	}
	if filter.CourtID != nil {
		conds = append(conds, "b.court_id = "+next(*filter.CourtID))
	}
	if filter.ClientName != "" {
		conds = append(conds, foldSQL("COALESCE(cl.name, b.responsible_label)")+" LIKE "+next("%"+filter.ClientName+"%"))
	}

	query := "SELECT " + bookingColumns + " FROM bookings b " + bookingJoins +
		" WHERE " + strings.Join(conds, " AND ") +
		" ORDER BY b.starts_at ASC, c.name ASC"

	if filter.Limit > 0 {
		query += " LIMIT " + next(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + next(filter.Offset)
	}

	var bookings []entity.Booking
	if err := r.DB.SelectContext(ctx, &bookings, query, args...); err != nil {
		logger.Error("BookingRepository:ListBookings", "error", err, "tenant_id", tenantID)
		return nil, err
	}
	return bookings, nil
}

func (r *BookingRepository) GetBookingByID(ctx context.Context, tenantID uuid.UUID, id uuid.UUID) (*entity.Booking, error) {
	query := "SELECT " + bookingColumns + " FROM bookings b " + bookingJoins + " WHERE b.tenant_id = $1 AND b.id = $2"

	var booking entity.Booking
	if err := r.DB.GetContext(ctx, &booking, query, tenantID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Error("BookingRepository:GetBookingByID", "error", err, "booking_id", id)
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) CreateBooking(ctx context.Context, booking *entity.Booking) (*entity.Booking, error) {
	query := `
		WITH inserted AS (
			INSERT INTO bookings (tenant_id, court_id, starts_at, ends_at, status, modality, client_id, responsible_label)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT ` + bookingColumns + ` FROM inserted b ` + bookingJoins

	var created entity.Booking
	err := r.DB.GetContext(ctx, &created, query,
		booking.TenantID, booking.CourtID, booking.StartsAt, booking.EndsAt,
		booking.Status, booking.Modality, booking.ClientID, booking.ResponsibleLabel)
	if err != nil {
		if isExclusionViolation(err) {
			logger.Warn("BookingRepository:CreateBooking:Overlap", "court_id", booking.CourtID)
			return nil, ErrBookingOverlap
		}
		logger.Error("BookingRepository:CreateBooking", "error", err)
		return nil, err
	}
	return &created, nil
}

func (r *BookingRepository) AddParticipant(ctx context.Context, participant *entity.Participant) error {
	query := `
		INSERT INTO booking_participants (tenant_id, booking_id, client_id, name, is_responsible)
		VALUES (:tenant_id, :booking_id, :client_id, :name, :is_responsible)
		RETURNING id
	`
	rows, err := r.DB.NamedQueryContext(ctx, query, participant)
	if err != nil {
		logger.Error("BookingRepository:AddParticipant", "error", err)
		return err
	}
	defer rows.Close()

	if rows.Next() {
		return rows.Scan(&participant.ID)
	}
	return rows.Err()
}

// UpdateBooking applies the non-nil fields of patch. It returns (nil, nil) when
// no booking with that id exists for the tenant.
func (r *BookingRepository) UpdateBooking(ctx context.Context, tenantID uuid.UUID, id uuid.UUID, patch entity.BookingPatch) (*entity.Booking, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("empty booking patch")
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{tenantID, id}
	set := func(column string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.StartsAt != nil {
		set("starts_at", *patch.StartsAt)
	}
	if patch.EndsAt != nil {
		set("ends_at", *patch.EndsAt)
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.Modality != nil {
		set("modality", *patch.Modality)
	}

	query := `
		WITH updated AS (
			UPDATE bookings SET ` + strings.Join(sets, ", ") + `
			WHERE tenant_id = $1 AND id = $2
			RETURNING *
		)
		SELECT ` + bookingColumns + ` FROM updated b ` + bookingJoins

	var updated entity.Booking
	err := r.DB.GetContext(ctx, &updated, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if isExclusionViolation(err) {
			return nil, ErrBookingOverlap
		}
		logger.Error("BookingRepository:UpdateBooking", "error", err, "booking_id", id)
		return nil, err
	}
	return &updated, nil
}

func isExclusionViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqExclusionViolation
	}
	return false
}
