package entity

import (
	"github.com/google/uuid"
	"github.com/lib/pq"
)

type CourtStatus string

const (
	CourtStatusActive      CourtStatus = "active"
	CourtStatusInactive    CourtStatus = "inactive"
	CourtStatusMaintenance CourtStatus = "maintenance"
)

// Court is read-only for the assistant. Modalities keep the configured order.
type Court struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	TenantID   uuid.UUID      `db:"tenant_id" json:"tenant_id"`
	Name       string         `db:"name" json:"name"`
	Status     CourtStatus    `db:"status" json:"status"`
	Modalities pq.StringArray `db:"modalities" json:"modalities"`
}

func (c *Court) Active() bool {
	return c.Status == CourtStatusActive
}

// Client is a registered customer of a tenant.
type Client struct {
	ID       uuid.UUID `db:"id" json:"id"`
	TenantID uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Code     string    `db:"code" json:"code"`
	Name     string    `db:"name" json:"name"`
	Phone    *string   `db:"phone" json:"phone,omitempty"`
	Email    *string   `db:"email" json:"email,omitempty"`
	Active   bool      `db:"active" json:"active"`
}

// Tenant is an isolated venue.
type Tenant struct {
	ID   uuid.UUID `db:"id" json:"id"`
	Code string    `db:"code" json:"code"`
	Name string    `db:"name" json:"name"`
}
