package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// Lease links a tenant to a unit for a date range. The scheduler owns only
// the active -> expired transition; every other mutation happens upstream.
type Lease struct {
	ID        uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID         `gorm:"column:tenant_id;type:uuid;not null;index"`
	UnitID    uuid.UUID         `gorm:"column:unit_id;type:uuid;not null"`
	StartDate time.Time         `gorm:"column:start_date;not null"`
	EndDate   time.Time         `gorm:"column:end_date;not null;index"`
	Status    enums.LeaseStatus `gorm:"column:status;type:lease_status;not null;default:'active'"`
	CreatedAt time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
