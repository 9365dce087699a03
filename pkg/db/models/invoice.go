package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// Invoice bills a tenant for a due date. Payment capture happens elsewhere;
// the scheduler only flips unpaid invoices past their due date to overdue.
type Invoice struct {
	ID        uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID  uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null;index"`
	Amount    decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	DueDate   time.Time           `gorm:"column:due_date;not null;index"`
	Status    enums.InvoiceStatus `gorm:"column:status;type:invoice_status;not null;default:'draft'"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
