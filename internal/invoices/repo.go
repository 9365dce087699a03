package invoices

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/internal/repo"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// Repository exposes the invoice lifecycle queries used by the scheduler.
type Repository interface {
	ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]models.Invoice, error)
	ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]models.Invoice, error)
	MarkOverdue(ctx context.Context, id uuid.UUID) (bool, error)
	FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an invoice repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

// ListPastDue includes already-overdue invoices: reminders go out on every
// run until the invoice is paid.
func (r *repository) ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]models.Invoice, error) {
	statuses := []enums.InvoiceStatus{
		enums.InvoiceStatusDraft,
		enums.InvoiceStatusSent,
		enums.InvoiceStatusOverdue,
	}
	var rows []models.Invoice
	if err := r.DB(ctx).
		Where("status IN (?) AND due_date < ?", statuses, asOf).
		Order("due_date ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]models.Invoice, error) {
	statuses := []enums.InvoiceStatus{
		enums.InvoiceStatusDraft,
		enums.InvoiceStatusSent,
	}
	var rows []models.Invoice
	if err := r.DB(ctx).
		Where("status IN (?) AND due_date >= ? AND due_date <= ?", statuses, from, to).
		Order("due_date ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkOverdue moves an unpaid invoice to overdue. Invoices already overdue or
// paid are left alone; false means no transition happened.
func (r *repository) MarkOverdue(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Invoice{}).
		Where("id = ? AND status IN (?)", id, []enums.InvoiceStatus{
			enums.InvoiceStatusDraft,
			enums.InvoiceStatusSent,
		}).
		Update("status", enums.InvoiceStatusOverdue)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.DB(ctx).
		Where("id = ?", id).
		First(&tenant).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &tenant, nil
}
