package leases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/internal/repo"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// Repository exposes the lease lifecycle queries used by the scheduler.
type Repository interface {
	ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]models.Lease, error)
	ListEnded(ctx context.Context, asOf time.Time, limit int) ([]models.Lease, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a lease repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]models.Lease, error) {
	var rows []models.Lease
	if err := r.DB(ctx).
		Where("status = ? AND end_date >= ? AND end_date <= ?", enums.LeaseStatusActive, from, to).
		Order("end_date ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) ListEnded(ctx context.Context, asOf time.Time, limit int) ([]models.Lease, error) {
	var rows []models.Lease
	if err := r.DB(ctx).
		Where("status = ? AND end_date < ?", enums.LeaseStatusActive, asOf).
		Order("end_date ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkExpired flips an active lease to expired. The status guard keeps the
// write idempotent when runs overlap; false means another run got there first.
func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Lease{}).
		Where("id = ? AND status = ?", id, enums.LeaseStatusActive).
		Update("status", enums.LeaseStatusExpired)
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
