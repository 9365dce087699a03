package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/internal/repo"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
	"github.com/avilaworks/tenantry-backend/pkg/pagination"
)

// Repository handles subscription and history persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSubscription(ctx context.Context, subscription *models.Subscription) error
	UpdateSubscription(ctx context.Context, subscription *models.Subscription) error
	FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	FindActiveSubscriptionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	CreateHistory(ctx context.Context, entry *models.SubscriptionHistory) error
	ListHistory(ctx context.Context, params ListHistoryQuery) ([]models.SubscriptionHistory, *pagination.Cursor, error)
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)

	ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]models.Subscription, error)
	ListEnded(ctx context.Context, asOf time.Time, limit int) ([]models.Subscription, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// ListHistoryQuery configures subscription history list queries.
type ListHistoryQuery struct {
	SubscriptionID uuid.UUID
	Limit          int
	Cursor         *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.DB(ctx).Create(subscription).Error
}

func (r *repository) UpdateSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.DB(ctx).Save(subscription).Error
}

func (r *repository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.DB(ctx).
		Where("id = ?", id).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) FindActiveSubscriptionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.DB(ctx).
		Where("account_id = ? AND status = ?", accountID, enums.SubscriptionStatusActive).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) CreateHistory(ctx context.Context, entry *models.SubscriptionHistory) error {
	return r.DB(ctx).Create(entry).Error
}

func (r *repository) ListHistory(ctx context.Context, params ListHistoryQuery) ([]models.SubscriptionHistory, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.DB(ctx).
		Model(&models.SubscriptionHistory{}).
		Where("subscription_id = ?", params.SubscriptionID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.SubscriptionHistory
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(limit)).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > limit {
		next := entries[limit]
		entries = entries[:limit]
		return entries, &pagination.Cursor{
			CreatedAt: next.CreatedAt,
			ID:        next.ID,
		}, nil
	}

	return entries, nil, nil
}

func (r *repository) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	var plan models.Plan
	if err := r.DB(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.DB(ctx).
		Where("status = ? AND billing_cycle_end >= ? AND billing_cycle_end <= ?", enums.SubscriptionStatusActive, from, to).
		Order("billing_cycle_end ASC").
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

func (r *repository) ListEnded(ctx context.Context, asOf time.Time, limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	if err := r.DB(ctx).
		Where("status = ? AND billing_cycle_end < ?", enums.SubscriptionStatusActive, asOf).
		Order("billing_cycle_end ASC").
		Limit(limit).
		Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}

// MarkExpired flips an active subscription to expired. The status guard keeps
// the write idempotent when runs overlap; false means nothing changed.
func (r *repository) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.DB(ctx).
		Model(&models.Subscription{}).
		Where("id = ? AND status = ?", id, enums.SubscriptionStatusActive).
		Update("status", enums.SubscriptionStatusExpired)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.DB(ctx).
		Where("id = ?", id).
		First(&account).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}
