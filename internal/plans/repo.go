package plans

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/internal/repo"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// Repository handles plan catalog persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreatePlan(ctx context.Context, plan *models.Plan) error
	UpdatePlan(ctx context.Context, plan *models.Plan) error
	FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ListPlans(ctx context.Context, params ListPlansQuery) ([]models.Plan, error)
	FindActiveSubscriptionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
}

// ListPlansQuery configures plan list queries.
type ListPlansQuery struct {
	Status *enums.PlanStatus
}

type repository struct {
	repo.Base
}

// NewRepository returns a plan repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreatePlan(ctx context.Context, plan *models.Plan) error {
	return r.DB(ctx).Create(plan).Error
}

func (r *repository) UpdatePlan(ctx context.Context, plan *models.Plan) error {
	return r.DB(ctx).Save(plan).Error
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

func (r *repository) ListPlans(ctx context.Context, params ListPlansQuery) ([]models.Plan, error) {
	query := r.DB(ctx).Model(&models.Plan{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	var plans []models.Plan
	if err := query.Order("name ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
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
