package plans

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avilaworks/tenantry-backend/pkg/db"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
)

// Service defines plan catalog operations.
type Service interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error)
	ListPlans(ctx context.Context, params ListParams) ([]models.Plan, error)
	CreatePlan(ctx context.Context, params CreatePlanParams) (*models.Plan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, params UpdatePlanParams) (*models.Plan, error)
	ActiveSubscriptionFor(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error)
	QuotaFor(ctx context.Context, accountID uuid.UUID) (*Quota, error)
}

type service struct {
	repo Repository
}

// ListParams filters plan listings.
type ListParams struct {
	Status *enums.PlanStatus
}

// CreatePlanParams describes a new catalog entry.
type CreatePlanParams struct {
	Name                string
	BuildingPrice       decimal.Decimal
	ManagerPrice        decimal.Decimal
	MaxBuildings        int
	MaxUnitsPerBuilding int
	MaxManagers         int
	Features            []string
}

// UpdatePlanParams carries a partial plan update. Nil fields are untouched.
type UpdatePlanParams struct {
	Name                *string
	Status              *enums.PlanStatus
	BuildingPrice       *decimal.Decimal
	ManagerPrice        *decimal.Decimal
	MaxBuildings        *int
	MaxUnitsPerBuilding *int
	MaxManagers         *int
	Features            *[]string
}

// Quota is the read-only quota descriptor of an account's active plan,
// consumed by the external quota enforcer.
type Quota struct {
	PlanID              uuid.UUID `json:"plan_id"`
	PlanName            string    `json:"plan_name"`
	MaxBuildings        int       `json:"max_buildings"`
	MaxUnitsPerBuilding int       `json:"max_units_per_building"`
	MaxManagers         int       `json:"max_managers"`
	Features            []string  `json:"features"`
}

// NewService wires plan catalog dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "plans repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetPlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}
	plan, err := s.repo.FindPlanByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	return plan, nil
}

func (s *service) ListPlans(ctx context.Context, params ListParams) ([]models.Plan, error) {
	plans, err := s.repo.ListPlans(ctx, ListPlansQuery{Status: params.Status})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list plans")
	}
	return plans, nil
}

func (s *service) CreatePlan(ctx context.Context, params CreatePlanParams) (*models.Plan, error) {
	if err := validatePlanFields(params.Name, params.BuildingPrice, params.ManagerPrice,
		params.MaxBuildings, params.MaxUnitsPerBuilding, params.MaxManagers); err != nil {
		return nil, err
	}

	plan := &models.Plan{
		Name:                strings.TrimSpace(params.Name),
		Status:              enums.PlanStatusActive,
		BuildingPrice:       params.BuildingPrice,
		ManagerPrice:        params.ManagerPrice,
		MaxBuildings:        params.MaxBuildings,
		MaxUnitsPerBuilding: params.MaxUnitsPerBuilding,
		MaxManagers:         params.MaxManagers,
		Features:            params.Features,
	}
	if err := s.repo.CreatePlan(ctx, plan); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create plan")
	}
	return plan, nil
}

func (s *service) UpdatePlan(ctx context.Context, id uuid.UUID, params UpdatePlanParams) (*models.Plan, error) {
	plan, err := s.GetPlan(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil {
		plan.Name = strings.TrimSpace(*params.Name)
	}
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid plan status")
		}
		plan.Status = *params.Status
	}
	if params.BuildingPrice != nil {
		plan.BuildingPrice = *params.BuildingPrice
	}
	if params.ManagerPrice != nil {
		plan.ManagerPrice = *params.ManagerPrice
	}
	if params.MaxBuildings != nil {
		plan.MaxBuildings = *params.MaxBuildings
	}
	if params.MaxUnitsPerBuilding != nil {
		plan.MaxUnitsPerBuilding = *params.MaxUnitsPerBuilding
	}
	if params.MaxManagers != nil {
		plan.MaxManagers = *params.MaxManagers
	}
	if params.Features != nil {
		plan.Features = *params.Features
	}

	if err := validatePlanFields(plan.Name, plan.BuildingPrice, plan.ManagerPrice,
		plan.MaxBuildings, plan.MaxUnitsPerBuilding, plan.MaxManagers); err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePlan(ctx, plan); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "plan name already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update plan")
	}
	return plan, nil
}

func (s *service) ActiveSubscriptionFor(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	if accountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	sub, err := s.repo.FindActiveSubscriptionByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription for account")
	}
	return sub, nil
}

func (s *service) QuotaFor(ctx context.Context, accountID uuid.UUID) (*Quota, error) {
	sub, err := s.ActiveSubscriptionFor(ctx, accountID)
	if err != nil {
		return nil, err
	}
	plan, err := s.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	return &Quota{
		PlanID:              plan.ID,
		PlanName:            plan.Name,
		MaxBuildings:        plan.MaxBuildings,
		MaxUnitsPerBuilding: plan.MaxUnitsPerBuilding,
		MaxManagers:         plan.MaxManagers,
		Features:            plan.Features,
	}, nil
}

func validatePlanFields(name string, buildingPrice, managerPrice decimal.Decimal, maxBuildings, maxUnits, maxManagers int) error {
	if strings.TrimSpace(name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan name required")
	}
	if buildingPrice.IsNegative() || managerPrice.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan prices must be non-negative")
	}
	if maxBuildings < 0 || maxUnits < 0 || maxManagers < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "plan limits must be non-negative")
	}
	return nil
}
