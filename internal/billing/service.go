package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/pkg/db"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
	"github.com/avilaworks/tenantry-backend/pkg/pagination"
)

// Transactor runs a function inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups dependencies for the billing service.
type ServiceParams struct {
	Repo Repository
	Tx   Transactor
	Now  func() time.Time
}

// Service orchestrates subscription purchases and mid-cycle upgrades.
type Service struct {
	repo Repository
	tx   Transactor
	now  func() time.Time
}

// NewService builds a billing service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "billing repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "billing transactor required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{repo: params.Repo, tx: params.Tx, now: now}, nil
}

// CreateSubscriptionParams describes a plan purchase.
type CreateSubscriptionParams struct {
	AccountID     uuid.UUID
	PlanID        uuid.UUID
	BuildingCount int
	ManagerCount  int
	// CycleStart defaults to the current time when zero.
	CycleStart time.Time
}

// UpgradeParams describes a mid-cycle plan change.
type UpgradeParams struct {
	SubscriptionID uuid.UUID
	NewPlanID      uuid.UUID
	BuildingCount  int
	ManagerCount   int
}

// UpgradeResult pairs the updated subscription with its cost breakdown.
type UpgradeResult struct {
	Subscription *models.Subscription `json:"subscription"`
	Breakdown    ProrationResult      `json:"breakdown"`
}

// HistoryParams configures history pagination.
type HistoryParams struct {
	SubscriptionID uuid.UUID
	Limit          int
	Cursor         string
}

// HistoryResult wraps history rows and the cursor for the next page.
type HistoryResult struct {
	Items  []models.SubscriptionHistory `json:"items"`
	Cursor string                       `json:"cursor"`
}

// CreateSubscription purchases a plan for an account, opening a one-year
// billing cycle. The cycle end follows AddDate normalization, so a cycle
// starting 2024-02-29 ends 2025-03-01.
func (s *Service) CreateSubscription(ctx context.Context, params CreateSubscriptionParams) (*models.Subscription, error) {
	if params.AccountID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account id required")
	}
	if params.PlanID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}
	if params.BuildingCount < 0 || params.ManagerCount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counts must be non-negative")
	}

	plan, err := s.activePlan(ctx, params.PlanID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.FindActiveSubscriptionByAccount(ctx, params.AccountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find active subscription")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "account already has an active subscription")
	}

	cycleStart := params.CycleStart
	if cycleStart.IsZero() {
		cycleStart = s.now()
	}
	cycleEnd := cycleStart.AddDate(1, 0, 0)

	sub := &models.Subscription{
		AccountID:         params.AccountID,
		PlanID:            plan.ID,
		BuildingCount:     params.BuildingCount,
		ManagerCount:      params.ManagerCount,
		TotalAmount:       Amount(params.BuildingCount, params.ManagerCount, plan).Round(2),
		BillingCycleStart: cycleStart,
		BillingCycleEnd:   cycleEnd,
		NextBillingDate:   cycleEnd,
		Status:            enums.SubscriptionStatusActive,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.CreateSubscription(ctx, sub); err != nil {
			return err
		}
		return txRepo.CreateHistory(ctx, &models.SubscriptionHistory{
			SubscriptionID:   sub.ID,
			Action:           enums.SubscriptionActionCreated,
			NewPlanID:        plan.ID,
			NewBuildingCount: params.BuildingCount,
			NewManagerCount:  params.ManagerCount,
			Note:             "subscription created",
		})
	})
	if err != nil {
		if db.IsUniqueViolation(err, "ux_subscriptions_account_active") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "account already has an active subscription")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create subscription")
	}
	return sub, nil
}

// CalculateUpgrade previews the cost of switching an active subscription to
// a new plan without writing anything.
func (s *Service) CalculateUpgrade(ctx context.Context, params UpgradeParams) (*ProrationResult, error) {
	_, _, result, err := s.resolveUpgrade(ctx, params)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpgradeSubscription applies a mid-cycle plan change: the subscription row is
// overwritten with the new plan, counts and total, the cycle bounds stay put,
// and a history row records the transition. Not idempotent.
func (s *Service) UpgradeSubscription(ctx context.Context, params UpgradeParams) (*UpgradeResult, error) {
	sub, plan, result, err := s.resolveUpgrade(ctx, params)
	if err != nil {
		return nil, err
	}

	oldPlanID := sub.PlanID
	oldBuildings := sub.BuildingCount
	oldManagers := sub.ManagerCount
	prorated := result.ProratedAmount

	sub.PlanID = plan.ID
	sub.BuildingCount = params.BuildingCount
	sub.ManagerCount = params.ManagerCount
	sub.TotalAmount = result.NewTotal

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.UpdateSubscription(ctx, sub); err != nil {
			return err
		}
		return txRepo.CreateHistory(ctx, &models.SubscriptionHistory{
			SubscriptionID:   sub.ID,
			Action:           enums.SubscriptionActionUpgraded,
			OldPlanID:        &oldPlanID,
			NewPlanID:        plan.ID,
			OldBuildingCount: &oldBuildings,
			NewBuildingCount: params.BuildingCount,
			OldManagerCount:  &oldManagers,
			NewManagerCount:  params.ManagerCount,
			ProratedAmount:   &prorated,
			Note:             "plan upgraded",
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upgrade subscription")
	}

	return &UpgradeResult{Subscription: sub, Breakdown: *result}, nil
}

// GetSubscription loads a subscription by id.
func (s *Service) GetSubscription(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	sub, err := s.repo.FindSubscriptionByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	return sub, nil
}

// ListHistory returns the subscription's audit trail, newest first.
func (s *Service) ListHistory(ctx context.Context, params HistoryParams) (*HistoryResult, error) {
	if params.SubscriptionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}

	query := ListHistoryQuery{
		SubscriptionID: params.SubscriptionID,
		Limit:          params.Limit,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.ListHistory(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list history")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &HistoryResult{Items: rows, Cursor: cursor}, nil
}

func (s *Service) resolveUpgrade(ctx context.Context, params UpgradeParams) (*models.Subscription, *models.Plan, *ProrationResult, error) {
	if params.SubscriptionID == uuid.Nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "subscription id required")
	}
	if params.NewPlanID == uuid.Nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "plan id required")
	}
	if params.BuildingCount < 0 || params.ManagerCount < 0 {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "counts must be non-negative")
	}

	sub, err := s.repo.FindSubscriptionByID(ctx, params.SubscriptionID)
	if err != nil {
		return nil, nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find subscription")
	}
	if sub == nil {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}
	if sub.Status != enums.SubscriptionStatusActive {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not active")
	}

	plan, err := s.activePlan(ctx, params.NewPlanID)
	if err != nil {
		return nil, nil, nil, err
	}

	now := s.now()
	totalDays := ceilDays(sub.BillingCycleStart, sub.BillingCycleEnd)
	daysLeft := ceilDays(now, sub.BillingCycleEnd)
	if daysLeft <= 0 {
		return nil, nil, nil, pkgerrors.New(pkgerrors.CodeStateConflict, "billing cycle has ended")
	}

	newTotal := Amount(params.BuildingCount, params.ManagerCount, plan)
	result := prorate(sub.TotalAmount, newTotal, totalDays, daysLeft)
	return sub, plan, &result, nil
}

func (s *Service) activePlan(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, err := s.repo.FindPlanByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found")
	}
	if plan.Status != enums.PlanStatusActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "plan is not active")
	}
	return plan, nil
}
