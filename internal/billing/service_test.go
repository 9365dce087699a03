package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
	"github.com/avilaworks/tenantry-backend/pkg/pagination"
)

type stubRepo struct {
	plans   map[uuid.UUID]*models.Plan
	subs    map[uuid.UUID]*models.Subscription
	history []models.SubscriptionHistory

	createSubErr error
	updateCalls  int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		plans: map[uuid.UUID]*models.Plan{},
		subs:  map[uuid.UUID]*models.Subscription{},
	}
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if s.createSubErr != nil {
		return s.createSubErr
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	copied := *sub
	s.subs[sub.ID] = &copied
	return nil
}

func (s *stubRepo) UpdateSubscription(ctx context.Context, sub *models.Subscription) error {
	s.updateCalls++
	copied := *sub
	s.subs[sub.ID] = &copied
	return nil
}

func (s *stubRepo) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error) {
	sub, ok := s.subs[id]
	if !ok {
		return nil, nil
	}
	copied := *sub
	return &copied, nil
}

func (s *stubRepo) FindActiveSubscriptionByAccount(ctx context.Context, accountID uuid.UUID) (*models.Subscription, error) {
	for _, sub := range s.subs {
		if sub.AccountID == accountID && sub.Status == enums.SubscriptionStatusActive {
			copied := *sub
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) CreateHistory(ctx context.Context, entry *models.SubscriptionHistory) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	s.history = append(s.history, *entry)
	return nil
}

func (s *stubRepo) ListHistory(ctx context.Context, params ListHistoryQuery) ([]models.SubscriptionHistory, *pagination.Cursor, error) {
	var out []models.SubscriptionHistory
	for _, h := range s.history {
		if h.SubscriptionID == params.SubscriptionID {
			out = append(out, h)
		}
	}
	return out, nil, nil
}

func (s *stubRepo) FindPlanByID(ctx context.Context, id uuid.UUID) (*models.Plan, error) {
	plan, ok := s.plans[id]
	if !ok {
		return nil, nil
	}
	copied := *plan
	return &copied, nil
}

func (s *stubRepo) ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]models.Subscription, error) {
	return nil, nil
}

func (s *stubRepo) ListEnded(ctx context.Context, asOf time.Time, limit int) ([]models.Subscription, error) {
	return nil, nil
}

func (s *stubRepo) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	return false, nil
}

func (s *stubRepo) FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return nil, nil
}

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func addPlan(repo *stubRepo, name string, buildingPrice int64, status enums.PlanStatus) *models.Plan {
	plan := &models.Plan{
		ID:            uuid.New(),
		Name:          name,
		Status:        status,
		BuildingPrice: decimal.NewFromInt(buildingPrice),
		ManagerPrice:  decimal.Zero,
	}
	repo.plans[plan.ID] = plan
	return plan
}

func newService(t *testing.T, repo *stubRepo, now time.Time) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		Repo: repo,
		Tx:   stubTx{},
		Now:  func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != code {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestCreateSubscriptionLeapDayCycle(t *testing.T) {
	repo := newStubRepo()
	plan := addPlan(repo, "Pro", 500, enums.PlanStatusActive)
	svc := newService(t, repo, date(2024, 2, 29))

	sub, err := svc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		AccountID:     uuid.New(),
		PlanID:        plan.ID,
		BuildingCount: 2,
		CycleStart:    date(2024, 2, 29),
	})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	// AddDate normalization: Feb 29 + 1 year lands on Mar 1.
	if !sub.BillingCycleEnd.Equal(date(2025, 3, 1)) {
		t.Fatalf("cycle end = %s, want 2025-03-01", sub.BillingCycleEnd)
	}
	if !sub.NextBillingDate.Equal(sub.BillingCycleEnd) {
		t.Fatalf("next billing date should equal cycle end")
	}
	if got := sub.TotalAmount.StringFixed(2); got != "1000.00" {
		t.Fatalf("total amount = %s, want 1000.00", got)
	}

	if len(repo.history) != 1 {
		t.Fatalf("expected one history row, got %d", len(repo.history))
	}
	entry := repo.history[0]
	if entry.Action != enums.SubscriptionActionCreated || entry.SubscriptionID != sub.ID {
		t.Fatalf("unexpected history entry: %+v", entry)
	}
	if entry.OldPlanID != nil {
		t.Fatalf("created entry should carry no old plan")
	}
}

func TestCreateSubscriptionPlanErrors(t *testing.T) {
	repo := newStubRepo()
	inactive := addPlan(repo, "Legacy", 100, enums.PlanStatusInactive)
	svc := newService(t, repo, date(2025, 1, 1))

	_, err := svc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		AccountID: uuid.New(),
		PlanID:    uuid.New(),
	})
	assertCode(t, err, pkgerrors.CodeNotFound)

	_, err = svc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		AccountID: uuid.New(),
		PlanID:    inactive.ID,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateSubscriptionDuplicateActive(t *testing.T) {
	repo := newStubRepo()
	plan := addPlan(repo, "Pro", 500, enums.PlanStatusActive)
	svc := newService(t, repo, date(2025, 1, 1))
	accountID := uuid.New()

	first, err := svc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		AccountID:     accountID,
		PlanID:        plan.ID,
		BuildingCount: 1,
	})
	if err != nil {
		t.Fatalf("first purchase: %v", err)
	}

	_, err = svc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		AccountID:     accountID,
		PlanID:        plan.ID,
		BuildingCount: 1,
	})
	assertCode(t, err, pkgerrors.CodeConflict)

	if len(repo.subs) != 1 {
		t.Fatalf("expected a single subscription row, got %d", len(repo.subs))
	}
	if _, ok := repo.subs[first.ID]; !ok {
		t.Fatalf("original subscription should survive")
	}
}

func TestCreateSubscriptionRacedUniqueIndex(t *testing.T) {
	// The duplicate check can race a concurrent purchase; the partial unique
	// index is the backstop and its violation maps to the same conflict.
	repo := newStubRepo()
	plan := addPlan(repo, "Pro", 500, enums.PlanStatusActive)
	repo.createSubErr = pkgerrors.New(pkgerrors.CodeDependency,
		`duplicate key value violates unique constraint "ux_subscriptions_account_active"`)
	svc := newService(t, repo, date(2025, 1, 1))

	_, err := svc.CreateSubscription(context.Background(), CreateSubscriptionParams{
		AccountID:     uuid.New(),
		PlanID:        plan.ID,
		BuildingCount: 1,
	})
	assertCode(t, err, pkgerrors.CodeConflict)
}

func seedActiveSubscription(repo *stubRepo, plan *models.Plan) *models.Subscription {
	sub := &models.Subscription{
		ID:                uuid.New(),
		AccountID:         uuid.New(),
		PlanID:            plan.ID,
		BuildingCount:     2,
		ManagerCount:      0,
		TotalAmount:       decimal.NewFromInt(1000),
		BillingCycleStart: date(2025, 1, 1),
		BillingCycleEnd:   date(2026, 1, 1),
		NextBillingDate:   date(2026, 1, 1),
		Status:            enums.SubscriptionStatusActive,
	}
	repo.subs[sub.ID] = sub
	return sub
}

func TestCalculateUpgradePinnedScenario(t *testing.T) {
	repo := newStubRepo()
	pro := addPlan(repo, "Pro", 500, enums.PlanStatusActive)
	enterprise := addPlan(repo, "Enterprise", 800, enums.PlanStatusActive)
	sub := seedActiveSubscription(repo, pro)
	svc := newService(t, repo, date(2025, 7, 2))

	result, err := svc.CalculateUpgrade(context.Background(), UpgradeParams{
		SubscriptionID: sub.ID,
		NewPlanID:      enterprise.ID,
		BuildingCount:  2,
	})
	if err != nil {
		t.Fatalf("calculate upgrade: %v", err)
	}

	if result.TotalDays != 365 || result.DaysRemaining != 183 {
		t.Fatalf("unexpected day counts: %+v", result)
	}
	if got := result.OldUnused.StringFixed(2); got != "501.37" {
		t.Fatalf("old unused = %s, want 501.37", got)
	}
	if got := result.NewCost.StringFixed(2); got != "802.19" {
		t.Fatalf("new cost = %s, want 802.19", got)
	}
	if got := result.ProratedAmount.StringFixed(2); got != "300.82" {
		t.Fatalf("prorated amount = %s, want 300.82", got)
	}

	// Preview writes nothing.
	if repo.updateCalls != 0 || len(repo.history) != 0 {
		t.Fatalf("preview should not write")
	}
}

func TestUpgradeSubscriptionAppliesChange(t *testing.T) {
	repo := newStubRepo()
	pro := addPlan(repo, "Pro", 500, enums.PlanStatusActive)
	enterprise := addPlan(repo, "Enterprise", 800, enums.PlanStatusActive)
	sub := seedActiveSubscription(repo, pro)
	svc := newService(t, repo, date(2025, 7, 2))

	result, err := svc.UpgradeSubscription(context.Background(), UpgradeParams{
		SubscriptionID: sub.ID,
		NewPlanID:      enterprise.ID,
		BuildingCount:  2,
	})
	if err != nil {
		t.Fatalf("upgrade subscription: %v", err)
	}

	updated := repo.subs[sub.ID]
	if updated.PlanID != enterprise.ID {
		t.Fatalf("plan id not overwritten")
	}
	if got := updated.TotalAmount.StringFixed(2); got != "1600.00" {
		t.Fatalf("total amount = %s, want 1600.00", got)
	}
	if !updated.BillingCycleStart.Equal(date(2025, 1, 1)) || !updated.BillingCycleEnd.Equal(date(2026, 1, 1)) {
		t.Fatalf("cycle bounds must not move on upgrade")
	}

	if len(repo.history) != 1 {
		t.Fatalf("expected one history row, got %d", len(repo.history))
	}
	entry := repo.history[0]
	if entry.Action != enums.SubscriptionActionUpgraded {
		t.Fatalf("unexpected action %s", entry.Action)
	}
	if entry.OldPlanID == nil || *entry.OldPlanID != pro.ID || entry.NewPlanID != enterprise.ID {
		t.Fatalf("history plan transition wrong: %+v", entry)
	}
	if entry.ProratedAmount == nil || entry.ProratedAmount.StringFixed(2) != "300.82" {
		t.Fatalf("history prorated amount wrong: %+v", entry.ProratedAmount)
	}
	if got := result.Breakdown.ProratedAmount.StringFixed(2); got != "300.82" {
		t.Fatalf("breakdown prorated amount = %s, want 300.82", got)
	}
}

func TestUpgradeEndedCycle(t *testing.T) {
	repo := newStubRepo()
	pro := addPlan(repo, "Pro", 500, enums.PlanStatusActive)
	enterprise := addPlan(repo, "Enterprise", 800, enums.PlanStatusActive)
	sub := seedActiveSubscription(repo, pro)
	svc := newService(t, repo, date(2026, 1, 1))

	_, err := svc.UpgradeSubscription(context.Background(), UpgradeParams{
		SubscriptionID: sub.ID,
		NewPlanID:      enterprise.ID,
		BuildingCount:  2,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)

	if repo.updateCalls != 0 || len(repo.history) != 0 {
		t.Fatalf("ended cycle must not write")
	}
}

func TestUpgradeInactiveSubscription(t *testing.T) {
	repo := newStubRepo()
	pro := addPlan(repo, "Pro", 500, enums.PlanStatusActive)
	sub := seedActiveSubscription(repo, pro)
	sub.Status = enums.SubscriptionStatusExpired
	svc := newService(t, repo, date(2025, 7, 2))

	_, err := svc.CalculateUpgrade(context.Background(), UpgradeParams{
		SubscriptionID: sub.ID,
		NewPlanID:      pro.ID,
		BuildingCount:  2,
	})
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestListHistoryInvalidCursor(t *testing.T) {
	repo := newStubRepo()
	svc := newService(t, repo, date(2025, 7, 2))

	_, err := svc.ListHistory(context.Background(), HistoryParams{
		SubscriptionID: uuid.New(),
		Cursor:         "not-base64!!",
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}
