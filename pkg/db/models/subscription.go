package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// Subscription persists an account's plan purchase for one billing cycle.
// BillingCycleEnd is an exclusive boundary: the cycle has ended once the
// current time is at or after it. At most one subscription per account may
// hold status=active (partial unique index ux_subscriptions_account_active).
type Subscription struct {
	ID                uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccountID         uuid.UUID                `gorm:"column:account_id;type:uuid;not null;index"`
	PlanID            uuid.UUID                `gorm:"column:plan_id;type:uuid;not null"`
	BuildingCount     int                      `gorm:"column:building_count;not null"`
	ManagerCount      int                      `gorm:"column:manager_count;not null"`
	TotalAmount       decimal.Decimal          `gorm:"column:total_amount;type:numeric(12,2);not null"`
	BillingCycleStart time.Time                `gorm:"column:billing_cycle_start;not null"`
	BillingCycleEnd   time.Time                `gorm:"column:billing_cycle_end;not null;index"`
	NextBillingDate   time.Time                `gorm:"column:next_billing_date;not null"`
	Status            enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null;default:'active'"`
	CreatedAt         time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
