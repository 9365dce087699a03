package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// SubscriptionHistory is the append-only audit trail for subscription
// mutations. Rows are never updated or deleted.
type SubscriptionHistory struct {
	ID               uuid.UUID                `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SubscriptionID   uuid.UUID                `gorm:"column:subscription_id;type:uuid;not null;index"`
	Action           enums.SubscriptionAction `gorm:"column:action;type:subscription_action;not null"`
	OldPlanID        *uuid.UUID               `gorm:"column:old_plan_id;type:uuid"`
	NewPlanID        uuid.UUID                `gorm:"column:new_plan_id;type:uuid;not null"`
	OldBuildingCount *int                     `gorm:"column:old_building_count"`
	NewBuildingCount int                      `gorm:"column:new_building_count;not null"`
	OldManagerCount  *int                     `gorm:"column:old_manager_count"`
	NewManagerCount  int                      `gorm:"column:new_manager_count;not null"`
	ProratedAmount   *decimal.Decimal         `gorm:"column:prorated_amount;type:numeric(12,2)"`
	Note             string                   `gorm:"column:note;type:text"`
	CreatedAt        time.Time                `gorm:"column:created_at;autoCreateTime"`
}
