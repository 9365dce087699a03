package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

// Plan captures a subscription plan with per-unit prices and its quota
// descriptor. Plans referenced by subscriptions are only mutated through the
// admin surface; the surrounding system prevents deleting referenced plans.
type Plan struct {
	ID                  uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string           `gorm:"column:name;not null;uniqueIndex"`
	Status              enums.PlanStatus `gorm:"column:status;type:plan_status;not null;default:'active'"`
	BuildingPrice       decimal.Decimal  `gorm:"column:building_price;type:numeric(12,2);not null"`
	ManagerPrice        decimal.Decimal  `gorm:"column:manager_price;type:numeric(12,2);not null"`
	MaxBuildings        int              `gorm:"column:max_buildings;not null;default:0"`
	MaxUnitsPerBuilding int              `gorm:"column:max_units_per_building;not null;default:0"`
	MaxManagers         int              `gorm:"column:max_managers;not null;default:0"`
	Features            pq.StringArray   `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	CreatedAt           time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
