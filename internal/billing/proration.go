package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/avilaworks/tenantry-backend/pkg/db/models"
)

// Amount returns the full-cycle charge for the given counts on the plan:
// buildingCount*BuildingPrice + managerCount*ManagerPrice, exact decimal.
func Amount(buildingCount, managerCount int, plan *models.Plan) decimal.Decimal {
	buildings := plan.BuildingPrice.Mul(decimal.NewFromInt(int64(buildingCount)))
	managers := plan.ManagerPrice.Mul(decimal.NewFromInt(int64(managerCount)))
	return buildings.Add(managers)
}

// ceilDays counts the days between from and to, rounding any partial day up.
// Negative spans stay negative so callers can detect ended cycles.
func ceilDays(from, to time.Time) int64 {
	span := to.Sub(from)
	days := int64(span / (24 * time.Hour))
	if span%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// ProrationResult is the upgrade cost breakdown. Monetary fields are rounded
// to 2 decimal places; intermediates are computed unrounded.
type ProrationResult struct {
	OldTotal       decimal.Decimal `json:"old_total"`
	OldUnused      decimal.Decimal `json:"old_unused"`
	NewTotal       decimal.Decimal `json:"new_total"`
	NewCost        decimal.Decimal `json:"new_cost"`
	ProratedAmount decimal.Decimal `json:"prorated_amount"`
	DaysRemaining  int64           `json:"days_remaining"`
	TotalDays      int64           `json:"total_days"`
}

// prorate computes the mid-cycle upgrade breakdown. The caller guarantees
// daysLeft > 0 and totalDays > 0.
func prorate(oldTotal, newTotal decimal.Decimal, totalDays, daysLeft int64) ProrationResult {
	left := decimal.NewFromInt(daysLeft)
	total := decimal.NewFromInt(totalDays)

	oldUnused := oldTotal.Mul(left).Div(total)
	newCost := newTotal.Mul(left).Div(total)
	prorated := newCost.Sub(oldUnused)

	return ProrationResult{
		OldTotal:       oldTotal.Round(2),
		OldUnused:      oldUnused.Round(2),
		NewTotal:       newTotal.Round(2),
		NewCost:        newCost.Round(2),
		ProratedAmount: prorated.Round(2),
		DaysRemaining:  daysLeft,
		TotalDays:      totalDays,
	}
}
