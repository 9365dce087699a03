package billing

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/avilaworks/tenantry-backend/api/responses"
	"github.com/avilaworks/tenantry-backend/api/validators"
	billingsvc "github.com/avilaworks/tenantry-backend/internal/billing"
	planssvc "github.com/avilaworks/tenantry-backend/internal/plans"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
	"github.com/avilaworks/tenantry-backend/pkg/logger"
)

const (
	historyDefaultLimit = 20
	historyMaxLimit     = 100
)

// SubscriptionService describes the billing methods used by the HTTP
// controllers.
type SubscriptionService interface {
	CreateSubscription(ctx context.Context, params billingsvc.CreateSubscriptionParams) (*models.Subscription, error)
	CalculateUpgrade(ctx context.Context, params billingsvc.UpgradeParams) (*billingsvc.ProrationResult, error)
	UpgradeSubscription(ctx context.Context, params billingsvc.UpgradeParams) (*billingsvc.UpgradeResult, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	ListHistory(ctx context.Context, params billingsvc.HistoryParams) (*billingsvc.HistoryResult, error)
}

type subscriptionCreateRequest struct {
	AccountID     string     `json:"account_id" validate:"required"`
	PlanID        string     `json:"plan_id" validate:"required"`
	BuildingCount int        `json:"building_count" validate:"min=1"`
	ManagerCount  int        `json:"manager_count" validate:"min=0"`
	CycleStart    *time.Time `json:"cycle_start,omitempty"`
}

type subscriptionUpgradeRequest struct {
	PlanID        string `json:"plan_id" validate:"required"`
	BuildingCount int    `json:"building_count" validate:"min=1"`
	ManagerCount  int    `json:"manager_count" validate:"min=0"`
}

type subscriptionResponse struct {
	ID                string `json:"id"`
	AccountID         string `json:"account_id"`
	PlanID            string `json:"plan_id"`
	BuildingCount     int    `json:"building_count"`
	ManagerCount      int    `json:"manager_count"`
	TotalAmount       string `json:"total_amount"`
	BillingCycleStart string `json:"billing_cycle_start"`
	BillingCycleEnd   string `json:"billing_cycle_end"`
	NextBillingDate   string `json:"next_billing_date"`
	Status            string `json:"status"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type prorationResponse struct {
	OldTotal       string `json:"old_total"`
	OldUnused      string `json:"old_unused"`
	NewTotal       string `json:"new_total"`
	NewCost        string `json:"new_cost"`
	ProratedAmount string `json:"prorated_amount"`
	DaysRemaining  int64  `json:"days_remaining"`
	TotalDays      int64  `json:"total_days"`
}

type upgradeResponse struct {
	Subscription subscriptionResponse `json:"subscription"`
	Breakdown    prorationResponse    `json:"breakdown"`
}

type historyItemResponse struct {
	ID               string  `json:"id"`
	SubscriptionID   string  `json:"subscription_id"`
	Action           string  `json:"action"`
	OldPlanID        *string `json:"old_plan_id,omitempty"`
	NewPlanID        string  `json:"new_plan_id"`
	OldBuildingCount *int    `json:"old_building_count,omitempty"`
	NewBuildingCount int     `json:"new_building_count"`
	OldManagerCount  *int    `json:"old_manager_count,omitempty"`
	NewManagerCount  int     `json:"new_manager_count"`
	ProratedAmount   *string `json:"prorated_amount,omitempty"`
	Note             string  `json:"note,omitempty"`
	CreatedAt        string  `json:"created_at"`
}

type historyListResponse struct {
	Items  []historyItemResponse `json:"items"`
	Cursor string                `json:"cursor,omitempty"`
}

func SubscriptionCreate(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		var payload subscriptionCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		accountID, err := parseBodyUUID(payload.AccountID, "account_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		planID, err := parseBodyUUID(payload.PlanID, "plan_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := billingsvc.CreateSubscriptionParams{
			AccountID:     accountID,
			PlanID:        planID,
			BuildingCount: payload.BuildingCount,
			ManagerCount:  payload.ManagerCount,
		}
		if payload.CycleStart != nil {
			params.CycleStart = payload.CycleStart.UTC()
		}

		sub, err := svc.CreateSubscription(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, subscriptionToResponse(sub))
	}
}

func SubscriptionDetail(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		subscriptionID, err := validators.ParseUUIDParam(r, "subscriptionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.GetSubscription(ctx, subscriptionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found"))
			return
		}

		responses.WriteSuccess(w, subscriptionToResponse(sub))
	}
}

func SubscriptionUpgradePreview(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		params, err := decodeUpgradeParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		breakdown, err := svc.CalculateUpgrade(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, prorationToResponse(breakdown))
	}
}

func SubscriptionUpgrade(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		params, err := decodeUpgradeParams(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.UpgradeSubscription(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, upgradeResponse{
			Subscription: subscriptionToResponse(result.Subscription),
			Breakdown:    prorationToResponse(&result.Breakdown),
		})
	}
}

func SubscriptionHistory(svc SubscriptionService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "billing service unavailable"))
			return
		}

		subscriptionID, err := validators.ParseUUIDParam(r, "subscriptionId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", historyDefaultLimit, 1, historyMaxLimit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.ListHistory(ctx, billingsvc.HistoryParams{
			SubscriptionID: subscriptionID,
			Limit:          limit,
			Cursor:         r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		items := make([]historyItemResponse, 0, len(result.Items))
		for _, item := range result.Items {
			items = append(items, historyToResponse(item))
		}
		responses.WriteSuccess(w, historyListResponse{Items: items, Cursor: result.Cursor})
	}
}

func AccountSubscription(svc planssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		accountID, err := validators.ParseUUIDParam(r, "accountId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		sub, err := svc.ActiveSubscriptionFor(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if sub == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "no active subscription"))
			return
		}

		responses.WriteSuccess(w, subscriptionToResponse(sub))
	}
}

func AccountQuota(svc planssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		accountID, err := validators.ParseUUIDParam(r, "accountId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		quota, err := svc.QuotaFor(ctx, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, quota)
	}
}

func decodeUpgradeParams(r *http.Request) (billingsvc.UpgradeParams, error) {
	subscriptionID, err := validators.ParseUUIDParam(r, "subscriptionId")
	if err != nil {
		return billingsvc.UpgradeParams{}, err
	}

	var payload subscriptionUpgradeRequest
	if err := validators.DecodeJSONBody(r, &payload); err != nil {
		return billingsvc.UpgradeParams{}, err
	}

	planID, err := parseBodyUUID(payload.PlanID, "plan_id")
	if err != nil {
		return billingsvc.UpgradeParams{}, err
	}

	return billingsvc.UpgradeParams{
		SubscriptionID: subscriptionID,
		NewPlanID:      planID,
		BuildingCount:  payload.BuildingCount,
		ManagerCount:   payload.ManagerCount,
	}, nil
}

func parseBodyUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "field must be a uuid").WithDetails(map[string]any{"field": field})
	}
	return id, nil
}

func subscriptionToResponse(sub *models.Subscription) subscriptionResponse {
	return subscriptionResponse{
		ID:                sub.ID.String(),
		AccountID:         sub.AccountID.String(),
		PlanID:            sub.PlanID.String(),
		BuildingCount:     sub.BuildingCount,
		ManagerCount:      sub.ManagerCount,
		TotalAmount:       sub.TotalAmount.StringFixed(2),
		BillingCycleStart: sub.BillingCycleStart.UTC().Format(time.RFC3339),
		BillingCycleEnd:   sub.BillingCycleEnd.UTC().Format(time.RFC3339),
		NextBillingDate:   sub.NextBillingDate.UTC().Format(time.RFC3339),
		Status:            string(sub.Status),
		CreatedAt:         sub.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         sub.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func prorationToResponse(result *billingsvc.ProrationResult) prorationResponse {
	return prorationResponse{
		OldTotal:       result.OldTotal.StringFixed(2),
		OldUnused:      result.OldUnused.StringFixed(2),
		NewTotal:       result.NewTotal.StringFixed(2),
		NewCost:        result.NewCost.StringFixed(2),
		ProratedAmount: result.ProratedAmount.StringFixed(2),
		DaysRemaining:  result.DaysRemaining,
		TotalDays:      result.TotalDays,
	}
}

func historyToResponse(item models.SubscriptionHistory) historyItemResponse {
	resp := historyItemResponse{
		ID:               item.ID.String(),
		SubscriptionID:   item.SubscriptionID.String(),
		Action:           string(item.Action),
		NewPlanID:        item.NewPlanID.String(),
		NewBuildingCount: item.NewBuildingCount,
		NewManagerCount:  item.NewManagerCount,
		OldBuildingCount: item.OldBuildingCount,
		OldManagerCount:  item.OldManagerCount,
		Note:             item.Note,
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
	}
	if item.OldPlanID != nil {
		old := item.OldPlanID.String()
		resp.OldPlanID = &old
	}
	if item.ProratedAmount != nil {
		amount := item.ProratedAmount.StringFixed(2)
		resp.ProratedAmount = &amount
	}
	return resp
}
