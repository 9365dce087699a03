package billing

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/avilaworks/tenantry-backend/api/responses"
	"github.com/avilaworks/tenantry-backend/api/validators"
	planssvc "github.com/avilaworks/tenantry-backend/internal/plans"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
	"github.com/avilaworks/tenantry-backend/pkg/logger"
)

type planResponse struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Status              string   `json:"status"`
	BuildingPrice       string   `json:"building_price"`
	ManagerPrice        string   `json:"manager_price"`
	MaxBuildings        int      `json:"max_buildings"`
	MaxUnitsPerBuilding int      `json:"max_units_per_building"`
	MaxManagers         int      `json:"max_managers"`
	Features            []string `json:"features"`
	CreatedAt           string   `json:"created_at"`
	UpdatedAt           string   `json:"updated_at"`
}

type planListResponse struct {
	Plans []planResponse `json:"plans"`
}

type planCreateRequest struct {
	Name                string   `json:"name" validate:"required"`
	BuildingPriceCents  *int64   `json:"building_price_cents" validate:"required"`
	ManagerPriceCents   *int64   `json:"manager_price_cents" validate:"required"`
	MaxBuildings        int      `json:"max_buildings" validate:"min=0"`
	MaxUnitsPerBuilding int      `json:"max_units_per_building" validate:"min=0"`
	MaxManagers         int      `json:"max_managers" validate:"min=0"`
	Features            []string `json:"features"`
}

type planUpdateRequest struct {
	Name                *string   `json:"name"`
	Status              *string   `json:"status"`
	BuildingPriceCents  *int64    `json:"building_price_cents"`
	ManagerPriceCents   *int64    `json:"manager_price_cents"`
	MaxBuildings        *int      `json:"max_buildings"`
	MaxUnitsPerBuilding *int      `json:"max_units_per_building"`
	MaxManagers         *int      `json:"max_managers"`
	Features            *[]string `json:"features"`
}

func PlansList(svc planssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		// Public catalog only exposes plans open for purchase.
		active := enums.PlanStatusActive
		plans, err := svc.ListPlans(ctx, planssvc.ListParams{Status: &active})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planListResponse{Plans: plansToResponse(plans)})
	}
}

func PlanDetail(svc planssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := validators.ParseUUIDParam(r, "planId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		plan, err := svc.GetPlan(ctx, planID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if plan == nil || plan.Status != enums.PlanStatusActive {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "plan not found"))
			return
		}

		responses.WriteSuccess(w, planToResponse(plan))
	}
}

func AdminPlansList(svc planssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		statusParam := strings.TrimSpace(r.URL.Query().Get("status"))
		var status *enums.PlanStatus
		if statusParam != "" {
			parsed, err := enums.ParsePlanStatus(statusParam)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			status = &parsed
		}

		plans, err := svc.ListPlans(ctx, planssvc.ListParams{Status: status})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planListResponse{Plans: plansToResponse(plans)})
	}
}

func AdminPlanCreate(svc planssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		var payload planCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if *payload.BuildingPriceCents < 0 || *payload.ManagerPriceCents < 0 {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "prices must be non-negative"))
			return
		}

		plan, err := svc.CreatePlan(ctx, planssvc.CreatePlanParams{
			Name:                strings.TrimSpace(payload.Name),
			BuildingPrice:       decimal.NewFromInt(*payload.BuildingPriceCents).Shift(-2),
			ManagerPrice:        decimal.NewFromInt(*payload.ManagerPriceCents).Shift(-2),
			MaxBuildings:        payload.MaxBuildings,
			MaxUnitsPerBuilding: payload.MaxUnitsPerBuilding,
			MaxManagers:         payload.MaxManagers,
			Features:            payload.Features,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, planToResponse(plan))
	}
}

func AdminPlanUpdate(svc planssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "plan service unavailable"))
			return
		}

		planID, err := validators.ParseUUIDParam(r, "planId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var payload planUpdateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := planssvc.UpdatePlanParams{
			Name:                payload.Name,
			MaxBuildings:        payload.MaxBuildings,
			MaxUnitsPerBuilding: payload.MaxUnitsPerBuilding,
			MaxManagers:         payload.MaxManagers,
			Features:            payload.Features,
		}
		if payload.Status != nil {
			parsed, err := enums.ParsePlanStatus(strings.TrimSpace(*payload.Status))
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
				return
			}
			params.Status = &parsed
		}
		if payload.BuildingPriceCents != nil {
			if *payload.BuildingPriceCents < 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "prices must be non-negative"))
				return
			}
			price := decimal.NewFromInt(*payload.BuildingPriceCents).Shift(-2)
			params.BuildingPrice = &price
		}
		if payload.ManagerPriceCents != nil {
			if *payload.ManagerPriceCents < 0 {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "prices must be non-negative"))
				return
			}
			price := decimal.NewFromInt(*payload.ManagerPriceCents).Shift(-2)
			params.ManagerPrice = &price
		}

		plan, err := svc.UpdatePlan(ctx, planID, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, planToResponse(plan))
	}
}

func plansToResponse(plans []models.Plan) []planResponse {
	result := make([]planResponse, 0, len(plans))
	for _, plan := range plans {
		result = append(result, planToResponse(&plan))
	}
	return result
}

func planToResponse(plan *models.Plan) planResponse {
	features := make([]string, len(plan.Features))
	copy(features, plan.Features)

	return planResponse{
		ID:                  plan.ID.String(),
		Name:                plan.Name,
		Status:              string(plan.Status),
		BuildingPrice:       plan.BuildingPrice.StringFixed(2),
		ManagerPrice:        plan.ManagerPrice.StringFixed(2),
		MaxBuildings:        plan.MaxBuildings,
		MaxUnitsPerBuilding: plan.MaxUnitsPerBuilding,
		MaxManagers:         plan.MaxManagers,
		Features:            features,
		CreatedAt:           plan.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:           plan.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
