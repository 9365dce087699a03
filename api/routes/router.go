package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/avilaworks/tenantry-backend/api/controllers"
	billingcontrollers "github.com/avilaworks/tenantry-backend/api/controllers/billing"
	"github.com/avilaworks/tenantry-backend/api/middleware"
	planssvc "github.com/avilaworks/tenantry-backend/internal/plans"
	"github.com/avilaworks/tenantry-backend/pkg/config"
	"github.com/avilaworks/tenantry-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	planService planssvc.Service,
	billingService billingcontrollers.SubscriptionService,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/plans", func(r chi.Router) {
			r.Get("/", billingcontrollers.PlansList(planService, logg))
			r.Get("/{planId}", billingcontrollers.PlanDetail(planService, logg))
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Post("/", billingcontrollers.SubscriptionCreate(billingService, logg))
			r.Get("/{subscriptionId}", billingcontrollers.SubscriptionDetail(billingService, logg))
			r.Post("/{subscriptionId}/upgrade/preview", billingcontrollers.SubscriptionUpgradePreview(billingService, logg))
			r.Post("/{subscriptionId}/upgrade", billingcontrollers.SubscriptionUpgrade(billingService, logg))
			r.Get("/{subscriptionId}/history", billingcontrollers.SubscriptionHistory(billingService, logg))
		})

		r.Route("/accounts/{accountId}", func(r chi.Router) {
			r.Get("/subscription", billingcontrollers.AccountSubscription(planService, logg))
			r.Get("/quota", billingcontrollers.AccountQuota(planService, logg))
		})

		r.Route("/admin/plans", func(r chi.Router) {
			r.Get("/", billingcontrollers.AdminPlansList(planService, logg))
			r.Post("/", billingcontrollers.AdminPlanCreate(planService, logg))
			r.Put("/{planId}", billingcontrollers.AdminPlanUpdate(planService, logg))
		})
	})

	return r
}
