package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/avilaworks/tenantry-backend/api/responses"
	"github.com/avilaworks/tenantry-backend/pkg/config"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
	"github.com/avilaworks/tenantry-backend/pkg/logger"
)

const readinessTimeout = 5 * time.Second

// Pinger is satisfied by the database and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tenantry-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tenantry-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["database"] = pingStatus(ctx, db)
		checks["redis"] = pingStatus(ctx, redis)
		for _, status := range checks {
			if status != "ok" {
				healthy = false
			}
		}

		if !healthy {
			err := pkgerrors.New(pkgerrors.CodeDependency, "readiness check failed").WithDetails(checks)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}

func pingStatus(ctx context.Context, p Pinger) string {
	if p == nil {
		return "skipped"
	}
	if err := p.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
