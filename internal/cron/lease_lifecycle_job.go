package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/avilaworks/tenantry-backend/internal/notifier"
	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
	"github.com/avilaworks/tenantry-backend/pkg/logger"
)

const leaseWarningDays = 30

// leaseScanner is the slice of the lease repository the job needs.
type leaseScanner interface {
	ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]models.Lease, error)
	ListEnded(ctx context.Context, asOf time.Time, limit int) ([]models.Lease, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// LeaseLifecycleJobParams configures the lease lifecycle job.
type LeaseLifecycleJobParams struct {
	Logger   *logger.Logger
	Repo     leaseScanner
	Notifier eventNotifier
	Limit    int
	Now      func() time.Time
}

// NewLeaseLifecycleJob builds the lease warn/expire cron job.
func NewLeaseLifecycleJob(params LeaseLifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("lease repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultScanLimit
	}
	return &leaseLifecycleJob{
		logg:     params.Logger,
		repo:     params.Repo,
		notifier: params.Notifier,
		limit:    limit,
		now:      now,
	}, nil
}

type leaseLifecycleJob struct {
	logg     *logger.Logger
	repo     leaseScanner
	notifier eventNotifier
	limit    int
	now      func() time.Time
}

func (j *leaseLifecycleJob) Name() string { return "lease-lifecycle" }

func (j *leaseLifecycleJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.notifyExpiring(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.expire(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (j *leaseLifecycleJob) notifyExpiring(ctx context.Context) error {
	now := j.now().UTC()
	window := now.Add(leaseWarningDays * 24 * time.Hour)
	rows, err := j.repo.ListExpiring(ctx, now, window, j.limit)
	if err != nil {
		return fmt.Errorf("list expiring leases: %w", err)
	}

	var errs error
	notified := 0
	for i := range rows {
		lease := &rows[i]
		if err := j.notifyTenant(ctx, lease, notifier.Event{
			Kind:    enums.NotificationTypeLeaseExpiring,
			Subject: "Lease ending soon",
			Message: fmt.Sprintf("Your lease ends on %s. Contact your property manager to renew.", lease.EndDate.Format("2006-01-02")),
		}); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		notified++
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"notified":   notified,
	})
	j.logg.Info(reportCtx, "lease warn loop complete")
	return errs
}

func (j *leaseLifecycleJob) expire(ctx context.Context) error {
	now := j.now().UTC()
	rows, err := j.repo.ListEnded(ctx, now, j.limit)
	if err != nil {
		return fmt.Errorf("list ended leases: %w", err)
	}

	var errs error
	expired := 0
	for i := range rows {
		lease := &rows[i]
		changed, err := j.repo.MarkExpired(ctx, lease.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire lease %s: %w", lease.ID, err))
			continue
		}
		if !changed {
			continue
		}
		expired++
		if err := j.notifyTenant(ctx, lease, notifier.Event{
			Kind:    enums.NotificationTypeLeaseExpired,
			Subject: "Lease ended",
			Message: fmt.Sprintf("Your lease ended on %s.", lease.EndDate.Format("2006-01-02")),
		}); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(rows),
		"expired":    expired,
	})
	j.logg.Info(reportCtx, "lease expire loop complete")
	return errs
}

// Lease events go to tenants by email only; tenants have no in-app inbox.
func (j *leaseLifecycleJob) notifyTenant(ctx context.Context, lease *models.Lease, event notifier.Event) error {
	tenant, err := j.repo.FindTenant(ctx, lease.TenantID)
	if err != nil {
		return fmt.Errorf("find tenant %s: %w", lease.TenantID, err)
	}
	if tenant == nil {
		return fmt.Errorf("tenant %s not found for lease %s", lease.TenantID, lease.ID)
	}

	event.RecipientID = tenant.ID
	event.RecipientEmail = tenant.Email
	event.InApp = false
	event.Data = map[string]any{
		"lease_id": lease.ID.String(),
		"unit_id":  lease.UnitID.String(),
		"end_date": lease.EndDate.Format(time.RFC3339),
	}
	if err := j.notifier.Notify(ctx, event); err != nil {
		return fmt.Errorf("notify tenant %s for lease %s: %w", tenant.ID, lease.ID, err)
	}
	return nil
}
