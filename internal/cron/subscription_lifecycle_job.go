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

const (
	subscriptionWarningDays = 7
	defaultScanLimit        = 500
)

// subscriptionScanner is the slice of the billing repository the job needs.
type subscriptionScanner interface {
	ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]models.Subscription, error)
	ListEnded(ctx context.Context, asOf time.Time, limit int) ([]models.Subscription, error)
	MarkExpired(ctx context.Context, id uuid.UUID) (bool, error)
	FindAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// eventNotifier delivers lifecycle events; shared by all lifecycle jobs.
type eventNotifier interface {
	Notify(ctx context.Context, event notifier.Event) error
}

// SubscriptionLifecycleJobParams configures the subscription lifecycle job.
type SubscriptionLifecycleJobParams struct {
	Logger   *logger.Logger
	Repo     subscriptionScanner
	Notifier eventNotifier
	Limit    int
	Now      func() time.Time
}

// NewSubscriptionLifecycleJob builds the subscription warn/expire cron job.
func NewSubscriptionLifecycleJob(params SubscriptionLifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("subscription repository required")
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
	return &subscriptionLifecycleJob{
		logg:     params.Logger,
		repo:     params.Repo,
		notifier: params.Notifier,
		limit:    limit,
		now:      now,
	}, nil
}

type subscriptionLifecycleJob struct {
	logg     *logger.Logger
	repo     subscriptionScanner
	notifier eventNotifier
	limit    int
	now      func() time.Time
}

func (j *subscriptionLifecycleJob) Name() string { return "subscription-lifecycle" }

func (j *subscriptionLifecycleJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.notifyExpiring(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.expire(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

// notifyExpiring warns accounts whose cycle ends within the warning window.
// There is no cross-run dedup: a daily cadence means one warning per day.
func (j *subscriptionLifecycleJob) notifyExpiring(ctx context.Context) error {
	now := j.now().UTC()
	window := now.Add(subscriptionWarningDays * 24 * time.Hour)
	subs, err := j.repo.ListExpiring(ctx, now, window, j.limit)
	if err != nil {
		return fmt.Errorf("list expiring subscriptions: %w", err)
	}

	var errs error
	notified := 0
	for i := range subs {
		if err := j.warnAccount(ctx, &subs[i]); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		notified++
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(subs),
		"notified":   notified,
	})
	j.logg.Info(reportCtx, "subscription warn loop complete")
	return errs
}

func (j *subscriptionLifecycleJob) expire(ctx context.Context) error {
	now := j.now().UTC()
	subs, err := j.repo.ListEnded(ctx, now, j.limit)
	if err != nil {
		return fmt.Errorf("list ended subscriptions: %w", err)
	}

	var errs error
	expired := 0
	for i := range subs {
		sub := &subs[i]
		changed, err := j.repo.MarkExpired(ctx, sub.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("expire subscription %s: %w", sub.ID, err))
			continue
		}
		if !changed {
			// An overlapping run already expired it.
			continue
		}
		expired++
		// The status write stands even when the notification fails.
		if err := j.notifyAccount(ctx, sub, notifier.Event{
			Kind:    enums.NotificationTypeSubscriptionExpired,
			Subject: "Subscription expired",
			Message: fmt.Sprintf("Your subscription ended on %s. Renew to keep managing your properties.", sub.BillingCycleEnd.Format("2006-01-02")),
		}); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates": len(subs),
		"expired":    expired,
	})
	j.logg.Info(reportCtx, "subscription expire loop complete")
	return errs
}

func (j *subscriptionLifecycleJob) warnAccount(ctx context.Context, sub *models.Subscription) error {
	return j.notifyAccount(ctx, sub, notifier.Event{
		Kind:    enums.NotificationTypeSubscriptionExpiring,
		Subject: "Subscription expiring soon",
		Message: fmt.Sprintf("Your subscription ends on %s. Renew to avoid interruption.", sub.BillingCycleEnd.Format("2006-01-02")),
	})
}

func (j *subscriptionLifecycleJob) notifyAccount(ctx context.Context, sub *models.Subscription, event notifier.Event) error {
	account, err := j.repo.FindAccount(ctx, sub.AccountID)
	if err != nil {
		return fmt.Errorf("find account %s: %w", sub.AccountID, err)
	}
	if account == nil {
		return fmt.Errorf("account %s not found for subscription %s", sub.AccountID, sub.ID)
	}

	event.RecipientID = account.ID
	event.RecipientEmail = account.Email
	event.InApp = true
	event.Data = map[string]any{
		"subscription_id":   sub.ID.String(),
		"billing_cycle_end": sub.BillingCycleEnd.Format(time.RFC3339),
	}
	if err := j.notifier.Notify(ctx, event); err != nil {
		return fmt.Errorf("notify account %s for subscription %s: %w", account.ID, sub.ID, err)
	}
	return nil
}
