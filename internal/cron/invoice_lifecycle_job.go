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

const invoiceReminderDays = 5

// invoiceScanner is the slice of the invoice repository the job needs.
type invoiceScanner interface {
	ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]models.Invoice, error)
	ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]models.Invoice, error)
	MarkOverdue(ctx context.Context, id uuid.UUID) (bool, error)
	FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
}

// InvoiceLifecycleJobParams configures the invoice lifecycle job.
type InvoiceLifecycleJobParams struct {
	Logger   *logger.Logger
	Repo     invoiceScanner
	Notifier eventNotifier
	Limit    int
	Now      func() time.Time
}

// NewInvoiceLifecycleJob builds the invoice overdue/reminder cron job.
func NewInvoiceLifecycleJob(params InvoiceLifecycleJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("invoice repository required")
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
	return &invoiceLifecycleJob{
		logg:     params.Logger,
		repo:     params.Repo,
		notifier: params.Notifier,
		limit:    limit,
		now:      now,
	}, nil
}

type invoiceLifecycleJob struct {
	logg     *logger.Logger
	repo     invoiceScanner
	notifier eventNotifier
	limit    int
	now      func() time.Time
}

func (j *invoiceLifecycleJob) Name() string { return "invoice-lifecycle" }

func (j *invoiceLifecycleJob) Run(ctx context.Context) error {
	var errs []error
	if err := j.markOverdue(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := j.remindUpcoming(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

// markOverdue transitions unpaid invoices past their due date and nags the
// tenant. Already-overdue invoices get no second transition but are re-notified
// on every run until paid.
func (j *invoiceLifecycleJob) markOverdue(ctx context.Context) error {
	now := j.now().UTC()
	rows, err := j.repo.ListPastDue(ctx, now, j.limit)
	if err != nil {
		return fmt.Errorf("list past-due invoices: %w", err)
	}

	var errs error
	transitioned := 0
	notified := 0
	for i := range rows {
		invoice := &rows[i]
		if invoice.Status != enums.InvoiceStatusOverdue {
			changed, err := j.repo.MarkOverdue(ctx, invoice.ID)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("mark invoice %s overdue: %w", invoice.ID, err))
				continue
			}
			if changed {
				transitioned++
			}
		}
		if err := j.notifyTenant(ctx, invoice, notifier.Event{
			Kind:    enums.NotificationTypeInvoiceOverdue,
			Subject: "Invoice overdue",
			Message: fmt.Sprintf("Invoice for %s was due on %s and is now overdue.", invoice.Amount.StringFixed(2), invoice.DueDate.Format("2006-01-02")),
		}); err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		notified++
	}
	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"candidates":   len(rows),
		"transitioned": transitioned,
		"notified":     notified,
	})
	j.logg.Info(reportCtx, "invoice overdue loop complete")
	return errs
}

func (j *invoiceLifecycleJob) remindUpcoming(ctx context.Context) error {
	now := j.now().UTC()
	window := now.Add(invoiceReminderDays * 24 * time.Hour)
	rows, err := j.repo.ListUpcoming(ctx, now, window, j.limit)
	if err != nil {
		return fmt.Errorf("list upcoming invoices: %w", err)
	}

	var errs error
	notified := 0
	for i := range rows {
		invoice := &rows[i]
		if err := j.notifyTenant(ctx, invoice, notifier.Event{
			Kind:    enums.NotificationTypeInvoiceReminder,
			Subject: "Invoice due soon",
			Message: fmt.Sprintf("Invoice for %s is due on %s.", invoice.Amount.StringFixed(2), invoice.DueDate.Format("2006-01-02")),
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
	j.logg.Info(reportCtx, "invoice reminder loop complete")
	return errs
}

func (j *invoiceLifecycleJob) notifyTenant(ctx context.Context, invoice *models.Invoice, event notifier.Event) error {
	tenant, err := j.repo.FindTenant(ctx, invoice.TenantID)
	if err != nil {
		return fmt.Errorf("find tenant %s: %w", invoice.TenantID, err)
	}
	if tenant == nil {
		return fmt.Errorf("tenant %s not found for invoice %s", invoice.TenantID, invoice.ID)
	}

	event.RecipientID = tenant.ID
	event.RecipientEmail = tenant.Email
	event.InApp = true
	event.Data = map[string]any{
		"invoice_id": invoice.ID.String(),
		"amount":     invoice.Amount.StringFixed(2),
		"due_date":   invoice.DueDate.Format(time.RFC3339),
	}
	if err := j.notifier.Notify(ctx, event); err != nil {
		return fmt.Errorf("notify tenant %s for invoice %s: %w", tenant.ID, invoice.ID, err)
	}
	return nil
}
