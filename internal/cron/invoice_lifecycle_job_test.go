package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

type fakeInvoiceScanner struct {
	upcoming []models.Invoice
	pastDue  []models.Invoice
	tenants  map[uuid.UUID]*models.Tenant
	statuses map[uuid.UUID]enums.InvoiceStatus

	markCalls int
}

func newFakeInvoiceScanner() *fakeInvoiceScanner {
	return &fakeInvoiceScanner{
		tenants:  map[uuid.UUID]*models.Tenant{},
		statuses: map[uuid.UUID]enums.InvoiceStatus{},
	}
}

func (f *fakeInvoiceScanner) ListPastDue(ctx context.Context, asOf time.Time, limit int) ([]models.Invoice, error) {
	var out []models.Invoice
	for _, invoice := range f.pastDue {
		status := f.statuses[invoice.ID]
		if status == enums.InvoiceStatusPaid {
			continue
		}
		invoice.Status = status
		out = append(out, invoice)
	}
	return out, nil
}

func (f *fakeInvoiceScanner) ListUpcoming(ctx context.Context, from, to time.Time, limit int) ([]models.Invoice, error) {
	return f.upcoming, nil
}

func (f *fakeInvoiceScanner) MarkOverdue(ctx context.Context, id uuid.UUID) (bool, error) {
	f.markCalls++
	status := f.statuses[id]
	if status != enums.InvoiceStatusDraft && status != enums.InvoiceStatusSent {
		return false, nil
	}
	f.statuses[id] = enums.InvoiceStatusOverdue
	return true, nil
}

func (f *fakeInvoiceScanner) FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return f.tenants[id], nil
}

func (f *fakeInvoiceScanner) addPastDue(status enums.InvoiceStatus, dueDate time.Time) models.Invoice {
	tenant := &models.Tenant{ID: uuid.New(), FullName: "Tenant", Email: "tenant@example.com"}
	f.tenants[tenant.ID] = tenant
	invoice := models.Invoice{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		Amount:   decimal.NewFromInt(1200),
		DueDate:  dueDate,
		Status:   status,
	}
	f.statuses[invoice.ID] = status
	f.pastDue = append(f.pastDue, invoice)
	return invoice
}

func newInvoiceJob(t *testing.T, scanner *fakeInvoiceScanner, sink *fakeNotifier, now time.Time) Job {
	t.Helper()
	job, err := NewInvoiceLifecycleJob(InvoiceLifecycleJobParams{
		Logger:   testLogger(),
		Repo:     scanner,
		Notifier: sink,
		Now:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	return job
}

func TestInvoiceJobRenotifiesEveryRun(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	scanner := newFakeInvoiceScanner()
	scanner.addPastDue(enums.InvoiceStatusSent, now.AddDate(0, 0, -3))
	sink := &fakeNotifier{}
	job := newInvoiceJob(t, scanner, sink, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	// The status transition happens once; the nag repeats until payment.
	overdueEvents := 0
	for _, event := range sink.events {
		if event.Kind == enums.NotificationTypeInvoiceOverdue {
			overdueEvents++
		}
	}
	if overdueEvents != 2 {
		t.Fatalf("expected an overdue notification per run, got %d", overdueEvents)
	}
	if scanner.markCalls != 1 {
		t.Fatalf("expected one transition attempt, got %d", scanner.markCalls)
	}
}

func TestInvoiceJobSendsUpcomingReminders(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	scanner := newFakeInvoiceScanner()
	tenant := &models.Tenant{ID: uuid.New(), FullName: "Tenant", Email: "tenant@example.com"}
	scanner.tenants[tenant.ID] = tenant
	scanner.upcoming = []models.Invoice{{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		Amount:   decimal.NewFromInt(950),
		DueDate:  now.AddDate(0, 0, 3),
		Status:   enums.InvoiceStatusSent,
	}}
	sink := &fakeNotifier{}
	job := newInvoiceJob(t, scanner, sink, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected one event, got %d", len(sink.events))
	}
	event := sink.events[0]
	if event.Kind != enums.NotificationTypeInvoiceReminder {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if !event.InApp {
		t.Fatalf("invoice reminders also land in-app")
	}
}
