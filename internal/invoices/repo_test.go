package invoices

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

func newTestRepo(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.Tenant{}, &models.Invoice{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewRepository(conn), conn
}

func seedInvoice(t *testing.T, conn *gorm.DB, dueDate time.Time, status enums.InvoiceStatus) *models.Invoice {
	t.Helper()
	invoice := &models.Invoice{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Amount:   decimal.NewFromInt(1200),
		DueDate:  dueDate,
		Status:   status,
	}
	if err := conn.Create(invoice).Error; err != nil {
		t.Fatalf("seed invoice: %v", err)
	}
	return invoice
}

func TestMarkOverdueGuardsStatus(t *testing.T) {
	repo, conn := newTestRepo(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	sent := seedInvoice(t, conn, now.AddDate(0, 0, -5), enums.InvoiceStatusSent)
	paid := seedInvoice(t, conn, now.AddDate(0, 0, -5), enums.InvoiceStatusPaid)

	changed, err := repo.MarkOverdue(context.Background(), sent.ID)
	if err != nil {
		t.Fatalf("mark overdue: %v", err)
	}
	if !changed {
		t.Fatalf("expected sent invoice to transition")
	}

	changed, err = repo.MarkOverdue(context.Background(), sent.ID)
	if err != nil {
		t.Fatalf("second mark overdue: %v", err)
	}
	if changed {
		t.Fatalf("already-overdue invoice must not transition again")
	}

	changed, err = repo.MarkOverdue(context.Background(), paid.ID)
	if err != nil {
		t.Fatalf("mark overdue paid: %v", err)
	}
	if changed {
		t.Fatalf("paid invoice must never become overdue")
	}
}

func TestListPastDueIncludesOverdue(t *testing.T) {
	repo, conn := newTestRepo(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	seedInvoice(t, conn, now.AddDate(0, 0, -3), enums.InvoiceStatusSent)
	seedInvoice(t, conn, now.AddDate(0, 0, -10), enums.InvoiceStatusOverdue)
	seedInvoice(t, conn, now.AddDate(0, 0, -10), enums.InvoiceStatusPaid)
	seedInvoice(t, conn, now.AddDate(0, 0, 3), enums.InvoiceStatusSent)

	rows, err := repo.ListPastDue(context.Background(), now, 100)
	if err != nil {
		t.Fatalf("list past due: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected sent + overdue rows, got %d", len(rows))
	}
}

func TestListUpcomingWindow(t *testing.T) {
	repo, conn := newTestRepo(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	soon := seedInvoice(t, conn, now.AddDate(0, 0, 2), enums.InvoiceStatusDraft)
	seedInvoice(t, conn, now.AddDate(0, 0, 9), enums.InvoiceStatusSent)
	seedInvoice(t, conn, now.AddDate(0, 0, 2), enums.InvoiceStatusPaid)
	seedInvoice(t, conn, now.AddDate(0, 0, -1), enums.InvoiceStatusSent)

	rows, err := repo.ListUpcoming(context.Background(), now, now.AddDate(0, 0, 5), 100)
	if err != nil {
		t.Fatalf("list upcoming: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != soon.ID {
		t.Fatalf("expected only the draft invoice inside the window, got %d rows", len(rows))
	}
}
