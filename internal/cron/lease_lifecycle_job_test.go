package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

type fakeLeaseScanner struct {
	expiring []models.Lease
	ended    []models.Lease
	tenants  map[uuid.UUID]*models.Tenant
	statuses map[uuid.UUID]enums.LeaseStatus
}

func newFakeLeaseScanner() *fakeLeaseScanner {
	return &fakeLeaseScanner{
		tenants:  map[uuid.UUID]*models.Tenant{},
		statuses: map[uuid.UUID]enums.LeaseStatus{},
	}
}

func (f *fakeLeaseScanner) ListExpiring(ctx context.Context, from, to time.Time, limit int) ([]models.Lease, error) {
	return f.expiring, nil
}

func (f *fakeLeaseScanner) ListEnded(ctx context.Context, asOf time.Time, limit int) ([]models.Lease, error) {
	var out []models.Lease
	for _, lease := range f.ended {
		if f.statuses[lease.ID] == enums.LeaseStatusActive {
			out = append(out, lease)
		}
	}
	return out, nil
}

func (f *fakeLeaseScanner) MarkExpired(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.statuses[id] != enums.LeaseStatusActive {
		return false, nil
	}
	f.statuses[id] = enums.LeaseStatusExpired
	return true, nil
}

func (f *fakeLeaseScanner) FindTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	return f.tenants[id], nil
}

func (f *fakeLeaseScanner) addLease(endDate time.Time, ended bool) models.Lease {
	tenant := &models.Tenant{ID: uuid.New(), FullName: "Tenant", Email: "tenant@example.com"}
	f.tenants[tenant.ID] = tenant
	lease := models.Lease{
		ID:       uuid.New(),
		TenantID: tenant.ID,
		UnitID:   uuid.New(),
		EndDate:  endDate,
		Status:   enums.LeaseStatusActive,
	}
	f.statuses[lease.ID] = enums.LeaseStatusActive
	if ended {
		f.ended = append(f.ended, lease)
	} else {
		f.expiring = append(f.expiring, lease)
	}
	return lease
}

func newLeaseJob(t *testing.T, scanner *fakeLeaseScanner, sink *fakeNotifier, now time.Time) Job {
	t.Helper()
	job, err := NewLeaseLifecycleJob(LeaseLifecycleJobParams{
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

func TestLeaseJobWarningsAreEmailOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	scanner := newFakeLeaseScanner()
	scanner.addLease(now.AddDate(0, 0, 20), false)
	sink := &fakeNotifier{}
	job := newLeaseJob(t, scanner, sink, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected one event, got %d", len(sink.events))
	}
	event := sink.events[0]
	if event.Kind != enums.NotificationTypeLeaseExpiring {
		t.Fatalf("unexpected kind %s", event.Kind)
	}
	if event.InApp {
		t.Fatalf("lease events must not write in-app rows")
	}
}

func TestLeaseJobExpireOnlyOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	scanner := newFakeLeaseScanner()
	scanner.addLease(now.AddDate(0, 0, -2), true)
	sink := &fakeNotifier{}
	job := newLeaseJob(t, scanner, sink, now)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(sink.events) != 1 {
		t.Fatalf("expected a single expired notification across runs, got %d", len(sink.events))
	}
	if sink.events[0].Kind != enums.NotificationTypeLeaseExpired {
		t.Fatalf("unexpected kind %s", sink.events[0].Kind)
	}
}
