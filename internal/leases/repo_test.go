package leases

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
)

func newTestRepo(t *testing.T) (Repository, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Tenant{}, &models.Lease{}))
	return NewRepository(conn), conn
}

func seedLease(t *testing.T, conn *gorm.DB, endDate time.Time, status enums.LeaseStatus) *models.Lease {
	t.Helper()
	lease := &models.Lease{
		ID:        uuid.New(),
		TenantID:  uuid.New(),
		UnitID:    uuid.New(),
		StartDate: endDate.AddDate(-1, 0, 0),
		EndDate:   endDate,
		Status:    status,
	}
	require.NoError(t, conn.Create(lease).Error)
	return lease
}

func TestMarkExpiredIsIdempotent(t *testing.T) {
	repo, conn := newTestRepo(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	lease := seedLease(t, conn, now.AddDate(0, 0, -1), enums.LeaseStatusActive)

	changed, err := repo.MarkExpired(context.Background(), lease.ID)
	require.NoError(t, err)
	assert.True(t, changed, "first transition must report a change")

	changed, err = repo.MarkExpired(context.Background(), lease.ID)
	require.NoError(t, err)
	assert.False(t, changed, "second transition must be a no-op")

	var stored models.Lease
	require.NoError(t, conn.First(&stored, "id = ?", lease.ID).Error)
	assert.Equal(t, enums.LeaseStatusExpired, stored.Status)
}

func TestListEndedSkipsExpired(t *testing.T) {
	repo, conn := newTestRepo(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	ended := seedLease(t, conn, now.AddDate(0, 0, -2), enums.LeaseStatusActive)
	seedLease(t, conn, now.AddDate(0, 0, -3), enums.LeaseStatusExpired)
	seedLease(t, conn, now.AddDate(0, 1, 0), enums.LeaseStatusActive)

	rows, err := repo.ListEnded(context.Background(), now, 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ended.ID, rows[0].ID)
}

func TestListExpiringWindow(t *testing.T) {
	repo, conn := newTestRepo(t)
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	inWindow := seedLease(t, conn, now.AddDate(0, 0, 10), enums.LeaseStatusActive)
	seedLease(t, conn, now.AddDate(0, 0, 45), enums.LeaseStatusActive)
	seedLease(t, conn, now.AddDate(0, 0, -1), enums.LeaseStatusActive)

	rows, err := repo.ListExpiring(context.Background(), now, now.AddDate(0, 0, 30), 100)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, inWindow.ID, rows[0].ID)
}

func TestFindTenantMissing(t *testing.T) {
	repo, _ := newTestRepo(t)

	tenant, err := repo.FindTenant(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, tenant)
}
