package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/avilaworks/tenantry-backend/pkg/migrate"
)

func TestSubscriptionsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_subscriptions.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no subscriptions migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS subscriptions",
		"FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE",
		"FOREIGN KEY (plan_id) REFERENCES plans(id) ON DELETE RESTRICT",
		"CHECK (billing_cycle_end > billing_cycle_start)",
		"CREATE UNIQUE INDEX ux_subscriptions_account_active",
		"WHERE status = 'active'",
		"CREATE TABLE IF NOT EXISTS subscription_history",
	}
	for _, want := range checks {
		if !strings.Contains(content, want) {
			t.Errorf("subscriptions migration missing %q", want)
		}
	}
}

func TestMigrationDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir invalid: %v", err)
	}
}
