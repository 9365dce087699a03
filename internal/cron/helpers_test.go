package cron

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/avilaworks/tenantry-backend/internal/notifier"
	"github.com/avilaworks/tenantry-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

// fakeNotifier records delivered events and can fail for selected recipients.
type fakeNotifier struct {
	events     []notifier.Event
	failEmails map[string]bool
}

func (f *fakeNotifier) Notify(ctx context.Context, event notifier.Event) error {
	if f.failEmails[event.RecipientEmail] {
		return fmt.Errorf("delivery failed for %s", event.RecipientEmail)
	}
	f.events = append(f.events, event)
	return nil
}
