package notifier

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/avilaworks/tenantry-backend/pkg/db/models"
	"github.com/avilaworks/tenantry-backend/pkg/enums"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
	"github.com/avilaworks/tenantry-backend/pkg/logger"
	"github.com/avilaworks/tenantry-backend/pkg/mailer"
)

const defaultSendTimeout = 10 * time.Second

// Event describes one lifecycle notification leaving the engine.
type Event struct {
	Kind           enums.NotificationType
	RecipientID    uuid.UUID
	RecipientEmail string
	Subject        string
	Message        string
	Data           map[string]any
	// InApp also writes a notifications row; lease events are email-only.
	InApp bool
}

// Service fans a lifecycle event out to its delivery channels.
type Service interface {
	Notify(ctx context.Context, event Event) error
}

// AuditPublisher pushes audit copies of events to the message bus.
type AuditPublisher interface {
	PublishJSON(ctx context.Context, payload any, attrs map[string]string) error
}

// ServiceParams groups notifier dependencies. Audit is optional; everything
// else is required.
type ServiceParams struct {
	Repo        Repository
	Mailer      mailer.Sender
	Audit       AuditPublisher
	Logger      *logger.Logger
	SendTimeout time.Duration
	Now         func() time.Time
}

type service struct {
	repo        Repository
	mailer      mailer.Sender
	audit       AuditPublisher
	logg        *logger.Logger
	sendTimeout time.Duration
	now         func() time.Time
}

// NewService wires the notification sink.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier repository required")
	}
	if params.Mailer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier mailer required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier logger required")
	}
	timeout := params.SendTimeout
	if timeout <= 0 {
		timeout = defaultSendTimeout
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:        params.Repo,
		mailer:      params.Mailer,
		audit:       params.Audit,
		logg:        params.Logger,
		sendTimeout: timeout,
		now:         now,
	}, nil
}

type auditEvent struct {
	Kind        enums.NotificationType `json:"kind"`
	RecipientID uuid.UUID              `json:"recipient_id"`
	Subject     string                 `json:"subject"`
	Message     string                 `json:"message"`
	Data        map[string]any         `json:"data,omitempty"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Notify delivers the event: in-app row (when requested), email bounded by
// the send timeout, and a best-effort audit copy. The returned error exists
// so callers can count the row as failed; it must never abort a batch or
// roll back a status write that already happened.
func (s *service) Notify(ctx context.Context, event Event) error {
	if err := validateEvent(event); err != nil {
		return err
	}

	var errs error

	if event.InApp {
		row := &models.Notification{
			RecipientID: event.RecipientID,
			Type:        event.Kind,
			Title:       event.Subject,
			Message:     event.Message,
		}
		if err := s.repo.CreateNotification(ctx, row); err != nil {
			errs = multierr.Append(errs, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write in-app notification"))
		}
	}

	if err := s.sendEmail(ctx, event); err != nil {
		errs = multierr.Append(errs, err)
	}

	s.publishAudit(ctx, event)

	return errs
}

func (s *service) sendEmail(ctx context.Context, event Event) error {
	sendCtx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	return s.mailer.Send(sendCtx, mailer.SendParams{
		To:       event.RecipientEmail,
		Subject:  event.Subject,
		BodyHTML: fmt.Sprintf("<p>%s</p>", html.EscapeString(event.Message)),
		Tag:      event.Kind.String(),
	})
}

func (s *service) publishAudit(ctx context.Context, event Event) {
	if s.audit == nil {
		return
	}
	payload := auditEvent{
		Kind:        event.Kind,
		RecipientID: event.RecipientID,
		Subject:     event.Subject,
		Message:     event.Message,
		Data:        event.Data,
		OccurredAt:  s.now(),
	}
	if err := s.audit.PublishJSON(ctx, payload, map[string]string{"kind": event.Kind.String()}); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"kind":         event.Kind.String(),
			"recipient_id": event.RecipientID.String(),
			"error":        err.Error(),
		})
		s.logg.Warn(logCtx, "audit publish failed")
	}
}

func validateEvent(event Event) error {
	if !event.Kind.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid notification kind")
	}
	if event.RecipientID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient id required")
	}
	if strings.TrimSpace(event.RecipientEmail) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email required")
	}
	if strings.TrimSpace(event.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "subject required")
	}
	return nil
}
