package mailer

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mrz1836/postmark"

	"github.com/avilaworks/tenantry-backend/pkg/config"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
)

// Sender delivers transactional email to tenants and account owners.
type Sender interface {
	Send(ctx context.Context, params SendParams) error
}

// SendParams describes a single outbound email.
type SendParams struct {
	To       string
	Subject  string
	BodyHTML string
	Tag      string
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Validate checks the outbound email fields before hitting the provider.
func (p SendParams) Validate() error {
	if strings.TrimSpace(p.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email required")
	}
	if !emailRegex.MatchString(p.To) {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient email invalid")
	}
	if strings.TrimSpace(p.Subject) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email subject required")
	}
	if strings.TrimSpace(p.BodyHTML) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email body required")
	}
	return nil
}

type postmarkSender struct {
	client *postmark.Client
	cfg    config.NotifierConfig
}

// NewPostmarkSender creates a Postmark-backed sender. All tokens and sender
// addresses must be configured; a half-configured mailer fails fast here
// instead of at first send.
func NewPostmarkSender(cfg config.NotifierConfig) (Sender, error) {
	if cfg.PostmarkServerToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "postmark server token required")
	}
	if cfg.PostmarkAccountToken == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "postmark account token required")
	}
	if !emailRegex.MatchString(cfg.SenderEmail) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "sender email must be a valid address")
	}
	if !emailRegex.MatchString(cfg.SupportEmail) {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "support email must be a valid address")
	}

	return &postmarkSender{
		client: postmark.NewClient(cfg.PostmarkServerToken, cfg.PostmarkAccountToken),
		cfg:    cfg,
	}, nil
}

// Send delivers the email through Postmark's transactional API. Reply-To is
// pinned to the support address so tenant replies reach a monitored inbox.
func (s *postmarkSender) Send(ctx context.Context, params SendParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:       s.cfg.SenderEmail,
		ReplyTo:    s.cfg.SupportEmail,
		To:         params.To,
		Subject:    params.Subject,
		Tag:        params.Tag,
		HTMLBody:   params.BodyHTML,
		TrackOpens: true,
		TrackLinks: "HtmlOnly",
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	if resp.ErrorCode > 0 {
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("postmark error %d: %s", resp.ErrorCode, resp.Message))
	}
	return nil
}
