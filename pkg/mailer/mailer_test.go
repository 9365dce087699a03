package mailer

import (
	"testing"

	"github.com/avilaworks/tenantry-backend/pkg/config"
	pkgerrors "github.com/avilaworks/tenantry-backend/pkg/errors"
)

func TestSendParamsValidate(t *testing.T) {
	valid := SendParams{
		To:       "tenant@example.com",
		Subject:  "Lease expiring soon",
		BodyHTML: "<p>Your lease ends in 30 days.</p>",
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid params, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*SendParams)
	}{
		{"missing recipient", func(p *SendParams) { p.To = "" }},
		{"malformed recipient", func(p *SendParams) { p.To = "not-an-email" }},
		{"missing subject", func(p *SendParams) { p.Subject = "  " }},
		{"missing body", func(p *SendParams) { p.BodyHTML = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := valid
			tc.mutate(&params)
			err := params.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if appErr := pkgerrors.As(err); appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation code, got %v", err)
			}
		})
	}
}

func TestNewPostmarkSenderConfig(t *testing.T) {
	base := config.NotifierConfig{
		PostmarkServerToken:  "server-token",
		PostmarkAccountToken: "account-token",
		SenderEmail:          "billing@tenantry.io",
		SupportEmail:         "support@tenantry.io",
	}

	if _, err := NewPostmarkSender(base); err != nil {
		t.Fatalf("expected sender, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*config.NotifierConfig)
	}{
		{"missing server token", func(c *config.NotifierConfig) { c.PostmarkServerToken = "" }},
		{"missing account token", func(c *config.NotifierConfig) { c.PostmarkAccountToken = "" }},
		{"bad sender email", func(c *config.NotifierConfig) { c.SenderEmail = "billing" }},
		{"bad support email", func(c *config.NotifierConfig) { c.SupportEmail = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			if _, err := NewPostmarkSender(cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}
