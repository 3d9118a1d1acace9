package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/embercart/embercart-backend/pkg/config"
	"github.com/embercart/embercart-backend/pkg/logger"
)

// Message is a single outbound transactional email.
type Message struct {
	ToEmail      string
	ToName       string
	Subject      string
	PlainContent string
	HTMLContent  string
}

// Sender delivers transactional email. Services depend on this interface so
// tests can swap in a fake.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendgridMailer delivers mail through the SendGrid v3 API.
type SendgridMailer struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
}

var errAPIKeyRequired = errors.New("sendgrid api key is required")

// NewSendgrid builds a SendGrid-backed mailer from config.
func NewSendgrid(ctx context.Context, cfg config.SendgridConfig, logg *logger.Logger) (*SendgridMailer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from email is required")
	}

	if logg != nil {
		logg.Info(ctx, "sendgrid mailer initialized")
	}

	return &SendgridMailer{
		client:    sendgrid.NewSendClient(apiKey),
		fromEmail: cfg.DefaultFrom,
		fromName:  cfg.FromName,
	}, nil
}

// Send delivers a single message. Non-2xx API responses are returned as errors.
func (m *SendgridMailer) Send(ctx context.Context, msg Message) error {
	if m == nil || m.client == nil {
		return errors.New("mailer not initialized")
	}
	if msg.ToEmail == "" {
		return errors.New("recipient email is required")
	}

	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	plain := msg.PlainContent
	if plain == "" {
		plain = msg.Subject
	}
	email := mail.NewSingleEmail(from, msg.Subject, to, plain, msg.HTMLContent)

	resp, err := m.client.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid send: unexpected status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
