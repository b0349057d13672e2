package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
	"github.com/templui/gatekeeper/internal/markdown"
)

const (
	NotificationDue      = "due"
	NotificationDeadline = "deadline"
)

// Notification is a host-level nudge. Body is markdown.
type Notification struct {
	Kind    string
	Subject string
	Body    string
	GoalIDs []string
}

// Notifier is the optional hook to the host platform. Callers treat a
// missing or failing notifier as non-fatal.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log; used in development and when
// no delivery channel is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n Notification) error {
	slog.Info("notification (log mode)", "kind", n.Kind, "subject", n.Subject, "goal_ids", n.GoalIDs)
	return nil
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) error { return nil }

// EmailNotifier delivers notifications through Resend.
type EmailNotifier struct {
	client    *resend.Client
	fromEmail string
	toEmail   string
	md        *markdown.Parser
}

func NewEmailNotifier(apiKey, fromEmail, toEmail string) *EmailNotifier {
	return &EmailNotifier{
		client:    resend.NewClient(apiKey),
		fromEmail: fromEmail,
		toEmail:   toEmail,
		md:        markdown.NewParser(),
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, note Notification) error {
	html, err := n.md.Parse([]byte(note.Body))
	if err != nil {
		return fmt.Errorf("render notification: %w", err)
	}

	params := &resend.SendEmailRequest{
		From:    n.fromEmail,
		To:      []string{n.toEmail},
		Subject: note.Subject,
		Text:    note.Body,
		Html:    string(html),
	}

	_, err = n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return fmt.Errorf("send notification email: %w", err)
	}

	slog.Info("notification sent", "kind", note.Kind, "to", n.toEmail)
	return nil
}

// NewNotifier picks email delivery when configured, otherwise logging.
func NewNotifier(isDev bool, apiKey, fromEmail, toEmail string) Notifier {
	if isDev || apiKey == "" || toEmail == "" {
		return LogNotifier{}
	}
	return NewEmailNotifier(apiKey, fromEmail, toEmail)
}
