package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ecas-notifier/pkg/ecas"
)

// Sender composes the status notification and delivers it through a
// provider. Exactly one message goes to exactly one recipient per run.
type Sender struct {
	provider Provider
	logger   *slog.Logger
	to       string
}

// New creates a sender for the given recipient.
func New(provider Provider, to string, logger *slog.Logger) *Sender {
	return &Sender{
		provider: provider,
		logger:   logger,
		to:       to,
	}
}

// SendReport composes and sends the notification for one run. There is no
// retry; a delivery failure is terminal for the run.
func (s *Sender) SendReport(ctx context.Context, report ecas.Report) error {
	subject := Subject(report)
	body := Body(report)

	s.logger.Info("Sending status notification",
		"to", s.to,
		"subject", subject,
		"changed", report.Changed)

	if err := s.provider.Send(ctx, s.to, subject, body); err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	return nil
}

// Subject builds the notification subject line. The marker emoji flags a
// status change since the previous run.
func Subject(report ecas.Report) string {
	subject := "eCAS: " + report.Status
	if report.Changed {
		subject += " 🆕"
	}
	return subject
}

// Body builds the plain-text notification body.
func Body(report ecas.Report) string {
	previous := report.Previous
	if previous == "" {
		previous = ecas.PreviousFirstRunText
	}
	changed := "NO"
	if report.Changed {
		changed = "YES"
	}

	lines := []string{
		fmt.Sprintf("Run time: %s", report.RunTime.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("Applicant: %s", report.Applicant),
		fmt.Sprintf("Current status: %s", report.Status),
		fmt.Sprintf("Previous status: %s", previous),
		fmt.Sprintf("Changed: %s", changed),
		"",
		"Case history:",
		report.History.Render(),
	}
	return strings.Join(lines, "\n")
}
