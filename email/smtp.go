package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	mail "github.com/jordan-wright/email"
)

// implicitTLSPort is the SMTPS port; connections to it are TLS-wrapped from
// the first byte rather than upgraded via STARTTLS.
const implicitTLSPort = 465

// SMTPProvider sends mail over an authenticated SMTP connection. One
// connection is opened per message and closed on every exit path.
type SMTPProvider struct {
	logger   *slog.Logger
	host     string
	username string
	password string
	from     string
	port     int
}

// NewSMTPProvider creates an SMTP provider. username doubles as the sender
// address when from is empty.
func NewSMTPProvider(host string, port int, username, password, from string, logger *slog.Logger) *SMTPProvider {
	if from == "" {
		from = username
	}
	return &SMTPProvider{
		logger:   logger,
		host:     host,
		port:     port,
		username: username,
		password: password,
		from:     from,
	}
}

// Send delivers one plain-text message. The context deadline is not wired
// into the SMTP dial; delivery is bounded by the server's own timeouts.
func (p *SMTPProvider) Send(ctx context.Context, to, subject, textBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := mail.NewEmail()
	msg.From = p.from
	msg.To = []string{sanitizeHeader(to)}
	msg.Subject = sanitizeHeader(subject)
	msg.Text = []byte(textBody)

	addr := fmt.Sprintf("%s:%d", p.host, p.port)
	auth := smtp.PlainAuth("", p.username, p.password, p.host)

	p.logger.Info("SMTP send starting", "server", addr, "to", to, "subject", subject)
	startTime := time.Now()

	var err error
	if p.port == implicitTLSPort {
		err = msg.SendWithTLS(addr, auth, &tls.Config{ServerName: p.host, MinVersion: tls.VersionTLS12})
	} else {
		err = msg.Send(addr, auth)
	}
	duration := time.Since(startTime)

	if err != nil {
		p.logger.Error("SMTP send failed",
			"server", addr,
			"to", to,
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return fmt.Errorf("smtp send: %w", err)
	}

	p.logger.Info("SMTP send completed",
		"server", addr,
		"to", to,
		"duration_ms", duration.Milliseconds())
	return nil
}
