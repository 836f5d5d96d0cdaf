package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"
)

// Mailer delivers a single email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, recipient, subject, body string) error
}

// smtpTimeout caps a whole SMTP conversation when the caller's context
// carries no earlier deadline.
const smtpTimeout = 15 * time.Second

// SMTPMailer delivers mail through a plain SMTP relay.
type SMTPMailer struct {
	Host string
	Port string
	From string
}

// NewSMTPMailer returns a Mailer backed by the given SMTP relay.
func NewSMTPMailer(host, port, from string) *SMTPMailer {
	return &SMTPMailer{Host: host, Port: port, From: from}
}

func (m *SMTPMailer) Send(ctx context.Context, recipient, subject, body string) error {
	addr := fmt.Sprintf("%s:%s", m.Host, m.Port)

	deadline := time.Now().Add(smtpTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("smtp dial %s: %w", addr, err)
	}

	// One deadline covers every read and write of the session. A relay
	// that accepts the connection and then goes silent cannot hold the
	// dispatcher past it.
	if err := conn.SetDeadline(deadline); err != nil {
		conn.Close()
		return fmt.Errorf("smtp set deadline: %w", err)
	}

	client, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp greeting from %s: %w", addr, err)
	}
	defer client.Close()

	if err := client.Mail(m.From); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("smtp RCPT TO %s: %w", recipient, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.From)
	fmt.Fprintf(&msg, "To: %s\r\n", recipient)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if _, err := w.Write([]byte(msg.String())); err != nil {
		return fmt.Errorf("smtp write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close body: %w", err)
	}

	return client.Quit()
}

// LogMailer writes mail to the log instead of delivering it. Used in
// development when no SMTP relay is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, recipient, subject, body string) error {
	m.Logger.InfoContext(ctx, "mail delivery skipped (no SMTP relay configured)",
		slog.String("recipient", recipient),
		slog.String("subject", subject),
	)
	return nil
}
