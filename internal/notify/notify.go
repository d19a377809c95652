// Package notify holds the outbound notification sinks job handlers
// dispatch to. Sink failures surface as ordinary errors so the job retry
// path applies.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
)

// EmailSender delivers a single email.
type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPSender sends mail through a plain SMTP relay.
type SMTPSender struct {
	addr string
	from string
}

// NewSMTPSender creates an SMTPSender for the given relay address and
// envelope sender.
func NewSMTPSender(addr, from string) *SMTPSender {
	return &SMTPSender{
		addr: addr,
		from: from,
	}
}

// Send delivers one message. The context is consulted before dialing;
// net/smtp does not support mid-send cancellation.
func (s *SMTPSender) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := fmt.Appendf(nil, "From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", s.from, to, subject, body)
	if err := smtp.SendMail(s.addr, nil, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}
	return nil
}

// LogSender writes messages to the log instead of delivering them. It backs
// development environments without an SMTP relay.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the would-be delivery.
func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("email delivery (log sink)",
		"to", to,
		"subject", subject,
		"body_len", len(body))
	return nil
}
