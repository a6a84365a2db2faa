package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPMailer delivers mail through a plain SMTP relay, e.g. Mailpit in
// development.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer constructs a mailer for the given host, port, and sender.
func NewSMTPMailer(host string, port int, from string) *SMTPMailer {
	return &SMTPMailer{
		addr: fmt.Sprintf("%s:%d", host, port),
		from: from,
	}
}

// Send delivers a single plain-text message.
func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)

	if err := smtp.SendMail(m.addr, nil, m.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("notify: send mail: %w", err)
	}
	return nil
}
