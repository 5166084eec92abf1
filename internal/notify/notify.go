// Package notify sends the result presenter's optional completion email.
// There is no maintained transactional-email SDK anywhere in the
// example pack to ground this on, so it is the one deliberate stdlib-only
// exception in the ambient stack (see DESIGN.md).
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/Sentimentron/sentropy"
)

// Notifier sends a single plain-text message to one recipient.
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

// SMTPNotifier sends mail through a plain SMTP relay named by
// Config.Notify.SMTPAddr, with no authentication. It assumes an internal
// relay, not a public mail provider.
type SMTPNotifier struct {
	Addr string
	From string
}

// NewSMTPNotifier builds an SMTPNotifier from Config.Notify.
func NewSMTPNotifier() *SMTPNotifier {
	return &SMTPNotifier{Addr: sentropy.Config.Notify.SMTPAddr, From: sentropy.Config.Notify.From}
}

// Send dials n.Addr and delivers one message. The context is not honored by
// net/smtp.SendMail directly; the dial itself is the only blocking step and
// SMTP relays in this deployment are same-datacenter, so a hung connection
// is not a concern this layer needs to guard against.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if n.Addr == "" {
		return fmt.Errorf("notify: smtp address not configured")
	}

	msg := buildMessage(n.From, to, subject, body)
	host, _, found := strings.Cut(n.Addr, ":")
	if !found {
		host = n.Addr
	}

	if err := smtp.SendMail(n.Addr, nil, n.From, []string{to}, msg); err != nil {
		return fmt.Errorf("notify: send to %s via %s: %w", to, host, err)
	}
	return nil
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
