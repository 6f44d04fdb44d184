package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// EmailChannel delivers alerts over SMTP with PLAIN auth.
type EmailChannel struct {
	Addr     string // host:port
	Username string
	Password string
	From     string
	To       []string
}

// NewEmailChannel creates an SMTP notification channel.
func NewEmailChannel(host string, port int, username, password, from string, to []string) *EmailChannel {
	return &EmailChannel{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Username: username,
		Password: password,
		From:     from,
		To:       to,
	}
}

func (e *EmailChannel) Type() string {
	return "email"
}

// Send delivers the alert, honoring ctx cancellation even though the SMTP
// client itself has no context support.
func (e *EmailChannel) Send(ctx context.Context, alert *Alert) error {
	msg := e.render(alert)

	done := make(chan error, 1)
	go func() {
		var auth sasl.Client
		if e.Username != "" {
			auth = sasl.NewPlainClient("", e.Username, e.Password)
		}
		done <- smtp.SendMail(e.Addr, auth, e.From, e.To, strings.NewReader(msg))
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send mail: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *EmailChannel) render(alert *Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.To, ", "))
	fmt.Fprintf(&b, "Subject: [Sentra] %s %s from %s\r\n", alert.Decision, alert.AttackType, alert.SourceIP)
	fmt.Fprintf(&b, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")

	fmt.Fprintf(&b, "Security alert from the Sentra SOC pipeline.\r\n\r\n")
	fmt.Fprintf(&b, "Event ID:           %s\r\n", alert.EventID)
	fmt.Fprintf(&b, "Source IP:          %s\r\n", alert.SourceIP)
	if alert.DestIP != "" {
		fmt.Fprintf(&b, "Destination IP:     %s\r\n", alert.DestIP)
	}
	fmt.Fprintf(&b, "Attack type:        %s\r\n", alert.AttackType)
	fmt.Fprintf(&b, "Risk score:         %.1f\r\n", alert.RiskScore)
	fmt.Fprintf(&b, "Access decision:    %s\r\n", alert.Decision)
	fmt.Fprintf(&b, "Automated response: %s\r\n", alert.Response)
	fmt.Fprintf(&b, "Occurrences:        %d\r\n", alert.Occurrence)
	if alert.Rationale != "" {
		fmt.Fprintf(&b, "\r\n%s\r\n", alert.Rationale)
	}

	return b.String()
}
