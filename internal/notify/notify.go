// Package notify sends alert emails over authenticated SMTP. Failures here
// are never fatal to the poller; callers log and move on.
package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/airliecassidy/emaildownloader/internal/config"
)

// sendMail is swapped out in tests.
var sendMail = smtp.SendMail

type Mailer struct {
	cfg *config.Config
}

func New(cfg *config.Config) *Mailer {
	return &Mailer{cfg: cfg}
}

// MissingReport alerts that the weekly email from sender did not arrive on
// target. Fires once per triggering cycle; repeated alerts across cycles
// are expected until the email shows up.
func (m *Mailer) MissingReport(sender string, target time.Time) error {
	subject := "Expected weekly email not received"
	body := fmt.Sprintf(
		"No email from %s was found for the expected delivery date %s.\r\n"+
			"The download folder has not been updated for this week.\r\n",
		sender, target.Format("Monday, 2 January 2006"))
	return m.send(subject, body)
}

// SystemError reports an unexpected failure inside a poll cycle.
func (m *Mailer) SystemError(cause error) error {
	subject := "Email downloader error"
	body := fmt.Sprintf("The email downloader hit an unexpected error and will retry after a cooldown:\r\n\r\n%v\r\n", cause)
	return m.send(subject, body)
}

func (m *Mailer) send(subject, body string) error {
	if m.cfg.NotificationEmail == "" {
		return fmt.Errorf("notification_email is not configured")
	}

	from := m.cfg.SMTPUsername
	to := m.cfg.NotificationEmail

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	auth := sasl.NewPlainClient("", m.cfg.SMTPUsername, m.cfg.SMTPPassword)
	if err := sendMail(m.cfg.SMTPAddr(), auth, from, []string{to}, strings.NewReader(msg.String())); err != nil {
		return fmt.Errorf("failed to send notification to %s: %w", to, err)
	}
	return nil
}
