// Package mail sends account verification emails over SMTP.
package mail

import (
	"fmt"
	"log"
	"net/smtp"
	"strings"
)

// Mailer delivers HTML mail through a single SMTP account. Sends are
// fire-and-forget: signup must never block on the mail server.
type Mailer struct {
	host    string
	port    int
	user    string
	pass    string
	sender  string
	enabled bool
}

// NewMailer configures the mailer. When enabled is false every send is
// logged and dropped, which keeps local development working without SMTP
// credentials.
func NewMailer(host string, port int, user, pass, sender string, enabled bool) *Mailer {
	return &Mailer{host: host, port: port, user: user, pass: pass, sender: sender, enabled: enabled}
}

// SendAsync queues the message on a goroutine. Failures are logged, never
// returned: the caller has already committed the signup.
func (m *Mailer) SendAsync(to, subject, htmlBody string) {
	go func() {
		if err := m.send(to, subject, htmlBody); err != nil {
			log.Printf("ERROR [Mailer] Failed to send %q to %s: %v", subject, to, err)
			return
		}
		log.Printf("[Mailer] Sent %q to %s", subject, to)
	}()
}

func (m *Mailer) send(to, subject, htmlBody string) error {
	if !m.enabled {
		log.Printf("[Mailer] Mail disabled; dropping %q to %s", subject, to)
		return nil
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.sender)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	auth := smtp.PlainAuth("", m.user, m.pass, m.host)
	return smtp.SendMail(addr, auth, m.sender, []string{to}, []byte(msg.String()))
}

// VerificationEmail renders the account confirmation message.
func VerificationEmail(name, confirmURL string) (subject, body string) {
	subject = "Verify your Sofia AI Account"
	body = fmt.Sprintf(`
		<h2>Welcome to Sofia AI, %s!</h2>
		<p>Please click the link below to verify your email address:</p>
		<p><a href="%s" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Verify Email</a></p>
		<p>Or copy this link: %s</p>
		<br>
		<p>If you did not create this account, please ignore this email.</p>`,
		name, confirmURL, confirmURL)
	return subject, body
}
