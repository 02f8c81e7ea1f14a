package mail

import (
	"fmt"
	"net/smtp"
	"strings"
)

type Sender interface {
	Send(to []string, subject string, body string) error
}

// SMTPSender sends email via SMTP, with optional PLAIN auth when a username
// is configured.
type SMTPSender struct {
	addr     string
	host     string
	from     string
	username string
	password string
}

func NewSMTPSender(host, port, username, password string) *SMTPSender {
	host = strings.TrimSpace(host)
	port = strings.TrimSpace(port)
	from := strings.TrimSpace(username)
	if from == "" {
		from = "no-reply@bookmydoct.local"
	}
	return &SMTPSender{
		addr:     fmt.Sprintf("%s:%s", host, port),
		host:     host,
		from:     from,
		username: username,
		password: password,
	}
}

func (s *SMTPSender) Send(to []string, subject string, body string) error {
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}
	msg := buildMessage(s.from, to, subject, body)
	return smtp.SendMail(s.addr, auth, s.from, to, []byte(msg))
}

func buildMessage(from string, to []string, subject, body string) string {
	// Minimal RFC 5322 message; enough for most SMTP relays.
	return fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		from,
		strings.Join(to, ", "),
		subject,
		body,
	)
}
