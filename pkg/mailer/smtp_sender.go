package mailer

import (
	"fmt"
	"net/smtp"
	"strings"
)

// SMTPSender sends mail through an SMTP relay with STARTTLS and
// app-password authentication.
type SMTPSender struct {
	host     string
	port     int
	from     string
	password string
}

// SMTPConfig holds configuration for the SMTP sender
type SMTPConfig struct {
	Host     string
	Port     int
	From     string
	Password string
}

// NewSMTPSender creates a new SMTP sender
func NewSMTPSender(config SMTPConfig) *SMTPSender {
	return &SMTPSender{
		host:     config.Host,
		port:     config.Port,
		from:     config.From,
		password: config.Password,
	}
}

// Send delivers one plain-text message
func (s *SMTPSender) Send(to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient address is required")
	}

	var msg strings.Builder
	msg.WriteString("From: " + s.from + "\r\n")
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + subject + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	// smtp.SendMail negotiates STARTTLS when the server offers it
	if err := smtp.SendMail(addr, auth, s.from, []string{to}, []byte(msg.String())); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	return nil
}

// GetName returns the sender name
func (s *SMTPSender) GetName() string {
	return "smtp"
}
