package mailer

import (
	"github.com/sirupsen/logrus"
)

// DevSender logs messages instead of delivering them. Used when SMTP is
// not configured so the verification flow stays testable locally.
type DevSender struct {
	logger *logrus.Logger
}

// NewDevSender creates a new dev sender
func NewDevSender(logger *logrus.Logger) *DevSender {
	return &DevSender{logger: logger}
}

// Send logs the message and reports success
func (s *DevSender) Send(to, subject, body string) error {
	s.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
		"body":    body,
	}).Info("Dev mailer: message not sent")
	return nil
}

// GetName returns the sender name
func (s *DevSender) GetName() string {
	return "dev"
}
