package mailer

// Sender defines the interface for outbound notification mail. Delivery is
// best effort: callers log failures and never surface them to end users.
type Sender interface {
	// Send delivers one plain-text message
	Send(to, subject, body string) error

	// GetName returns the name of the sender implementation
	GetName() string
}
