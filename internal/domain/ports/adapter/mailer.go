package adapter

import "context"

// Email is a plain-text message addressed to a single recipient.
type Email struct {
	To      string
	Subject string
	Body    string
}

// Mailer delivers or queues e-mails. Delivery retries are the implementation's concern.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}
