package entity

import "time"

// WebhookEvent is one applied settlement notification. The transaction
// reference is unique in storage, which is what makes reconciliation
// idempotent under concurrent duplicate deliveries.
type WebhookEvent struct {
	ID uint64

	TransactionReference string
	PaymentReference     string

	// AmountPaid and PaidOn are kept verbatim from the notification; the
	// signature is computed over the raw strings.
	AmountPaid string
	PaidOn     string

	PayloadJSON string

	AppliedAt time.Time
}
