package entity

import "time"

const (
	PaymentStatusInitialized int32 = 1
	PaymentStatusPending     int32 = 2
	PaymentStatusPaid        int32 = 10
	PaymentStatusFailed      int32 = 20
	PaymentStatusExpired     int32 = 30
)

type Payment struct {
	ID uint64

	Reference string

	CustomerName  string
	CustomerEmail string

	AmountKobo  int64
	Currency    string
	Description string

	Status int32

	ProviderTxRef *string
	CheckoutURL   *string

	AmountPaidKobo int64
	PaidOn         *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

func PaymentStatusTerminal(status int32) bool {
	switch status {
	case PaymentStatusPaid, PaymentStatusFailed, PaymentStatusExpired:
		return true
	default:
		return false
	}
}
