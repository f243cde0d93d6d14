package entity

import "time"

const (
	PayoutStatusSubmitted  int32 = 1
	PayoutStatusProcessing int32 = 2
	PayoutStatusCompleted  int32 = 10
	PayoutStatusFailed     int32 = 20
	PayoutStatusReversed   int32 = 30
)

type Payout struct {
	ID uint64

	Reference      string
	BatchReference *string

	Narration string

	DestinationBankCode      string
	DestinationAccountNumber string
	DestinationAccountName   string

	AmountKobo int64
	Currency   string

	Status int32

	CreatedAt time.Time
	UpdatedAt time.Time
}

func PayoutStatusTerminal(status int32) bool {
	switch status {
	case PayoutStatusCompleted, PayoutStatusFailed, PayoutStatusReversed:
		return true
	default:
		return false
	}
}
