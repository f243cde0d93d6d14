package entity

import "time"

const (
	VTUOrderStatusSubmitted  int32 = 1
	VTUOrderStatusProcessing int32 = 2
	VTUOrderStatusDelivered  int32 = 10
	VTUOrderStatusFailed     int32 = 20
	VTUOrderStatusReversed   int32 = 30
)

type VTUOrder struct {
	ID uint64

	RequestID string

	CustomerEmail string

	ServiceID string
	Category  string

	AmountKobo    int64
	Phone         string
	BillerCode    string
	VariationCode *string

	Status         int32
	ProviderStatus *string

	RequeryAttempts int32

	CreatedAt time.Time
	UpdatedAt time.Time
}

func VTUOrderStatusTerminal(status int32) bool {
	switch status {
	case VTUOrderStatusDelivered, VTUOrderStatusFailed, VTUOrderStatusReversed:
		return true
	default:
		return false
	}
}
