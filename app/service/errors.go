package service

import "errors"

var (
	ErrInvalidRequest          = errors.New("invalid request")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrReservedAccountNotFound = errors.New("reserved account not found")
	ErrPayoutNotFound          = errors.New("payout not found")
	ErrOrderNotFound           = errors.New("order not found")
	ErrUnknownService          = errors.New("unknown service id")
	ErrDuplicateReference      = errors.New("reference already used")
	ErrInsufficientFunds       = errors.New("insufficient wallet balance")
	ErrSignatureMismatch       = errors.New("webhook signature mismatch")

	// ErrReconcileInProgress means another delivery of the same settlement
	// event holds the idempotency claim but has not committed yet. The
	// delivery must be retried, not acknowledged.
	ErrReconcileInProgress = errors.New("settlement reconciliation in progress")

	// ErrIndeterminate means the requery budget ran out while the upstream
	// status was still non-terminal. The operation is still processing, not
	// failed.
	ErrIndeterminate = errors.New("status still processing after requery attempts")
)
