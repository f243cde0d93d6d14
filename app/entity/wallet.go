package entity

import "time"

type Wallet struct {
	ID uint64

	CustomerEmail string

	BalanceKobo int64

	CreatedAt time.Time
	UpdatedAt time.Time
}
