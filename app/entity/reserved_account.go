package entity

import "time"

// ReservedAccount maps one customer to the virtual account numbers issued by
// the bank-transfer provider. Immutable after creation; looked up by the
// account reference.
type ReservedAccount struct {
	ID uint64

	AccountReference string

	CustomerName  string
	CustomerEmail string
	BVN           *string

	CurrencyCode string

	Accounts []ReservedBankAccount

	CreatedAt time.Time
}

type ReservedBankAccount struct {
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}
