package types

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type BankAccount struct {
	BankCode      string `json:"bank_code"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
}

type ReservedAccount struct {
	AccountReference string        `json:"account_reference"`
	CustomerName     string        `json:"customer_name"`
	CustomerEmail    string        `json:"customer_email"`
	CurrencyCode     string        `json:"currency_code"`
	Accounts         []BankAccount `json:"accounts"`
	CreatedAt        string        `json:"created_at"`
}

type ReservedAccountEnvelopeResponse struct {
	Account *ReservedAccount `json:"account"`
}

type Payment struct {
	Reference      string `json:"reference"`
	CustomerName   string `json:"customer_name"`
	CustomerEmail  string `json:"customer_email"`
	AmountKobo     int64  `json:"amount_kobo"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	Status         int32  `json:"status"`
	ProviderTxRef  string `json:"provider_tx_ref,omitempty"`
	CheckoutURL    string `json:"checkout_url,omitempty"`
	AmountPaidKobo int64  `json:"amount_paid_kobo"`
	PaidOn         string `json:"paid_on,omitempty"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

type PaymentEnvelopeResponse struct {
	Payment *Payment `json:"payment"`
}

type Payout struct {
	Reference                string `json:"reference"`
	BatchReference           string `json:"batch_reference,omitempty"`
	Narration                string `json:"narration"`
	DestinationBankCode      string `json:"destination_bank_code"`
	DestinationAccountNumber string `json:"destination_account_number"`
	DestinationAccountName   string `json:"destination_account_name"`
	AmountKobo               int64  `json:"amount_kobo"`
	Currency                 string `json:"currency"`
	Status                   int32  `json:"status"`
	CreatedAt                string `json:"created_at"`
	UpdatedAt                string `json:"updated_at"`
}

type PayoutEnvelopeResponse struct {
	Payout *Payout `json:"payout"`
}

type BulkPayoutResponse struct {
	BatchReference string    `json:"batch_reference"`
	Payouts        []*Payout `json:"payouts"`
}

type VTUOrder struct {
	RequestID       string `json:"request_id"`
	CustomerEmail   string `json:"customer_email"`
	ServiceID       string `json:"service_id"`
	Category        string `json:"category"`
	AmountKobo      int64  `json:"amount_kobo"`
	Phone           string `json:"phone"`
	BillerCode      string `json:"biller_code,omitempty"`
	VariationCode   string `json:"variation_code,omitempty"`
	Status          int32  `json:"status"`
	ProviderStatus  string `json:"provider_status,omitempty"`
	RequeryAttempts int32  `json:"requery_attempts"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

type VTUOrderEnvelopeResponse struct {
	Order *VTUOrder `json:"order"`
}

type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

type ListBanksResponse struct {
	Banks []Bank `json:"banks"`
}

type Variation struct {
	Code   string `json:"variation_code"`
	Name   string `json:"name"`
	Amount string `json:"variation_amount"`
}

type VariationsResponse struct {
	ServiceName string      `json:"service_name"`
	Variations  []Variation `json:"variations"`
}

type VerifyCustomerResponse struct {
	CustomerName string `json:"customer_name"`
	Address      string `json:"address,omitempty"`
}

type Wallet struct {
	CustomerEmail string `json:"customer_email"`
	BalanceKobo   int64  `json:"balance_kobo"`
}

type WalletEnvelopeResponse struct {
	Wallet *Wallet `json:"wallet"`
}

type ProviderBalanceResponse struct {
	AvailableKobo int64 `json:"available_kobo"`
	LedgerKobo    int64 `json:"ledger_kobo"`
}

type VTUBalanceResponse struct {
	BalanceKobo int64 `json:"balance_kobo"`
}
