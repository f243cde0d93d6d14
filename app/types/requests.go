package types

import (
	"errors"
	"io"
	"strings"

	"github.com/labstack/echo/v4"
)

type ProvisionAccountRequest struct {
	AccountReference string `json:"account_reference"`
	CustomerName     string `json:"customer_name"`
	CustomerEmail    string `json:"customer_email"`
	BVN              string `json:"bvn"`
}

func NewProvisionAccountRequestFromContext(ctx echo.Context) (*ProvisionAccountRequest, error) {
	var body ProvisionAccountRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.AccountReference = strings.TrimSpace(body.AccountReference)
	body.CustomerName = strings.TrimSpace(body.CustomerName)
	body.CustomerEmail = strings.ToLower(strings.TrimSpace(body.CustomerEmail))
	body.BVN = strings.TrimSpace(body.BVN)

	return &body, nil
}

func (r *ProvisionAccountRequest) Validate() error {
	if r.CustomerName == "" {
		return errors.New("customer_name is required")
	}
	if !looksLikeEmail(r.CustomerEmail) {
		return errors.New("customer_email is invalid")
	}
	return nil
}

type InitiatePaymentRequest struct {
	Reference     string `json:"reference"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	AmountKobo    int64  `json:"amount_kobo"`
	Description   string `json:"description"`
	RedirectURL   string `json:"redirect_url"`
}

func NewInitiatePaymentRequestFromContext(ctx echo.Context) (*InitiatePaymentRequest, error) {
	var body InitiatePaymentRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Reference = strings.TrimSpace(body.Reference)
	body.CustomerName = strings.TrimSpace(body.CustomerName)
	body.CustomerEmail = strings.ToLower(strings.TrimSpace(body.CustomerEmail))
	body.Description = strings.TrimSpace(body.Description)
	body.RedirectURL = strings.TrimSpace(body.RedirectURL)

	return &body, nil
}

func (r *InitiatePaymentRequest) Validate() error {
	if r.CustomerName == "" {
		return errors.New("customer_name is required")
	}
	if !looksLikeEmail(r.CustomerEmail) {
		return errors.New("customer_email is invalid")
	}
	if r.AmountKobo <= 0 {
		return errors.New("amount_kobo must be > 0")
	}
	return nil
}

type PayoutRequest struct {
	Reference                string `json:"reference"`
	Narration                string `json:"narration"`
	DestinationBankCode      string `json:"destination_bank_code"`
	DestinationAccountNumber string `json:"destination_account_number"`
	DestinationAccountName   string `json:"destination_account_name"`
	AmountKobo               int64  `json:"amount_kobo"`
	Currency                 string `json:"currency"`
}

func NewPayoutRequestFromContext(ctx echo.Context) (*PayoutRequest, error) {
	var body PayoutRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Reference = strings.TrimSpace(body.Reference)
	body.Narration = strings.TrimSpace(body.Narration)
	body.DestinationBankCode = strings.TrimSpace(body.DestinationBankCode)
	body.DestinationAccountNumber = strings.TrimSpace(body.DestinationAccountNumber)
	body.DestinationAccountName = strings.TrimSpace(body.DestinationAccountName)
	body.Currency = strings.ToUpper(strings.TrimSpace(body.Currency))

	return &body, nil
}

func (r *PayoutRequest) Validate() error {
	if r.DestinationBankCode == "" {
		return errors.New("destination_bank_code is required")
	}
	if len(r.DestinationAccountNumber) != 10 {
		return errors.New("destination_account_number must be 10 digits")
	}
	if r.DestinationAccountName == "" {
		return errors.New("destination_account_name is required")
	}
	if r.AmountKobo <= 0 {
		return errors.New("amount_kobo must be > 0")
	}
	if r.Currency != "" && len(r.Currency) != 3 {
		return errors.New("currency must be 3 letters")
	}
	return nil
}

type BulkPayoutRequest struct {
	Title string          `json:"title"`
	Items []PayoutRequest `json:"items"`
}

func NewBulkPayoutRequestFromContext(ctx echo.Context) (*BulkPayoutRequest, error) {
	var body BulkPayoutRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.Title = strings.TrimSpace(body.Title)
	for i := range body.Items {
		item := &body.Items[i]
		item.Reference = strings.TrimSpace(item.Reference)
		item.Narration = strings.TrimSpace(item.Narration)
		item.DestinationBankCode = strings.TrimSpace(item.DestinationBankCode)
		item.DestinationAccountNumber = strings.TrimSpace(item.DestinationAccountNumber)
		item.DestinationAccountName = strings.TrimSpace(item.DestinationAccountName)
		item.Currency = strings.ToUpper(strings.TrimSpace(item.Currency))
	}

	return &body, nil
}

func (r *BulkPayoutRequest) Validate() error {
	if r.Title == "" {
		return errors.New("title is required")
	}
	if len(r.Items) == 0 {
		return errors.New("items must not be empty")
	}
	for i := range r.Items {
		if err := r.Items[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

type PurchaseRequest struct {
	RequestID     string `json:"request_id"`
	CustomerEmail string `json:"customer_email"`
	ServiceID     string `json:"service_id"`
	AmountKobo    int64  `json:"amount_kobo"`
	Phone         string `json:"phone"`
	BillerCode    string `json:"biller_code"`
	VariationCode string `json:"variation_code"`
}

func NewPurchaseRequestFromContext(ctx echo.Context) (*PurchaseRequest, error) {
	var body PurchaseRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.RequestID = strings.TrimSpace(body.RequestID)
	if body.RequestID == "" {
		body.RequestID = strings.TrimSpace(ctx.Request().Header.Get(echo.HeaderXRequestID))
	}
	body.CustomerEmail = strings.ToLower(strings.TrimSpace(body.CustomerEmail))
	body.ServiceID = strings.ToLower(strings.TrimSpace(body.ServiceID))
	body.Phone = strings.TrimSpace(body.Phone)
	body.BillerCode = strings.TrimSpace(body.BillerCode)
	body.VariationCode = strings.TrimSpace(body.VariationCode)

	return &body, nil
}

func (r *PurchaseRequest) Validate() error {
	if !looksLikeEmail(r.CustomerEmail) {
		return errors.New("customer_email is invalid")
	}
	if r.ServiceID == "" {
		return errors.New("service_id is required")
	}
	if r.AmountKobo <= 0 {
		return errors.New("amount_kobo must be > 0")
	}
	if r.Phone == "" {
		return errors.New("phone is required")
	}
	return nil
}

type VerifyCustomerRequest struct {
	ServiceID  string `json:"service_id"`
	BillerCode string `json:"biller_code"`
}

func NewVerifyCustomerRequestFromContext(ctx echo.Context) (*VerifyCustomerRequest, error) {
	var body VerifyCustomerRequest
	if err := ctx.Bind(&body); err != nil {
		return nil, err
	}

	body.ServiceID = strings.ToLower(strings.TrimSpace(body.ServiceID))
	body.BillerCode = strings.TrimSpace(body.BillerCode)

	return &body, nil
}

func (r *VerifyCustomerRequest) Validate() error {
	if r.ServiceID == "" {
		return errors.New("service_id is required")
	}
	if r.BillerCode == "" {
		return errors.New("biller_code is required")
	}
	return nil
}

// WebhookRequest carries the raw settlement notification body alongside the
// decoded fields. The raw body is kept verbatim for the event ledger.
type WebhookRequest struct {
	TransactionReference string `json:"transactionReference"`
	PaymentReference     string `json:"paymentReference"`
	AmountPaid           string `json:"amountPaid"`
	PaidOn               string `json:"paidOn"`
	TransactionHash      string `json:"transactionHash"`

	RawBody string `json:"-"`
}

func NewWebhookRequestFromContext(ctx echo.Context) (*WebhookRequest, error) {
	rawBody, err := io.ReadAll(ctx.Request().Body)
	if err != nil {
		return nil, err
	}
	return DecodeWebhookBody(rawBody)
}

func (r *WebhookRequest) Validate() error {
	if strings.TrimSpace(r.TransactionReference) == "" {
		return errors.New("transactionReference is required")
	}
	if strings.TrimSpace(r.PaymentReference) == "" {
		return errors.New("paymentReference is required")
	}
	if strings.TrimSpace(r.AmountPaid) == "" {
		return errors.New("amountPaid is required")
	}
	if strings.TrimSpace(r.TransactionHash) == "" {
		return errors.New("transactionHash is required")
	}
	return nil
}

func looksLikeEmail(v string) bool {
	at := strings.Index(v, "@")
	return at > 0 && at < len(v)-1
}
