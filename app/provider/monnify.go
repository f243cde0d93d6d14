package provider

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

const monnifyName = "monnify"

// Reserved accounts are opened at WEMA and Sterling unless the provider is
// asked for all available banks.
var monnifyPreferredBanks = []string{"035", "232"}

type MonnifyConfig struct {
	BaseURL      string
	APIKey       string
	SecretKey    string
	ContractCode string
	HTTPTimeout  time.Duration
}

// MonnifyClient speaks the bank-transfer provider's wire protocol: HTTP
// Basic for the token exchange, Bearer afterwards, and a uniform
// {responseCode, responseBody, responseMessage} envelope where "0" is the
// only success code. The envelope is decoded here and never escapes.
type MonnifyClient struct {
	cfg  MonnifyConfig
	http *breakerClient

	// session guards the bearer token. Refresh happens inside the lock so
	// concurrent callers with an expired token trigger exactly one
	// authenticate call.
	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time

	now func() time.Time
}

func NewMonnifyClient(cfg MonnifyConfig) *MonnifyClient {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &MonnifyClient{
		cfg:  cfg,
		http: newBreakerClient(monnifyName, cfg.HTTPTimeout),
		now:  time.Now,
	}
}

type monnifyEnvelope struct {
	RequestSuccessful bool            `json:"requestSuccessful"`
	ResponseCode      string          `json:"responseCode"`
	ResponseMessage   string          `json:"responseMessage"`
	ResponseBody      json.RawMessage `json:"responseBody"`
}

func (c *MonnifyClient) authenticateLocked(ctx context.Context) error {
	credentials := base64.StdEncoding.EncodeToString([]byte(c.cfg.APIKey + ":" + c.cfg.SecretKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/api/v1/auth/login", bytes.NewReader([]byte("{}")))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Basic "+credentials)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &AuthError{Provider: monnifyName, Message: translateTransportError(monnifyName, err).Error()}
	}
	defer resp.Body.Close()

	var envelope monnifyEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return &AuthError{Provider: monnifyName, Message: "malformed auth response"}
	}
	if envelope.ResponseCode != "0" {
		return &AuthError{Provider: monnifyName, Message: envelope.ResponseMessage}
	}

	var body struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"`
	}
	if err := json.Unmarshal(envelope.ResponseBody, &body); err != nil || body.AccessToken == "" {
		return &AuthError{Provider: monnifyName, Message: "auth response missing access token"}
	}

	c.accessToken = body.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return nil
}

// ensureAuthenticated returns a usable bearer token, exchanging credentials
// first when none exists or the stored one has expired. There is no
// background refresh; this runs on the calling request's critical path.
func (c *MonnifyClient) ensureAuthenticated(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && c.now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}
	if err := c.authenticateLocked(ctx); err != nil {
		return "", err
	}
	return c.accessToken, nil
}

func (c *MonnifyClient) request(ctx context.Context, method, path string, payload interface{}) (json.RawMessage, error) {
	token, err := c.ensureAuthenticated(ctx)
	if err != nil {
		return nil, err
	}

	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, translateTransportError(monnifyName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, translateTransportError(monnifyName, err)
	}

	var envelope monnifyEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%s: malformed response: status=%d", monnifyName, resp.StatusCode)
	}
	if envelope.ResponseCode != "0" {
		if isDuplicateReferenceMessage(envelope.ResponseMessage) {
			return nil, fmt.Errorf("%s: %s: %w", monnifyName, envelope.ResponseMessage, ErrDuplicateReference)
		}
		return nil, &ProviderError{Provider: monnifyName, Message: envelope.ResponseMessage}
	}

	return envelope.ResponseBody, nil
}

type ReservedAccountInput struct {
	AccountReference string
	CustomerName     string
	CustomerEmail    string
	BVN              *string
	CurrencyCode     string
}

type ReservedAccountOutput struct {
	AccountReference string
	CustomerEmail    string
	Accounts         []entity.ReservedBankAccount
}

func (c *MonnifyClient) CreateReservedAccount(ctx context.Context, input ReservedAccountInput) (*ReservedAccountOutput, error) {
	currency := input.CurrencyCode
	if currency == "" {
		currency = "NGN"
	}

	payload := map[string]interface{}{
		"accountReference":     input.AccountReference,
		"accountName":          input.CustomerName,
		"currencyCode":         currency,
		"contractCode":         c.cfg.ContractCode,
		"customerEmail":        input.CustomerEmail,
		"customerName":         input.CustomerName,
		"getAllAvailableBanks": false,
		"preferredBanks":       monnifyPreferredBanks,
	}
	if input.BVN != nil && strings.TrimSpace(*input.BVN) != "" {
		payload["bvn"] = strings.TrimSpace(*input.BVN)
	}

	body, err := c.request(ctx, http.MethodPost, "/api/v2/bank-transfer/reserved-accounts", payload)
	if err != nil {
		return nil, err
	}
	return parseReservedAccount(body)
}

func (c *MonnifyClient) GetReservedAccount(ctx context.Context, accountReference string) (*ReservedAccountOutput, error) {
	body, err := c.request(ctx, http.MethodGet, "/api/v2/bank-transfer/reserved-accounts/"+url.PathEscape(accountReference), nil)
	if err != nil {
		return nil, err
	}
	return parseReservedAccount(body)
}

func parseReservedAccount(body json.RawMessage) (*ReservedAccountOutput, error) {
	var parsed struct {
		AccountReference string `json:"accountReference"`
		CustomerEmail    string `json:"customerEmail"`
		AccountNumber    string `json:"accountNumber"`
		AccountName      string `json:"accountName"`
		BankCode         string `json:"bankCode"`
		BankName         string `json:"bankName"`
		Accounts         []struct {
			BankCode      string `json:"bankCode"`
			BankName      string `json:"bankName"`
			AccountNumber string `json:"accountNumber"`
		} `json:"accounts"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed reserved account response", monnifyName)
	}

	output := &ReservedAccountOutput{
		AccountReference: parsed.AccountReference,
		CustomerEmail:    parsed.CustomerEmail,
	}
	for _, account := range parsed.Accounts {
		output.Accounts = append(output.Accounts, entity.ReservedBankAccount{
			BankCode:      account.BankCode,
			BankName:      account.BankName,
			AccountNumber: account.AccountNumber,
		})
	}
	// Older envelopes carry a single flat account instead of a list.
	if len(output.Accounts) == 0 && parsed.AccountNumber != "" {
		output.Accounts = append(output.Accounts, entity.ReservedBankAccount{
			BankCode:      parsed.BankCode,
			BankName:      parsed.BankName,
			AccountNumber: parsed.AccountNumber,
		})
	}

	return output, nil
}

type InitPaymentInput struct {
	AmountKobo       int64
	CustomerName     string
	CustomerEmail    string
	PaymentReference string
	Description      string
	RedirectURL      string
}

type InitPaymentOutput struct {
	TransactionReference string
	CheckoutURL          string
}

func (c *MonnifyClient) InitializePayment(ctx context.Context, input InitPaymentInput) (*InitPaymentOutput, error) {
	payload := map[string]interface{}{
		"amount":             koboToNaira(input.AmountKobo),
		"customerName":       input.CustomerName,
		"customerEmail":      input.CustomerEmail,
		"paymentReference":   input.PaymentReference,
		"paymentDescription": input.Description,
		"currencyCode":       "NGN",
		"contractCode":       c.cfg.ContractCode,
		"redirectUrl":        input.RedirectURL,
		"paymentMethods":     []string{"CARD", "ACCOUNT_TRANSFER"},
	}

	body, err := c.request(ctx, http.MethodPost, "/api/v1/merchant/transactions/init-transaction", payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		TransactionReference string `json:"transactionReference"`
		CheckoutURL          string `json:"checkoutUrl"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed init-transaction response", monnifyName)
	}

	return &InitPaymentOutput{
		TransactionReference: parsed.TransactionReference,
		CheckoutURL:          parsed.CheckoutURL,
	}, nil
}

type TransactionStatus struct {
	Status         int32
	ProviderStatus string
	AmountPaidKobo int64
	PaidOn         string
}

func (c *MonnifyClient) VerifyTransaction(ctx context.Context, transactionReference string) (*TransactionStatus, error) {
	body, err := c.request(ctx, http.MethodGet, "/api/v2/transactions/"+url.PathEscape(transactionReference), nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		PaymentStatus string  `json:"paymentStatus"`
		AmountPaid    float64 `json:"amountPaid"`
		CompletedOn   string  `json:"completedOn"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed transaction response", monnifyName)
	}

	return &TransactionStatus{
		Status:         mapMonnifyPaymentStatus(parsed.PaymentStatus),
		ProviderStatus: parsed.PaymentStatus,
		AmountPaidKobo: nairaToKobo(parsed.AmountPaid),
		PaidOn:         parsed.CompletedOn,
	}, nil
}

func mapMonnifyPaymentStatus(providerStatus string) int32 {
	switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
	case "PAID", "OVERPAID", "PARTIALLY_PAID":
		return entity.PaymentStatusPaid
	case "PENDING":
		return entity.PaymentStatusPending
	case "EXPIRED":
		return entity.PaymentStatusExpired
	case "FAILED", "CANCELLED", "ABANDONED":
		return entity.PaymentStatusFailed
	default:
		return 0
	}
}

func (c *MonnifyClient) ListTransactions(ctx context.Context, page, size int) (json.RawMessage, error) {
	path := fmt.Sprintf("/api/v1/merchant/transactions/search?accountNumber=&page=%d&size=%d", page, size)
	return c.request(ctx, http.MethodGet, path, nil)
}

type Bank struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

func (c *MonnifyClient) ListBanks(ctx context.Context) ([]Bank, error) {
	body, err := c.request(ctx, http.MethodGet, "/api/v1/banks", nil)
	if err != nil {
		return nil, err
	}

	var banks []Bank
	if err := json.Unmarshal(body, &banks); err != nil {
		return nil, fmt.Errorf("%s: malformed banks response", monnifyName)
	}
	return banks, nil
}

type PayoutInput struct {
	Reference                string
	Narration                string
	DestinationBankCode      string
	DestinationAccountNumber string
	DestinationAccountName   string
	AmountKobo               int64
	Currency                 string
}

type PayoutOutput struct {
	Reference      string
	Status         int32
	ProviderStatus string
}

func (c *MonnifyClient) SinglePayout(ctx context.Context, input PayoutInput) (*PayoutOutput, error) {
	currency := input.Currency
	if currency == "" {
		currency = "NGN"
	}

	payload := map[string]interface{}{
		"amount":                   koboToNaira(input.AmountKobo),
		"reference":                input.Reference,
		"narration":                input.Narration,
		"destinationBankCode":      input.DestinationBankCode,
		"destinationAccountNumber": input.DestinationAccountNumber,
		"destinationAccountName":   input.DestinationAccountName,
		"currency":                 currency,
		"sourceAccountNumber":      "",
	}

	body, err := c.request(ctx, http.MethodPost, "/api/v2/disbursements/single", payload)
	if err != nil {
		return nil, err
	}
	return parsePayout(body, input.Reference)
}

type BulkPayoutOutput struct {
	BatchReference string
	ItemReferences []string
	Status         int32
	ProviderStatus string
}

// BulkPayout submits a disbursement batch. The provider requires a batch
// reference and a per-item reference; both are generated when the caller
// leaves them empty, and item currency defaults to NGN.
func (c *MonnifyClient) BulkPayout(ctx context.Context, title string, items []PayoutInput) (*BulkPayoutOutput, error) {
	batchReference := uuid.NewString()

	payoutItems := make([]map[string]interface{}, 0, len(items))
	itemReferences := make([]string, 0, len(items))
	for _, item := range items {
		reference := item.Reference
		if reference == "" {
			reference = uuid.NewString()
		}
		currency := item.Currency
		if currency == "" {
			currency = "NGN"
		}
		itemReferences = append(itemReferences, reference)
		payoutItems = append(payoutItems, map[string]interface{}{
			"amount":                   koboToNaira(item.AmountKobo),
			"reference":                reference,
			"narration":                item.Narration,
			"destinationBankCode":      item.DestinationBankCode,
			"destinationAccountNumber": item.DestinationAccountNumber,
			"destinationAccountName":   item.DestinationAccountName,
			"currency":                 currency,
		})
	}

	payload := map[string]interface{}{
		"title":          title,
		"batchReference": batchReference,
		"payoutItems":    payoutItems,
	}

	body, err := c.request(ctx, http.MethodPost, "/api/v1/disbursements/batch", payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		BatchReference string `json:"batchReference"`
		BatchStatus    string `json:"batchStatus"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed batch disbursement response", monnifyName)
	}
	if parsed.BatchReference == "" {
		parsed.BatchReference = batchReference
	}

	return &BulkPayoutOutput{
		BatchReference: parsed.BatchReference,
		ItemReferences: itemReferences,
		Status:         mapMonnifyPayoutStatus(parsed.BatchStatus),
		ProviderStatus: parsed.BatchStatus,
	}, nil
}

func (c *MonnifyClient) PayoutStatus(ctx context.Context, reference string) (*PayoutOutput, error) {
	body, err := c.request(ctx, http.MethodGet, "/api/v1/disbursements/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}
	return parsePayout(body, reference)
}

func parsePayout(body json.RawMessage, fallbackReference string) (*PayoutOutput, error) {
	var parsed struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed disbursement response", monnifyName)
	}
	if parsed.Reference == "" {
		parsed.Reference = fallbackReference
	}

	return &PayoutOutput{
		Reference:      parsed.Reference,
		Status:         mapMonnifyPayoutStatus(parsed.Status),
		ProviderStatus: parsed.Status,
	}, nil
}

func mapMonnifyPayoutStatus(providerStatus string) int32 {
	switch strings.ToUpper(strings.TrimSpace(providerStatus)) {
	case "SUCCESS", "COMPLETED", "SUCCESSFUL":
		return entity.PayoutStatusCompleted
	case "PENDING", "AWAITING_PROCESSING", "IN_PROGRESS", "PROCESSING":
		return entity.PayoutStatusProcessing
	case "FAILED", "REJECTED", "EXPIRED":
		return entity.PayoutStatusFailed
	case "REVERSED":
		return entity.PayoutStatusReversed
	default:
		return entity.PayoutStatusSubmitted
	}
}

type WalletBalance struct {
	AvailableKobo int64
	LedgerKobo    int64
}

func (c *MonnifyClient) WalletBalance(ctx context.Context) (*WalletBalance, error) {
	body, err := c.request(ctx, http.MethodGet, "/api/v1/bank-transfer/wallet-balance", nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		AvailableBalance float64 `json:"availableBalance"`
		LedgerBalance    float64 `json:"ledgerBalance"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed wallet balance response", monnifyName)
	}

	return &WalletBalance{
		AvailableKobo: nairaToKobo(parsed.AvailableBalance),
		LedgerKobo:    nairaToKobo(parsed.LedgerBalance),
	}, nil
}

// WebhookPayload is the settlement notification shape pushed by the
// provider. AmountPaid and PaidOn stay raw strings: the signature is
// computed over them verbatim.
type WebhookPayload struct {
	TransactionReference string `json:"transactionReference"`
	PaymentReference     string `json:"paymentReference"`
	AmountPaid           string `json:"amountPaid"`
	PaidOn               string `json:"paidOn"`
	TransactionHash      string `json:"transactionHash"`
}

// ComputeWebhookHash is SHA-512 over the pipe-joined fields in this exact
// order. The ordering is part of the provider's wire contract.
func ComputeWebhookHash(secret, transactionReference, amountPaid, paidOn, paymentReference string) string {
	joined := strings.Join([]string{secret, transactionReference, amountPaid, paidOn, paymentReference}, "|")
	digest := sha512.Sum512([]byte(joined))
	return hex.EncodeToString(digest[:])
}

// VerifyWebhookSignature recomputes the hash and compares it against the
// supplied one in constant time. A malformed supplied hash fails closed.
func VerifyWebhookSignature(secret string, payload WebhookPayload) bool {
	supplied, err := hex.DecodeString(strings.TrimSpace(payload.TransactionHash))
	if err != nil {
		return false
	}

	joined := strings.Join([]string{
		secret,
		payload.TransactionReference,
		payload.AmountPaid,
		payload.PaidOn,
		payload.PaymentReference,
	}, "|")
	expected := sha512.Sum512([]byte(joined))

	return hmac.Equal(supplied, expected[:])
}

// ParseWebhookAmount converts the notification's decimal naira amount to
// kobo.
func ParseWebhookAmount(amountPaid string) (int64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(amountPaid), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amountPaid %q: %w", amountPaid, err)
	}
	return nairaToKobo(amount), nil
}

func koboToNaira(kobo int64) float64 {
	return float64(kobo) / 100
}

func nairaToKobo(naira float64) int64 {
	return int64(math.Round(naira * 100))
}
