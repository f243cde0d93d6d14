package provider

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

const vtpassName = "vtpass"

type VTPassConfig struct {
	BaseURL     string
	Username    string
	APIKey      string
	PublicKey   string
	SecretKey   string
	HTTPTimeout time.Duration
}

// VTPassClient speaks the value-added-services provider's protocol. Every
// call carries three static keys plus a fresh request ID and a SHA-256
// signature over username+apiKey+requestId, concatenated without
// separators. There is no uniform response envelope; each endpoint's body is
// inspected on its own.
type VTPassClient struct {
	cfg  VTPassConfig
	http *breakerClient

	newRequestID func() string
}

func NewVTPassClient(cfg VTPassConfig) *VTPassClient {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	return &VTPassClient{
		cfg:          cfg,
		http:         newBreakerClient(vtpassName, cfg.HTTPTimeout),
		newRequestID: uuid.NewString,
	}
}

// signRequest hashes username, API key, and request ID in that order with no
// separator. Order and concatenation are part of the wire contract.
func (c *VTPassClient) signRequest(requestID string) string {
	digest := sha256.Sum256([]byte(c.cfg.Username + c.cfg.APIKey + requestID))
	return hex.EncodeToString(digest[:])
}

func (c *VTPassClient) request(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	requestID := c.newRequestID()
	signature := c.signRequest(requestID)

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
	req.Header.Set("api-key", c.cfg.APIKey)
	req.Header.Set("public-key", c.cfg.PublicKey)
	req.Header.Set("secret-key", c.cfg.SecretKey)
	req.Header.Set("request-id", requestID)
	req.Header.Set("signature", signature)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, translateTransportError(vtpassName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, translateTransportError(vtpassName, err)
	}
	if resp.StatusCode >= 500 {
		return nil, &ProviderError{Provider: vtpassName, Message: fmt.Sprintf("upstream error: status=%d", resp.StatusCode)}
	}

	return raw, nil
}

type Variation struct {
	Code   string
	Name   string
	Amount string
}

type VariationsOutput struct {
	ServiceName string
	Variations  []Variation
}

func (c *VTPassClient) GetServiceVariations(ctx context.Context, serviceID string) (*VariationsOutput, error) {
	raw, err := c.request(ctx, http.MethodGet, "/service-variations?serviceID="+url.QueryEscape(serviceID), nil)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		ResponseDescription string `json:"response_description"`
		Content             struct {
			ServiceName string `json:"ServiceName"`
			Variations  []struct {
				VariationCode   string `json:"variation_code"`
				Name            string `json:"name"`
				VariationAmount string `json:"variation_amount"`
			} `json:"variations"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed variations response", vtpassName)
	}
	if len(parsed.Content.Variations) == 0 {
		return nil, &ProviderError{Provider: vtpassName, Message: nonEmptyMessage(parsed.ResponseDescription, "no variations for service "+serviceID)}
	}

	output := &VariationsOutput{ServiceName: parsed.Content.ServiceName}
	for _, variation := range parsed.Content.Variations {
		output.Variations = append(output.Variations, Variation{
			Code:   variation.VariationCode,
			Name:   variation.Name,
			Amount: variation.VariationAmount,
		})
	}
	return output, nil
}

type VerifyCustomerOutput struct {
	CustomerName string
	Address      string
	Raw          json.RawMessage
}

// VerifyCustomer checks meter/smart-card ownership before payment. Advisory
// only: a successful verify does not guarantee the purchase succeeds.
func (c *VTPassClient) VerifyCustomer(ctx context.Context, serviceID, billersCode string) (*VerifyCustomerOutput, error) {
	payload := map[string]string{
		"billersCode": billersCode,
		"serviceID":   serviceID,
	}

	raw, err := c.request(ctx, http.MethodPost, "/merchant-verify", payload)
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Code    string `json:"code"`
		Content struct {
			CustomerName string          `json:"Customer_Name"`
			Address      string          `json:"Address"`
			Error        string          `json:"error"`
			WrongBiller  json.RawMessage `json:"WrongBillersCode"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed verify response", vtpassName)
	}
	if parsed.Code != "000" || parsed.Content.Error != "" {
		return nil, &ProviderError{Provider: vtpassName, Message: nonEmptyMessage(parsed.Content.Error, "customer verification failed")}
	}

	return &VerifyCustomerOutput{
		CustomerName: parsed.Content.CustomerName,
		Address:      parsed.Content.Address,
		Raw:          raw,
	}, nil
}

type PurchaseInput struct {
	RequestID     string
	ServiceID     string
	AmountKobo    int64
	Phone         string
	BillerCode    string
	VariationCode string
	Quantity      int
}

type PurchaseOutput struct {
	Status         int32
	ProviderStatus string
	Description    string
}

func (c *VTPassClient) PurchaseAirtime(ctx context.Context, input PurchaseInput) (*PurchaseOutput, error) {
	return c.pay(ctx, purchaseBody(input, false))
}

func (c *VTPassClient) PurchaseData(ctx context.Context, input PurchaseInput) (*PurchaseOutput, error) {
	body := purchaseBody(input, true)
	return c.pay(ctx, body)
}

func (c *VTPassClient) PayElectricity(ctx context.Context, input PurchaseInput) (*PurchaseOutput, error) {
	body := purchaseBody(input, true)
	return c.pay(ctx, body)
}

func (c *VTPassClient) PayCableTV(ctx context.Context, input PurchaseInput) (*PurchaseOutput, error) {
	body := purchaseBody(input, true)
	quantity := input.Quantity
	if quantity <= 0 {
		quantity = 1
	}
	body["quantity"] = quantity
	return c.pay(ctx, body)
}

func purchaseBody(input PurchaseInput, withVariation bool) map[string]interface{} {
	billersCode := input.BillerCode
	if billersCode == "" {
		billersCode = input.Phone
	}

	body := map[string]interface{}{
		"request_id":  input.RequestID,
		"serviceID":   input.ServiceID,
		"amount":      koboToNaira(input.AmountKobo),
		"phone":       input.Phone,
		"billersCode": billersCode,
	}
	if withVariation && input.VariationCode != "" {
		body["variation_code"] = input.VariationCode
	}
	return body
}

func (c *VTPassClient) pay(ctx context.Context, body map[string]interface{}) (*PurchaseOutput, error) {
	raw, err := c.request(ctx, http.MethodPost, "/pay", body)
	if err != nil {
		return nil, err
	}
	return parsePurchaseResponse(raw)
}

// Requery polls for the authoritative status of a previously submitted
// request ID. The immediate /pay response is not guaranteed terminal.
func (c *VTPassClient) Requery(ctx context.Context, requestID string) (*PurchaseOutput, error) {
	raw, err := c.request(ctx, http.MethodPost, "/requery", map[string]string{"request_id": requestID})
	if err != nil {
		return nil, err
	}
	return parsePurchaseResponse(raw)
}

func parsePurchaseResponse(raw []byte) (*PurchaseOutput, error) {
	var parsed struct {
		Code                string `json:"code"`
		ResponseDescription string `json:"response_description"`
		Content             struct {
			Transactions struct {
				Status string `json:"status"`
			} `json:"transactions"`
		} `json:"content"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%s: malformed pay response", vtpassName)
	}

	providerStatus := strings.ToLower(strings.TrimSpace(parsed.Content.Transactions.Status))
	output := &PurchaseOutput{
		ProviderStatus: providerStatus,
		Description:    parsed.ResponseDescription,
	}

	switch parsed.Code {
	case "000":
		output.Status = mapVTPassTransactionStatus(providerStatus)
		return output, nil
	case "099":
		// TRANSACTION_PROCESSING: not terminal, resolvable only by requery.
		output.Status = entity.VTUOrderStatusProcessing
		if output.ProviderStatus == "" {
			output.ProviderStatus = "pending"
		}
		return output, nil
	case "016":
		output.Status = entity.VTUOrderStatusFailed
		return output, nil
	default:
		return nil, &ProviderError{Provider: vtpassName, Message: nonEmptyMessage(parsed.ResponseDescription, "transaction rejected with code "+parsed.Code)}
	}
}

func mapVTPassTransactionStatus(providerStatus string) int32 {
	switch providerStatus {
	case "delivered":
		return entity.VTUOrderStatusDelivered
	case "failed":
		return entity.VTUOrderStatusFailed
	case "reversed":
		return entity.VTUOrderStatusReversed
	default:
		// pending, initiated, or absent: still in flight.
		return entity.VTUOrderStatusProcessing
	}
}

func (c *VTPassClient) WalletBalance(ctx context.Context) (int64, error) {
	raw, err := c.request(ctx, http.MethodGet, "/balance", nil)
	if err != nil {
		return 0, err
	}

	var parsed struct {
		Contents struct {
			Balance float64 `json:"balance"`
		} `json:"contents"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, fmt.Errorf("%s: malformed balance response", vtpassName)
	}
	return nairaToKobo(parsed.Contents.Balance), nil
}

func nonEmptyMessage(message, fallback string) string {
	if strings.TrimSpace(message) != "" {
		return strings.TrimSpace(message)
	}
	return fallback
}
