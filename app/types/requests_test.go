package types

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func newJSONContext(t *testing.T, method, target, body string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestProvisionAccountRequestNormalizesEmail(t *testing.T) {
	ctx := newJSONContext(t, http.MethodPost, "/accounts", `{"customer_name":"  Ada Obi  ","customer_email":" A@X.COM "}`)

	req, err := NewProvisionAccountRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if req.CustomerName != "Ada Obi" {
		t.Fatalf("expected trimmed name, got %q", req.CustomerName)
	}
	if req.CustomerEmail != "a@x.com" {
		t.Fatalf("expected lowercased email, got %q", req.CustomerEmail)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestProvisionAccountRequestRejectsBadEmail(t *testing.T) {
	req := &ProvisionAccountRequest{CustomerName: "Ada Obi", CustomerEmail: "not-an-email"}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestInitiatePaymentRequestRequiresPositiveAmount(t *testing.T) {
	req := &InitiatePaymentRequest{CustomerName: "Ada Obi", CustomerEmail: "a@x.com", AmountKobo: 0}
	if err := req.Validate(); err == nil || !strings.Contains(err.Error(), "amount_kobo") {
		t.Fatalf("expected amount_kobo error, got %v", err)
	}
}

func TestPayoutRequestRequiresTenDigitAccount(t *testing.T) {
	req := &PayoutRequest{
		DestinationBankCode:      "058",
		DestinationAccountNumber: "12345",
		DestinationAccountName:   "Ada Obi",
		AmountKobo:               1000,
	}
	if err := req.Validate(); err == nil || !strings.Contains(err.Error(), "10 digits") {
		t.Fatalf("expected account number error, got %v", err)
	}
}

func TestBulkPayoutRequestValidatesEveryItem(t *testing.T) {
	req := &BulkPayoutRequest{
		Title: "vendor settlements",
		Items: []PayoutRequest{
			{DestinationBankCode: "058", DestinationAccountNumber: "0123456789", DestinationAccountName: "Ada Obi", AmountKobo: 1000},
			{DestinationBankCode: "", DestinationAccountNumber: "0123456789", DestinationAccountName: "Bola Ige", AmountKobo: 1000},
		},
	}
	if err := req.Validate(); err == nil {
		t.Fatal("expected validation error for second item")
	}
}

func TestPurchaseRequestFallsBackToRequestIDHeader(t *testing.T) {
	ctx := newJSONContext(t, http.MethodPost, "/vtu/orders", `{"customer_email":"a@x.com","service_id":"MTN","amount_kobo":50000,"phone":"08031234567"}`)
	ctx.Request().Header.Set(echo.HeaderXRequestID, "req-77")

	req, err := NewPurchaseRequestFromContext(ctx)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if req.RequestID != "req-77" {
		t.Fatalf("expected header request id, got %q", req.RequestID)
	}
	if req.ServiceID != "mtn" {
		t.Fatalf("expected lowercased service id, got %q", req.ServiceID)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestDecodeWebhookBodyKeepsRawPayload(t *testing.T) {
	raw := `{"transactionReference":"MNFY|TX|1","paymentReference":"pay-1","amountPaid":1500.00,"paidOn":"2026-08-30 10:15:00.000","transactionHash":"abc"}`

	req, err := DecodeWebhookBody([]byte(raw))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if req.RawBody != raw {
		t.Fatal("raw body must survive verbatim for the event ledger")
	}
	if req.AmountPaid != "1500.00" {
		t.Fatalf("numeric amountPaid must keep its wire form, got %q", req.AmountPaid)
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
}

func TestDecodeWebhookBodyAcceptsQuotedAmount(t *testing.T) {
	raw := `{"transactionReference":"MNFY|TX|2","paymentReference":"pay-2","amountPaid":"250.50","paidOn":"2026-08-30 11:00:00.000","transactionHash":"abc"}`

	req, err := DecodeWebhookBody([]byte(raw))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if req.AmountPaid != "250.50" {
		t.Fatalf("quoted amountPaid must unquote, got %q", req.AmountPaid)
	}
}

func TestWebhookRequestValidateRequiresHash(t *testing.T) {
	req := &WebhookRequest{
		TransactionReference: "MNFY|TX|3",
		PaymentReference:     "pay-3",
		AmountPaid:           "100.00",
	}
	if err := req.Validate(); err == nil || !strings.Contains(err.Error(), "transactionHash") {
		t.Fatalf("expected transactionHash error, got %v", err)
	}
}
