package provider

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestVTPassClient(baseURL string) *VTPassClient {
	return NewVTPassClient(VTPassConfig{
		BaseURL:     baseURL,
		Username:    "ops@billpay.test",
		APIKey:      "api-key",
		PublicKey:   "public-key",
		SecretKey:   "secret-key",
		HTTPTimeout: 5 * time.Second,
	})
}

func TestSignRequestConcatenatesWithoutSeparator(t *testing.T) {
	client := newTestVTPassClient("http://unused")

	signature := client.signRequest("req-1")

	expected := sha256.Sum256([]byte("ops@billpay.test" + "api-key" + "req-1"))
	if signature != hex.EncodeToString(expected[:]) {
		t.Fatal("signature does not follow username+apiKey+requestId concatenation")
	}
}

func TestRequestAttachesFreshRequestIDAndSignature(t *testing.T) {
	seen := map[string]bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("request-id")
		if requestID == "" {
			t.Error("request-id header missing")
		}
		if seen[requestID] {
			t.Errorf("request-id %s reused across calls", requestID)
		}
		seen[requestID] = true

		expected := sha256.Sum256([]byte("ops@billpay.test" + "api-key" + requestID))
		if r.Header.Get("signature") != hex.EncodeToString(expected[:]) {
			t.Error("signature header does not match the request-id")
		}
		if r.Header.Get("api-key") != "api-key" || r.Header.Get("public-key") != "public-key" || r.Header.Get("secret-key") != "secret-key" {
			t.Error("static key headers missing")
		}
		_, _ = w.Write([]byte(`{"contents":{"balance":100.5}}`))
	}))
	defer server.Close()

	client := newTestVTPassClient(server.URL)
	for i := 0; i < 3; i++ {
		if _, err := client.WalletBalance(context.Background()); err != nil {
			t.Fatalf("balance call failed: %v", err)
		}
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 distinct request IDs, got %d", len(seen))
	}
}

func TestPurchaseProcessingIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"099","response_description":"TRANSACTION_PROCESSING"}`))
	}))
	defer server.Close()

	client := newTestVTPassClient(server.URL)
	output, err := client.PurchaseAirtime(context.Background(), PurchaseInput{
		RequestID:  "req-1",
		ServiceID:  "mtn",
		AmountKobo: 100000,
		Phone:      "08012345678",
	})
	if err != nil {
		t.Fatalf("processing response must not be an error: %v", err)
	}
	if output.Status != 2 {
		t.Fatalf("expected processing status, got %d", output.Status)
	}
}

func TestRequeryTerminalStatuses(t *testing.T) {
	cases := []struct {
		body string
		want int32
	}{
		{`{"code":"000","content":{"transactions":{"status":"delivered"}}}`, 10},
		{`{"code":"000","content":{"transactions":{"status":"failed"}}}`, 20},
		{`{"code":"000","content":{"transactions":{"status":"reversed"}}}`, 30},
		{`{"code":"000","content":{"transactions":{"status":"pending"}}}`, 2},
		{`{"code":"016","response_description":"TRANSACTION FAILED"}`, 20},
	}

	for _, tc := range cases {
		body := tc.body
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		client := newTestVTPassClient(server.URL)
		output, err := client.Requery(context.Background(), "req-1")
		server.Close()
		if err != nil {
			t.Fatalf("requery failed for %s: %v", body, err)
		}
		if output.Status != tc.want {
			t.Fatalf("body %s mapped to %d, want %d", body, output.Status, tc.want)
		}
	}
}

func TestPurchaseRejectedCodeIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"code":"011","response_description":"INVALID ARGUMENTS"}`))
	}))
	defer server.Close()

	client := newTestVTPassClient(server.URL)
	_, err := client.PurchaseAirtime(context.Background(), PurchaseInput{RequestID: "req-1", ServiceID: "mtn", AmountKobo: 100000, Phone: "08012345678"})

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("expected ProviderError, got %v", err)
	}
	if providerErr.Message != "INVALID ARGUMENTS" {
		t.Fatalf("unexpected message: %s", providerErr.Message)
	}
}

func TestGetServiceVariations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("serviceID") != "mtn-data" {
			t.Errorf("unexpected serviceID: %s", r.URL.Query().Get("serviceID"))
		}
		_, _ = w.Write([]byte(`{"response_description":"000","content":{"ServiceName":"MTN Data","variations":[{"variation_code":"mtn-10mb-100","name":"100MB","variation_amount":"100.00"}]}}`))
	}))
	defer server.Close()

	client := newTestVTPassClient(server.URL)
	output, err := client.GetServiceVariations(context.Background(), "mtn-data")
	if err != nil {
		t.Fatalf("variations failed: %v", err)
	}
	if output.ServiceName != "MTN Data" || len(output.Variations) != 1 {
		t.Fatalf("unexpected output: %+v", output)
	}
	if output.Variations[0].Code != "mtn-10mb-100" {
		t.Fatalf("unexpected variation code: %s", output.Variations[0].Code)
	}
}

func TestServiceCategoryLookup(t *testing.T) {
	if category, ok := ServiceCategory("ikeja-electric"); !ok || category != CategoryElectricity {
		t.Fatalf("unexpected category for ikeja-electric: %s %v", category, ok)
	}
	if _, ok := ServiceCategory("unknown-service"); ok {
		t.Fatal("expected unknown service to miss the table")
	}
}
