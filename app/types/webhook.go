package types

import (
	"encoding/json"
	"strings"
)

// DecodeWebhookBody decodes a settlement notification while keeping
// amountPaid exactly as it appeared on the wire. The provider sends it as a
// bare number; the signature is computed over that textual form, so a
// round-trip through float64 would corrupt it.
func DecodeWebhookBody(raw []byte) (*WebhookRequest, error) {
	var body struct {
		TransactionReference string          `json:"transactionReference"`
		PaymentReference     string          `json:"paymentReference"`
		AmountPaid           json.RawMessage `json:"amountPaid"`
		PaidOn               string          `json:"paidOn"`
		TransactionHash      string          `json:"transactionHash"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, err
	}

	return &WebhookRequest{
		TransactionReference: body.TransactionReference,
		PaymentReference:     body.PaymentReference,
		AmountPaid:           rawJSONText(body.AmountPaid),
		PaidOn:               body.PaidOn,
		TransactionHash:      body.TransactionHash,
		RawBody:              string(raw),
	}, nil
}

func rawJSONText(raw json.RawMessage) string {
	text := strings.TrimSpace(string(raw))
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return text
}
