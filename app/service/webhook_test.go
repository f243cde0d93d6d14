package service

import (
	"context"
	"errors"
	"testing"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
	"github.com/vibast-solutions/ms-go-billpay/app/provider"
	"github.com/vibast-solutions/ms-go-billpay/app/types"
)

const webhookSecret = "monnify-secret"

func signedWebhookEvent(txRef, paymentRef, amountPaid, paidOn string) provider.WebhookPayload {
	event := provider.WebhookPayload{
		TransactionReference: txRef,
		PaymentReference:     paymentRef,
		AmountPaid:           amountPaid,
		PaidOn:               paidOn,
	}
	event.TransactionHash = provider.ComputeWebhookHash(webhookSecret, txRef, amountPaid, paidOn, paymentRef)
	return event
}

func seedPendingPayment(t *testing.T, f *paymentServiceFixture, reference string, amountKobo int64) {
	t.Helper()
	txRef := "MNFY|TX|" + reference
	payment := &entity.Payment{
		Reference:     reference,
		CustomerEmail: "a@x.com",
		AmountKobo:    amountKobo,
		Status:        entity.PaymentStatusPending,
		ProviderTxRef: &txRef,
	}
	if err := f.paymentRepo.Create(context.Background(), payment); err != nil {
		t.Fatalf("seed payment failed: %v", err)
	}
}

func TestReconcileAppliesSettlementAndCreditsWallet(t *testing.T) {
	f := newPaymentServiceFixture()
	seedPendingPayment(t, f, "pay-hook", 150000)

	event := signedWebhookEvent("MNFY|TX|pay-hook", "pay-hook", "1500.00", "2026-08-30 10:15:00.000")
	result, err := f.svc.Reconcile(context.Background(), event, `{"transactionReference":"MNFY|TX|pay-hook"}`)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected Applied")
	}
	if result.Payment.Status != entity.PaymentStatusPaid {
		t.Fatalf("expected paid, got %d", result.Payment.Status)
	}
	if got := f.walletRepo.balance("a@x.com"); got != 150000 {
		t.Fatalf("expected 150000 kobo credited, got %d", got)
	}
}

func TestReconcileReplayNeverDoubleCredits(t *testing.T) {
	f := newPaymentServiceFixture()
	seedPendingPayment(t, f, "pay-replay", 50000)

	event := signedWebhookEvent("MNFY|TX|pay-replay", "pay-replay", "500.00", "2026-08-30 11:00:00.000")

	first, err := f.svc.Reconcile(context.Background(), event, "{}")
	if err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if !first.Applied {
		t.Fatal("expected first delivery applied")
	}

	second, err := f.svc.Reconcile(context.Background(), event, "{}")
	if err != nil {
		t.Fatalf("replay must succeed: %v", err)
	}
	if !second.AlreadyApplied {
		t.Fatal("expected AlreadyApplied on replay")
	}
	if f.walletRepo.credits != 1 {
		t.Fatalf("expected exactly one wallet credit, got %d", f.walletRepo.credits)
	}
}

func TestReconcileReplayWithRedisDownHitsUniqueIndex(t *testing.T) {
	f := newPaymentServiceFixture()
	seedPendingPayment(t, f, "pay-degraded", 50000)

	event := signedWebhookEvent("MNFY|TX|pay-degraded", "pay-degraded", "500.00", "2026-08-30 11:00:00.000")

	if _, err := f.svc.Reconcile(context.Background(), event, "{}"); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}

	f.idempotency.failing = true
	second, err := f.svc.Reconcile(context.Background(), event, "{}")
	if err != nil {
		t.Fatalf("replay with degraded redis must succeed: %v", err)
	}
	if !second.AlreadyApplied {
		t.Fatal("expected AlreadyApplied via the unique index")
	}
	if f.walletRepo.credits != 1 {
		t.Fatalf("expected exactly one wallet credit, got %d", f.walletRepo.credits)
	}
}

func TestReconcileFailedSettlementRollsBackAndRetryCredits(t *testing.T) {
	f := newPaymentServiceFixture()
	seedPendingPayment(t, f, "pay-flaky", 50000)

	event := signedWebhookEvent("MNFY|TX|pay-flaky", "pay-flaky", "500.00", "2026-08-30 14:00:00.000")

	f.settlements.applyErr = errors.New("wallet credit deadlock")
	if _, err := f.svc.Reconcile(context.Background(), event, "{}"); err == nil {
		t.Fatal("expected the failed settlement to surface")
	}

	// The transaction rolled back: no ledger row, payment untouched, claim
	// released. The retry must not be mistaken for a replay.
	if exists, _ := f.webhookRepo.Exists(context.Background(), "MNFY|TX|pay-flaky"); exists {
		t.Fatal("failed settlement must not leave a ledger row")
	}
	stored, _ := f.paymentRepo.FindByReference(context.Background(), "pay-flaky")
	if stored.Status != entity.PaymentStatusPending {
		t.Fatalf("failed settlement must keep the payment pending, got %d", stored.Status)
	}
	if f.walletRepo.credits != 0 {
		t.Fatalf("failed settlement must not credit, got %d credits", f.walletRepo.credits)
	}

	result, err := f.svc.Reconcile(context.Background(), event, "{}")
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected the redelivery to apply")
	}
	if got := f.walletRepo.balance("a@x.com"); got != 50000 {
		t.Fatalf("expected 50000 kobo credited after the retry, got %d", got)
	}
	if f.walletRepo.credits != 1 {
		t.Fatalf("expected exactly one wallet credit, got %d", f.walletRepo.credits)
	}
}

func TestReconcileConcurrentClaimIsRetried(t *testing.T) {
	f := newPaymentServiceFixture()
	seedPendingPayment(t, f, "pay-race", 50000)

	event := signedWebhookEvent("MNFY|TX|pay-race", "pay-race", "500.00", "2026-08-30 15:00:00.000")

	// Another delivery holds the claim and has not committed yet.
	if _, err := f.idempotency.ClaimEvent(context.Background(), "MNFY|TX|pay-race"); err != nil {
		t.Fatalf("seed claim failed: %v", err)
	}

	_, err := f.svc.Reconcile(context.Background(), event, "{}")
	if !errors.Is(err, ErrReconcileInProgress) {
		t.Fatalf("expected ErrReconcileInProgress, got %v", err)
	}
	if f.walletRepo.credits != 0 {
		t.Fatalf("contended delivery must not credit, got %d credits", f.walletRepo.credits)
	}

	// The holder dies and releases the claim; the redelivery must land.
	f.idempotency.Release(context.Background(), "MNFY|TX|pay-race")
	result, err := f.svc.Reconcile(context.Background(), event, "{}")
	if err != nil {
		t.Fatalf("redelivery failed: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected the redelivery to apply")
	}
	if f.walletRepo.credits != 1 {
		t.Fatalf("expected exactly one wallet credit, got %d", f.walletRepo.credits)
	}
}

func TestReconcileSignatureMismatchChangesNothing(t *testing.T) {
	f := newPaymentServiceFixture()
	seedPendingPayment(t, f, "pay-tampered", 150000)

	event := signedWebhookEvent("MNFY|TX|pay-tampered", "pay-tampered", "1500.00", "2026-08-30 10:15:00.000")
	event.AmountPaid = "9999.00"

	_, err := f.svc.Reconcile(context.Background(), event, "{}")
	if !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected ErrSignatureMismatch, got %v", err)
	}

	stored, _ := f.paymentRepo.FindByReference(context.Background(), "pay-tampered")
	if stored.Status != entity.PaymentStatusPending {
		t.Fatalf("tampered event must not change the payment, got %d", stored.Status)
	}
	if exists, _ := f.webhookRepo.Exists(context.Background(), "MNFY|TX|pay-tampered"); exists {
		t.Fatal("tampered event must not reach the ledger")
	}
	if f.walletRepo.credits != 0 {
		t.Fatalf("tampered event must not credit, got %d credits", f.walletRepo.credits)
	}
}

func TestReconcileUnknownPaymentReleasesClaim(t *testing.T) {
	f := newPaymentServiceFixture()

	event := signedWebhookEvent("MNFY|TX|ghost", "ghost", "100.00", "2026-08-30 12:00:00.000")
	_, err := f.svc.Reconcile(context.Background(), event, "{}")
	if !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}

	// The claim must be released so a redelivery can retry once the payment
	// row lands.
	seedPendingPayment(t, f, "ghost", 10000)
	result, err := f.svc.Reconcile(context.Background(), event, "{}")
	if err != nil {
		t.Fatalf("redelivery after release failed: %v", err)
	}
	if !result.Applied {
		t.Fatal("expected redelivery to apply")
	}
}

func TestReconcileCreditsWebhookAmountNotRequestedAmount(t *testing.T) {
	f := newPaymentServiceFixture()
	seedPendingPayment(t, f, "pay-partial", 200000)

	event := signedWebhookEvent("MNFY|TX|pay-partial", "pay-partial", "1200.50", "2026-08-30 13:00:00.000")
	result, err := f.svc.Reconcile(context.Background(), event, "{}")
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Payment.AmountPaidKobo != 120050 {
		t.Fatalf("expected 120050 kobo recorded, got %d", result.Payment.AmountPaidKobo)
	}
	if got := f.walletRepo.balance("a@x.com"); got != 120050 {
		t.Fatalf("wallet credit must follow the settled amount, got %d", got)
	}
}

func TestWebhookRequestKeepsAmountVerbatim(t *testing.T) {
	raw := []byte(`{"transactionReference":"MNFY|TX|1","paymentReference":"pay-1","amountPaid":1500.00,"paidOn":"2026-08-30 10:15:00.000","transactionHash":"abc"}`)

	req, err := types.DecodeWebhookBody(raw)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if req.AmountPaid != "1500.00" {
		t.Fatalf("amountPaid must survive verbatim, got %q", req.AmountPaid)
	}
}
