package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
	"github.com/vibast-solutions/ms-go-billpay/app/provider"
	"github.com/vibast-solutions/ms-go-billpay/app/repository"
)

// ReconcileResult reports what a settlement notification did. Applied and
// AlreadyApplied are both success outcomes for the caller; the provider
// stops retrying on either.
type ReconcileResult struct {
	Applied        bool
	AlreadyApplied bool
	Payment        *entity.Payment
}

// Reconcile applies a provider settlement notification exactly once.
// Signature validation fails closed; the database unique index on the
// transaction reference is the load-bearing idempotency guard, with the
// redis claim as a fast path in front of it.
func (s *PaymentService) Reconcile(ctx context.Context, event provider.WebhookPayload, rawPayload string) (*ReconcileResult, error) {
	if !verifySignatureFailClosed(s.clientSecret, event) {
		return nil, ErrSignatureMismatch
	}

	claimed, err := s.idempotency.ClaimEvent(ctx, event.TransactionReference)
	if err == nil && !claimed {
		applied, existsErr := s.webhookRepo.Exists(ctx, event.TransactionReference)
		if existsErr == nil && applied {
			return &ReconcileResult{AlreadyApplied: true}, nil
		}
		// Claim held by a concurrent delivery that has not committed yet.
		// The holder may still fail and release the claim, so this delivery
		// must come back; acknowledging it here would stop the provider's
		// retries.
		return nil, fmt.Errorf("transaction %s: %w", event.TransactionReference, ErrReconcileInProgress)
	}
	// A redis error degrades to the unique index alone.

	amountKobo, err := provider.ParseWebhookAmount(event.AmountPaid)
	if err != nil {
		s.idempotency.Release(ctx, event.TransactionReference)
		return nil, fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}

	payment, err := s.paymentRepo.FindByReference(ctx, event.PaymentReference)
	if err != nil {
		s.idempotency.Release(ctx, event.TransactionReference)
		return nil, err
	}
	if payment == nil {
		s.idempotency.Release(ctx, event.TransactionReference)
		return nil, fmt.Errorf("payment reference %s: %w", event.PaymentReference, ErrPaymentNotFound)
	}

	now := time.Now().UTC()
	ledgerEvent := &entity.WebhookEvent{
		TransactionReference: event.TransactionReference,
		PaymentReference:     event.PaymentReference,
		AmountPaid:           event.AmountPaid,
		PaidOn:               event.PaidOn,
		PayloadJSON:          rawPayload,
		AppliedAt:            now,
	}
	payment.Status = entity.PaymentStatusPaid
	payment.AmountPaidKobo = amountKobo
	payment.PaidOn = normalizeOptionalString(event.PaidOn)
	payment.UpdatedAt = now

	// Ledger row, payment transition, and wallet credit commit as one
	// transaction. A partial failure rolls everything back and releases the
	// claim, so the provider's retry starts from a clean slate instead of
	// hitting a stranded ledger row.
	if err := s.settlements.Apply(ctx, ledgerEvent, payment); err != nil {
		if errors.Is(err, repository.ErrWebhookAlreadyApplied) {
			_ = s.idempotency.MarkApplied(ctx, event.TransactionReference)
			return &ReconcileResult{AlreadyApplied: true}, nil
		}
		s.idempotency.Release(ctx, event.TransactionReference)
		return nil, err
	}

	_ = s.idempotency.MarkApplied(ctx, event.TransactionReference)

	return &ReconcileResult{Applied: true, Payment: payment}, nil
}

// verifySignatureFailClosed treats any panic during hash computation as a
// mismatch.
func verifySignatureFailClosed(secret string, event provider.WebhookPayload) (valid bool) {
	defer func() {
		if recover() != nil {
			valid = false
		}
	}()
	return provider.VerifyWebhookSignature(secret, event)
}
