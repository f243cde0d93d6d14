package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vibast-solutions/ms-go-billpay/app/entity"
	"github.com/vibast-solutions/ms-go-billpay/app/provider"
	"github.com/vibast-solutions/ms-go-billpay/app/repository"
	"github.com/vibast-solutions/ms-go-billpay/app/types"
)

// SinglePayout reserves the reference locally, submits the disbursement, and
// records the provider's initial status.
func (s *PaymentService) SinglePayout(ctx context.Context, req *types.PayoutRequest) (*entity.Payout, error) {
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "NGN"
	}

	now := time.Now().UTC()
	payout := &entity.Payout{
		Reference:                reference,
		Narration:                strings.TrimSpace(req.Narration),
		DestinationBankCode:      strings.TrimSpace(req.DestinationBankCode),
		DestinationAccountNumber: strings.TrimSpace(req.DestinationAccountNumber),
		DestinationAccountName:   strings.TrimSpace(req.DestinationAccountName),
		AmountKobo:               req.AmountKobo,
		Currency:                 currency,
		Status:                   entity.PayoutStatusSubmitted,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if err := s.payoutRepo.Create(ctx, payout); err != nil {
		if errors.Is(err, repository.ErrPayoutAlreadyExists) {
			return nil, fmt.Errorf("payout reference %s: %w", reference, ErrDuplicateReference)
		}
		return nil, err
	}

	output, err := s.bank.SinglePayout(ctx, provider.PayoutInput{
		Reference:                reference,
		Narration:                payout.Narration,
		DestinationBankCode:      payout.DestinationBankCode,
		DestinationAccountNumber: payout.DestinationAccountNumber,
		DestinationAccountName:   payout.DestinationAccountName,
		AmountKobo:               payout.AmountKobo,
		Currency:                 currency,
	})
	if err != nil {
		var providerErr *provider.ProviderError
		if errors.As(err, &providerErr) {
			payout.Status = entity.PayoutStatusFailed
			payout.UpdatedAt = time.Now().UTC()
			_ = s.payoutRepo.UpdateStatus(ctx, payout)
		}
		if errors.Is(err, provider.ErrDuplicateReference) {
			return nil, fmt.Errorf("payout reference %s: %w", reference, ErrDuplicateReference)
		}
		return nil, fmt.Errorf("payout %s: %w", reference, err)
	}

	if output.Status != payout.Status {
		payout.Status = output.Status
		payout.UpdatedAt = time.Now().UTC()
		if err := s.payoutRepo.UpdateStatus(ctx, payout); err != nil {
			return nil, err
		}
	}

	return payout, nil
}

// BulkPayout submits a disbursement batch. The adapter generates the batch
// reference and any missing per-item references; each item is persisted
// under the shared batch reference.
func (s *PaymentService) BulkPayout(ctx context.Context, req *types.BulkPayoutRequest) ([]*entity.Payout, string, error) {
	items := make([]provider.PayoutInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, provider.PayoutInput{
			Reference:                strings.TrimSpace(item.Reference),
			Narration:                strings.TrimSpace(item.Narration),
			DestinationBankCode:      strings.TrimSpace(item.DestinationBankCode),
			DestinationAccountNumber: strings.TrimSpace(item.DestinationAccountNumber),
			DestinationAccountName:   strings.TrimSpace(item.DestinationAccountName),
			AmountKobo:               item.AmountKobo,
			Currency:                 strings.ToUpper(strings.TrimSpace(item.Currency)),
		})
	}

	output, err := s.bank.BulkPayout(ctx, strings.TrimSpace(req.Title), items)
	if err != nil {
		if errors.Is(err, provider.ErrDuplicateReference) {
			return nil, "", fmt.Errorf("bulk payout: %w", ErrDuplicateReference)
		}
		return nil, "", fmt.Errorf("bulk payout: %w", err)
	}

	now := time.Now().UTC()
	payouts := make([]*entity.Payout, 0, len(items))
	for i, item := range items {
		reference := item.Reference
		if i < len(output.ItemReferences) {
			reference = output.ItemReferences[i]
		}
		currency := item.Currency
		if currency == "" {
			currency = "NGN"
		}

		payout := &entity.Payout{
			Reference:                reference,
			BatchReference:           normalizeOptionalString(output.BatchReference),
			Narration:                item.Narration,
			DestinationBankCode:      item.DestinationBankCode,
			DestinationAccountNumber: item.DestinationAccountNumber,
			DestinationAccountName:   item.DestinationAccountName,
			AmountKobo:               item.AmountKobo,
			Currency:                 currency,
			Status:                   entity.PayoutStatusProcessing,
			CreatedAt:                now,
			UpdatedAt:                now,
		}
		if err := s.payoutRepo.Create(ctx, payout); err != nil {
			return nil, "", err
		}
		payouts = append(payouts, payout)
	}

	return payouts, output.BatchReference, nil
}

// PayoutStatus requeries the provider for the authoritative status of a
// previously submitted payout and records any transition.
func (s *PaymentService) PayoutStatus(ctx context.Context, reference string) (*entity.Payout, error) {
	payout, err := s.payoutRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payout == nil {
		return nil, ErrPayoutNotFound
	}
	if entity.PayoutStatusTerminal(payout.Status) {
		return payout, nil
	}

	output, err := s.bank.PayoutStatus(ctx, reference)
	if err != nil {
		return nil, fmt.Errorf("payout status %s: %w", reference, err)
	}
	if output.Status == payout.Status {
		return payout, nil
	}

	payout.Status = output.Status
	payout.UpdatedAt = time.Now().UTC()
	if err := s.payoutRepo.UpdateStatus(ctx, payout); err != nil {
		return nil, err
	}

	return payout, nil
}
