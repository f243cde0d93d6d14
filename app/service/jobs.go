package service

import (
	"context"
	"time"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

// RunReconcileBatch sweeps payments that have sat pending past the stale
// window and confirms each against the provider. Returns how many rows were
// examined and the first error encountered; a single bad row never stops
// the sweep.
func (s *PaymentService) RunReconcileBatch(ctx context.Context) (int, error) {
	staleAfter := s.billpayCfg.ReconcileStaleAfter
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	before := time.Now().UTC().Add(-staleAfter)

	payments, err := s.paymentRepo.ListStalePending(ctx, before, s.batchSize())
	if err != nil {
		return 0, err
	}

	var firstErr error
	for _, payment := range payments {
		if ctx.Err() != nil {
			return len(payments), ctx.Err()
		}
		if _, err := s.ConfirmPayment(ctx, payment.Reference); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return len(payments), firstErr
}

// ExpireStalePayments marks payments that never settled within the pending
// timeout as expired, after one last provider check.
func (s *PaymentService) ExpireStalePayments(ctx context.Context) (int, error) {
	timeout := s.billpayCfg.PendingTimeout
	if timeout <= 0 {
		timeout = time.Hour
	}
	before := time.Now().UTC().Add(-timeout)

	payments, err := s.paymentRepo.ListStalePending(ctx, before, s.batchSize())
	if err != nil {
		return 0, err
	}

	expired := 0
	var firstErr error
	for _, payment := range payments {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}

		confirmed, err := s.ConfirmPayment(ctx, payment.Reference)
		if err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		if entity.PaymentStatusTerminal(confirmed.Status) {
			continue
		}

		confirmed.Status = entity.PaymentStatusExpired
		confirmed.UpdatedAt = time.Now().UTC()
		if err := s.paymentRepo.Update(ctx, confirmed); err != nil {
			firstErr = keepFirstErr(firstErr, err)
			continue
		}
		expired++
	}

	return expired, firstErr
}

// RunRequeryBatch sweeps VTU orders stuck in a non-terminal state and polls
// the provider once for each.
func (s *VTUService) RunRequeryBatch(ctx context.Context) (int, error) {
	staleAfter := s.billpayCfg.ReconcileStaleAfter
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	before := time.Now().UTC().Add(-staleAfter)

	limit := s.billpayCfg.JobBatchSize
	if limit <= 0 {
		limit = defaultBatchSize
	}

	orders, err := s.orderRepo.ListStaleProcessing(ctx, before, limit)
	if err != nil {
		return 0, err
	}

	var firstErr error
	for _, order := range orders {
		if ctx.Err() != nil {
			return len(orders), ctx.Err()
		}
		if _, err := s.Requery(ctx, order.RequestID); err != nil {
			firstErr = keepFirstErr(firstErr, err)
		}
	}

	return len(orders), firstErr
}

func keepFirstErr(first, candidate error) error {
	if first != nil {
		return first
	}
	return candidate
}
