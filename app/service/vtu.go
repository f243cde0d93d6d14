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
	"github.com/vibast-solutions/ms-go-billpay/config"
)

type vtuClient interface {
	GetServiceVariations(ctx context.Context, serviceID string) (*provider.VariationsOutput, error)
	VerifyCustomer(ctx context.Context, serviceID, billersCode string) (*provider.VerifyCustomerOutput, error)
	PurchaseAirtime(ctx context.Context, input provider.PurchaseInput) (*provider.PurchaseOutput, error)
	PurchaseData(ctx context.Context, input provider.PurchaseInput) (*provider.PurchaseOutput, error)
	PayElectricity(ctx context.Context, input provider.PurchaseInput) (*provider.PurchaseOutput, error)
	PayCableTV(ctx context.Context, input provider.PurchaseInput) (*provider.PurchaseOutput, error)
	Requery(ctx context.Context, requestID string) (*provider.PurchaseOutput, error)
	WalletBalance(ctx context.Context) (int64, error)
}

type vtuOrderRepository interface {
	Create(ctx context.Context, order *entity.VTUOrder) error
	Update(ctx context.Context, order *entity.VTUOrder) error
	FindByRequestID(ctx context.Context, requestID string) (*entity.VTUOrder, error)
	ListStaleProcessing(ctx context.Context, before time.Time, limit int32) ([]*entity.VTUOrder, error)
}

// VTUService drives bill and value-added purchases: airtime, data bundles,
// electricity tokens, cable TV and exam pins. Every purchase debits the
// customer wallet before the upstream call and refunds on a failed or
// reversed outcome.
type VTUService struct {
	vtu        vtuClient
	orderRepo  vtuOrderRepository
	walletRepo walletRepository
	billpayCfg config.BillpayConfig

	// sleep is swapped out by tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewVTUService(vtu vtuClient, orderRepo vtuOrderRepository, walletRepo walletRepository, billpayCfg config.BillpayConfig) *VTUService {
	return &VTUService{
		vtu:        vtu,
		orderRepo:  orderRepo,
		walletRepo: walletRepo,
		billpayCfg: billpayCfg,
		sleep:      sleepContext,
	}
}

func (s *VTUService) ServiceVariations(ctx context.Context, serviceID string) (*provider.VariationsOutput, error) {
	if _, ok := provider.ServiceCategory(serviceID); !ok {
		return nil, fmt.Errorf("service %s: %w", serviceID, ErrUnknownService)
	}
	return s.vtu.GetServiceVariations(ctx, serviceID)
}

// VerifyCustomer resolves the account holder behind a meter number or smart
// card before any money moves.
func (s *VTUService) VerifyCustomer(ctx context.Context, req *types.VerifyCustomerRequest) (*provider.VerifyCustomerOutput, error) {
	if _, ok := provider.ServiceCategory(req.ServiceID); !ok {
		return nil, fmt.Errorf("service %s: %w", req.ServiceID, ErrUnknownService)
	}
	return s.vtu.VerifyCustomer(ctx, req.ServiceID, strings.TrimSpace(req.BillerCode))
}

// Purchase submits a VTU order. The request ID is reserved in storage
// before the wallet debit and the upstream call, so a reused ID returns
// the stored order instead of charging twice. A provider timeout leaves
// the order processing: only a requery may settle it.
func (s *VTUService) Purchase(ctx context.Context, req *types.PurchaseRequest) (*entity.VTUOrder, error) {
	category, ok := provider.ServiceCategory(req.ServiceID)
	if !ok {
		return nil, fmt.Errorf("service %s: %w", req.ServiceID, ErrUnknownService)
	}

	requestID := strings.TrimSpace(req.RequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	} else {
		existing, err := s.orderRepo.FindByRequestID(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	now := time.Now().UTC()
	order := &entity.VTUOrder{
		RequestID:     requestID,
		CustomerEmail: strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		ServiceID:     req.ServiceID,
		Category:      category,
		AmountKobo:    req.AmountKobo,
		Phone:         strings.TrimSpace(req.Phone),
		BillerCode:    strings.TrimSpace(req.BillerCode),
		VariationCode: normalizeOptionalString(req.VariationCode),
		Status:        entity.VTUOrderStatusSubmitted,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.orderRepo.Create(ctx, order); err != nil {
		if errors.Is(err, repository.ErrVTUOrderAlreadyExists) {
			return nil, fmt.Errorf("request id %s: %w", requestID, ErrDuplicateReference)
		}
		return nil, err
	}

	if err := s.walletRepo.Debit(ctx, order.CustomerEmail, order.AmountKobo, time.Now().UTC()); err != nil {
		s.markOrderFailed(ctx, order, "insufficient funds")
		if errors.Is(err, repository.ErrInsufficientFunds) {
			return nil, fmt.Errorf("order %s: %w", requestID, ErrInsufficientFunds)
		}
		return nil, err
	}

	output, err := s.dispatchPurchase(ctx, category, provider.PurchaseInput{
		RequestID:     requestID,
		ServiceID:     order.ServiceID,
		AmountKobo:    order.AmountKobo,
		Phone:         order.Phone,
		BillerCode:    order.BillerCode,
		VariationCode: strings.TrimSpace(req.VariationCode),
	})
	if err != nil {
		var providerErr *provider.ProviderError
		if errors.As(err, &providerErr) {
			// Upstream rejected the order outright: refund immediately.
			s.markOrderFailed(ctx, order, providerErr.Message)
			s.refund(ctx, order)
			return nil, fmt.Errorf("order %s: %w", requestID, err)
		}
		// Transport failure after submission. The provider may still be
		// processing, so the debit stands until a requery settles it.
		order.Status = entity.VTUOrderStatusProcessing
		order.UpdatedAt = time.Now().UTC()
		if updateErr := s.orderRepo.Update(ctx, order); updateErr != nil {
			return nil, updateErr
		}
		return order, nil
	}

	s.applyPurchaseOutput(order, output)
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	if order.Status == entity.VTUOrderStatusFailed || order.Status == entity.VTUOrderStatusReversed {
		s.refund(ctx, order)
	}

	return order, nil
}

// Requery performs one status poll for a non-terminal order and applies any
// transition exactly once. Terminal orders are returned as stored.
func (s *VTUService) Requery(ctx context.Context, requestID string) (*entity.VTUOrder, error) {
	order, err := s.orderRepo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	if entity.VTUOrderStatusTerminal(order.Status) {
		return order, nil
	}

	output, err := s.vtu.Requery(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("requery %s: %w", requestID, err)
	}

	previous := order.Status
	s.applyPurchaseOutput(order, output)
	order.RequeryAttempts++
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	refundable := order.Status == entity.VTUOrderStatusFailed || order.Status == entity.VTUOrderStatusReversed
	if refundable && previous != order.Status {
		s.refund(ctx, order)
	}

	return order, nil
}

// RequeryUntilTerminal polls with doubling delays until the order settles
// or the attempt budget runs out. A budget exhausted on a still-processing
// order is ErrIndeterminate, never a synthesized failure.
func (s *VTUService) RequeryUntilTerminal(ctx context.Context, requestID string) (*entity.VTUOrder, error) {
	maxAttempts := s.billpayCfg.RequeryMaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	delay := s.billpayCfg.RequeryInitialDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	maxDelay := s.billpayCfg.RequeryMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	var order *entity.VTUOrder
	for attempt := int32(0); attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				return order, err
			}
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
		}

		var err error
		order, err = s.Requery(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if entity.VTUOrderStatusTerminal(order.Status) {
			return order, nil
		}
	}

	return order, fmt.Errorf("order %s: %w", requestID, ErrIndeterminate)
}

func (s *VTUService) ProviderBalance(ctx context.Context) (int64, error) {
	return s.vtu.WalletBalance(ctx)
}

func (s *VTUService) GetOrder(ctx context.Context, requestID string) (*entity.VTUOrder, error) {
	order, err := s.orderRepo.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *VTUService) dispatchPurchase(ctx context.Context, category string, input provider.PurchaseInput) (*provider.PurchaseOutput, error) {
	switch category {
	case provider.CategoryAirtime:
		return s.vtu.PurchaseAirtime(ctx, input)
	case provider.CategoryData, provider.CategoryInternet, provider.CategoryExams:
		return s.vtu.PurchaseData(ctx, input)
	case provider.CategoryElectricity:
		return s.vtu.PayElectricity(ctx, input)
	case provider.CategoryCableTV:
		return s.vtu.PayCableTV(ctx, input)
	default:
		return nil, fmt.Errorf("category %s: %w", category, ErrUnknownService)
	}
}

func (s *VTUService) applyPurchaseOutput(order *entity.VTUOrder, output *provider.PurchaseOutput) {
	if output.Status != 0 {
		order.Status = output.Status
	}
	order.ProviderStatus = normalizeOptionalString(output.ProviderStatus)
	order.UpdatedAt = time.Now().UTC()
}

func (s *VTUService) markOrderFailed(ctx context.Context, order *entity.VTUOrder, providerStatus string) {
	order.Status = entity.VTUOrderStatusFailed
	order.ProviderStatus = normalizeOptionalString(providerStatus)
	order.UpdatedAt = time.Now().UTC()
	_ = s.orderRepo.Update(ctx, order)
}

func (s *VTUService) refund(ctx context.Context, order *entity.VTUOrder) {
	_ = s.walletRepo.Credit(ctx, order.CustomerEmail, order.AmountKobo, time.Now().UTC())
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
