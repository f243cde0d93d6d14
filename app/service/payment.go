package service

import (
	"context"
	"encoding/json"
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

const defaultBatchSize = int32(100)

type bankTransferClient interface {
	CreateReservedAccount(ctx context.Context, input provider.ReservedAccountInput) (*provider.ReservedAccountOutput, error)
	GetReservedAccount(ctx context.Context, accountReference string) (*provider.ReservedAccountOutput, error)
	InitializePayment(ctx context.Context, input provider.InitPaymentInput) (*provider.InitPaymentOutput, error)
	VerifyTransaction(ctx context.Context, transactionReference string) (*provider.TransactionStatus, error)
	ListBanks(ctx context.Context) ([]provider.Bank, error)
	ListTransactions(ctx context.Context, page, size int) (json.RawMessage, error)
	SinglePayout(ctx context.Context, input provider.PayoutInput) (*provider.PayoutOutput, error)
	BulkPayout(ctx context.Context, title string, items []provider.PayoutInput) (*provider.BulkPayoutOutput, error)
	PayoutStatus(ctx context.Context, reference string) (*provider.PayoutOutput, error)
	WalletBalance(ctx context.Context) (*provider.WalletBalance, error)
}

type paymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	Update(ctx context.Context, payment *entity.Payment) error
	FindByReference(ctx context.Context, reference string) (*entity.Payment, error)
	FindByProviderTxRef(ctx context.Context, providerTxRef string) (*entity.Payment, error)
	ListStalePending(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error)
}

type reservedAccountRepository interface {
	Create(ctx context.Context, account *entity.ReservedAccount) error
	FindByReference(ctx context.Context, accountReference string) (*entity.ReservedAccount, error)
	FindByCustomerEmail(ctx context.Context, customerEmail string) (*entity.ReservedAccount, error)
}

type payoutRepository interface {
	Create(ctx context.Context, payout *entity.Payout) error
	UpdateStatus(ctx context.Context, payout *entity.Payout) error
	FindByReference(ctx context.Context, reference string) (*entity.Payout, error)
}

type webhookEventRepository interface {
	Exists(ctx context.Context, transactionReference string) (bool, error)
}

// settlementRepository applies a webhook event atomically. Apply must be
// all-or-nothing; a duplicate transaction reference surfaces as
// repository.ErrWebhookAlreadyApplied with no writes.
type settlementRepository interface {
	Apply(ctx context.Context, event *entity.WebhookEvent, payment *entity.Payment) error
}

type walletRepository interface {
	FindByCustomerEmail(ctx context.Context, customerEmail string) (*entity.Wallet, error)
	Credit(ctx context.Context, customerEmail string, amountKobo int64, now time.Time) error
	Debit(ctx context.Context, customerEmail string, amountKobo int64, now time.Time) error
}

type idempotencyStore interface {
	ClaimEvent(ctx context.Context, transactionReference string) (bool, error)
	MarkApplied(ctx context.Context, transactionReference string) error
	Release(ctx context.Context, transactionReference string)
}

// PaymentService drives customer payments from provisioning through
// webhook-confirmed settlement, plus payouts.
type PaymentService struct {
	bank         bankTransferClient
	paymentRepo  paymentRepository
	accountRepo  reservedAccountRepository
	payoutRepo   payoutRepository
	webhookRepo  webhookEventRepository
	walletRepo   walletRepository
	settlements  settlementRepository
	idempotency  idempotencyStore
	clientSecret string
	billpayCfg   config.BillpayConfig
}

func NewPaymentService(
	bank bankTransferClient,
	paymentRepo paymentRepository,
	accountRepo reservedAccountRepository,
	payoutRepo payoutRepository,
	webhookRepo webhookEventRepository,
	walletRepo walletRepository,
	settlements settlementRepository,
	idempotency idempotencyStore,
	clientSecret string,
	billpayCfg config.BillpayConfig,
) *PaymentService {
	return &PaymentService{
		bank:         bank,
		paymentRepo:  paymentRepo,
		accountRepo:  accountRepo,
		payoutRepo:   payoutRepo,
		webhookRepo:  webhookRepo,
		walletRepo:   walletRepo,
		settlements:  settlements,
		idempotency:  idempotency,
		clientSecret: strings.TrimSpace(clientSecret),
		billpayCfg:   billpayCfg,
	}
}

// ProvisionAccount reserves a virtual account for a customer. A caller that
// reuses the same account reference gets the stored account back; a
// reference the provider has already seen surfaces as ErrDuplicateReference.
func (s *PaymentService) ProvisionAccount(ctx context.Context, req *types.ProvisionAccountRequest) (*entity.ReservedAccount, error) {
	reference := strings.TrimSpace(req.AccountReference)
	if reference == "" {
		reference = uuid.NewString()
	} else {
		existing, err := s.accountRepo.FindByReference(ctx, reference)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	}

	output, err := s.bank.CreateReservedAccount(ctx, provider.ReservedAccountInput{
		AccountReference: reference,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerEmail:    strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		BVN:              normalizeOptionalString(req.BVN),
		CurrencyCode:     "NGN",
	})
	if err != nil {
		if errors.Is(err, provider.ErrDuplicateReference) {
			return nil, fmt.Errorf("account reference %s: %w", reference, ErrDuplicateReference)
		}
		return nil, fmt.Errorf("provision account %s: %w", reference, err)
	}

	now := time.Now().UTC()
	account := &entity.ReservedAccount{
		AccountReference: reference,
		CustomerName:     strings.TrimSpace(req.CustomerName),
		CustomerEmail:    strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		BVN:              normalizeOptionalString(req.BVN),
		CurrencyCode:     "NGN",
		Accounts:         output.Accounts,
		CreatedAt:        now,
	}

	if err := s.accountRepo.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrReservedAccountAlreadyExists) {
			return nil, fmt.Errorf("account reference %s: %w", reference, ErrDuplicateReference)
		}
		return nil, err
	}

	return account, nil
}

// GetReservedAccount serves from storage first and falls back to the
// provider, which may still know a reference that is missing locally, for
// example after a restore from an older snapshot.
func (s *PaymentService) GetReservedAccount(ctx context.Context, accountReference string) (*entity.ReservedAccount, error) {
	account, err := s.accountRepo.FindByReference(ctx, accountReference)
	if err != nil {
		return nil, err
	}
	if account != nil {
		return account, nil
	}

	output, err := s.bank.GetReservedAccount(ctx, accountReference)
	if err != nil {
		var providerErr *provider.ProviderError
		if errors.As(err, &providerErr) {
			return nil, fmt.Errorf("account reference %s: %w", accountReference, ErrReservedAccountNotFound)
		}
		return nil, err
	}
	return &entity.ReservedAccount{
		AccountReference: output.AccountReference,
		CustomerEmail:    strings.ToLower(strings.TrimSpace(output.CustomerEmail)),
		CurrencyCode:     "NGN",
		Accounts:         output.Accounts,
	}, nil
}

// ListProviderTransactions pages through the provider's transaction search.
// The provider's body is passed through untouched; it is a reporting
// surface, not part of the payment state machine.
func (s *PaymentService) ListProviderTransactions(ctx context.Context, page, size int) (json.RawMessage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = 20
	}
	return s.bank.ListTransactions(ctx, page, size)
}

// InitiatePayment reserves the caller's reference in storage before
// contacting the provider, so the unique index rejects a concurrent reuse
// before any money can move.
func (s *PaymentService) InitiatePayment(ctx context.Context, req *types.InitiatePaymentRequest) (*entity.Payment, error) {
	reference := strings.TrimSpace(req.Reference)
	if reference == "" {
		reference = uuid.NewString()
	}

	now := time.Now().UTC()
	payment := &entity.Payment{
		Reference:     reference,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.ToLower(strings.TrimSpace(req.CustomerEmail)),
		AmountKobo:    req.AmountKobo,
		Currency:      "NGN",
		Description:   strings.TrimSpace(req.Description),
		Status:        entity.PaymentStatusInitialized,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrPaymentAlreadyExists) {
			return nil, fmt.Errorf("payment reference %s: %w", reference, ErrDuplicateReference)
		}
		return nil, err
	}

	output, err := s.bank.InitializePayment(ctx, provider.InitPaymentInput{
		AmountKobo:       req.AmountKobo,
		CustomerName:     payment.CustomerName,
		CustomerEmail:    payment.CustomerEmail,
		PaymentReference: reference,
		Description:      payment.Description,
		RedirectURL:      strings.TrimSpace(req.RedirectURL),
	})
	if err != nil {
		var providerErr *provider.ProviderError
		if errors.As(err, &providerErr) {
			payment.Status = entity.PaymentStatusFailed
			payment.UpdatedAt = time.Now().UTC()
			_ = s.paymentRepo.Update(ctx, payment)
		}
		// A transport timeout leaves the payment initialized: the provider
		// may have accepted the transaction, so only verification or a
		// webhook may decide the outcome.
		if errors.Is(err, provider.ErrDuplicateReference) {
			return nil, fmt.Errorf("payment reference %s: %w", reference, ErrDuplicateReference)
		}
		return nil, fmt.Errorf("initiate payment %s: %w", reference, err)
	}

	payment.Status = entity.PaymentStatusPending
	payment.ProviderTxRef = normalizeOptionalString(output.TransactionReference)
	payment.CheckoutURL = normalizeOptionalString(output.CheckoutURL)
	payment.UpdatedAt = time.Now().UTC()
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

// ConfirmPayment is the synchronous poll path used when no webhook arrived
// within the expected window. A non-terminal answer is a valid result, not
// an error.
func (s *PaymentService) ConfirmPayment(ctx context.Context, reference string) (*entity.Payment, error) {
	payment, err := s.paymentRepo.FindByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if entity.PaymentStatusTerminal(payment.Status) || payment.ProviderTxRef == nil {
		return payment, nil
	}

	status, err := s.bank.VerifyTransaction(ctx, *payment.ProviderTxRef)
	if err != nil {
		return nil, fmt.Errorf("confirm payment %s: %w", reference, err)
	}
	if status.Status == 0 || status.Status == payment.Status {
		return payment, nil
	}

	payment.Status = status.Status
	if status.Status == entity.PaymentStatusPaid {
		payment.AmountPaidKobo = status.AmountPaidKobo
		payment.PaidOn = normalizeOptionalString(status.PaidOn)
	}
	payment.UpdatedAt = time.Now().UTC()
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	return payment, nil
}

func (s *PaymentService) ListBanks(ctx context.Context) ([]provider.Bank, error) {
	return s.bank.ListBanks(ctx)
}

func (s *PaymentService) ProviderBalance(ctx context.Context) (*provider.WalletBalance, error) {
	return s.bank.WalletBalance(ctx)
}

func (s *PaymentService) CustomerWallet(ctx context.Context, customerEmail string) (*entity.Wallet, error) {
	wallet, err := s.walletRepo.FindByCustomerEmail(ctx, strings.ToLower(strings.TrimSpace(customerEmail)))
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return &entity.Wallet{CustomerEmail: strings.ToLower(strings.TrimSpace(customerEmail))}, nil
	}
	return wallet, nil
}

func (s *PaymentService) batchSize() int32 {
	if s.billpayCfg.JobBatchSize > 0 {
		return s.billpayCfg.JobBatchSize
	}
	return defaultBatchSize
}

func normalizeOptionalString(v string) *string {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
