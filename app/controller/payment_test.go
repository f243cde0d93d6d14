package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-billpay/app/entity"
	"github.com/vibast-solutions/ms-go-billpay/app/provider"
	"github.com/vibast-solutions/ms-go-billpay/app/repository"
	"github.com/vibast-solutions/ms-go-billpay/app/service"
	"github.com/vibast-solutions/ms-go-billpay/app/types"
	"github.com/vibast-solutions/ms-go-billpay/config"
)

type ctrlBank struct {
	initErr error
}

func (b *ctrlBank) CreateReservedAccount(_ context.Context, input provider.ReservedAccountInput) (*provider.ReservedAccountOutput, error) {
	return &provider.ReservedAccountOutput{
		AccountReference: input.AccountReference,
		CustomerEmail:    input.CustomerEmail,
		Accounts: []entity.ReservedBankAccount{
			{BankCode: "035", BankName: "Wema bank", AccountNumber: "1234567890"},
		},
	}, nil
}

func (b *ctrlBank) GetReservedAccount(_ context.Context, accountReference string) (*provider.ReservedAccountOutput, error) {
	return &provider.ReservedAccountOutput{AccountReference: accountReference}, nil
}

func (b *ctrlBank) ListTransactions(context.Context, int, int) (json.RawMessage, error) {
	return json.RawMessage(`{"content":[],"totalElements":0}`), nil
}

func (b *ctrlBank) InitializePayment(_ context.Context, input provider.InitPaymentInput) (*provider.InitPaymentOutput, error) {
	if b.initErr != nil {
		return nil, b.initErr
	}
	return &provider.InitPaymentOutput{
		TransactionReference: "MNFY|TX|" + input.PaymentReference,
		CheckoutURL:          "https://checkout.example/" + input.PaymentReference,
	}, nil
}

func (b *ctrlBank) VerifyTransaction(context.Context, string) (*provider.TransactionStatus, error) {
	return &provider.TransactionStatus{Status: entity.PaymentStatusPending, ProviderStatus: "PENDING"}, nil
}

func (b *ctrlBank) ListBanks(context.Context) ([]provider.Bank, error) {
	return []provider.Bank{{Name: "Wema bank", Code: "035"}}, nil
}

func (b *ctrlBank) SinglePayout(_ context.Context, input provider.PayoutInput) (*provider.PayoutOutput, error) {
	return &provider.PayoutOutput{Reference: input.Reference, Status: entity.PayoutStatusProcessing, ProviderStatus: "PENDING"}, nil
}

func (b *ctrlBank) BulkPayout(_ context.Context, _ string, items []provider.PayoutInput) (*provider.BulkPayoutOutput, error) {
	references := make([]string, 0, len(items))
	for _, item := range items {
		references = append(references, item.Reference)
	}
	return &provider.BulkPayoutOutput{BatchReference: "batch-1", ItemReferences: references, Status: entity.PayoutStatusProcessing}, nil
}

func (b *ctrlBank) PayoutStatus(_ context.Context, reference string) (*provider.PayoutOutput, error) {
	return &provider.PayoutOutput{Reference: reference, Status: entity.PayoutStatusCompleted, ProviderStatus: "SUCCESS"}, nil
}

func (b *ctrlBank) WalletBalance(context.Context) (*provider.WalletBalance, error) {
	return &provider.WalletBalance{AvailableKobo: 100000, LedgerKobo: 100000}, nil
}

type ctrlPaymentRepo struct {
	payments map[string]*entity.Payment
}

func (r *ctrlPaymentRepo) Create(_ context.Context, payment *entity.Payment) error {
	if _, ok := r.payments[payment.Reference]; ok {
		return repository.ErrPaymentAlreadyExists
	}
	copyItem := *payment
	r.payments[payment.Reference] = &copyItem
	return nil
}

func (r *ctrlPaymentRepo) Update(_ context.Context, payment *entity.Payment) error {
	copyItem := *payment
	r.payments[payment.Reference] = &copyItem
	return nil
}

func (r *ctrlPaymentRepo) FindByReference(_ context.Context, reference string) (*entity.Payment, error) {
	item, ok := r.payments[reference]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *ctrlPaymentRepo) FindByProviderTxRef(context.Context, string) (*entity.Payment, error) {
	return nil, nil
}

func (r *ctrlPaymentRepo) ListStalePending(context.Context, time.Time, int32) ([]*entity.Payment, error) {
	return []*entity.Payment{}, nil
}

type ctrlAccountRepo struct {
	accounts map[string]*entity.ReservedAccount
}

func (r *ctrlAccountRepo) Create(_ context.Context, account *entity.ReservedAccount) error {
	if _, ok := r.accounts[account.AccountReference]; ok {
		return repository.ErrReservedAccountAlreadyExists
	}
	copyItem := *account
	r.accounts[account.AccountReference] = &copyItem
	return nil
}

func (r *ctrlAccountRepo) FindByReference(_ context.Context, accountReference string) (*entity.ReservedAccount, error) {
	item, ok := r.accounts[accountReference]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *ctrlAccountRepo) FindByCustomerEmail(context.Context, string) (*entity.ReservedAccount, error) {
	return nil, nil
}

type ctrlPayoutRepo struct{}

func (r *ctrlPayoutRepo) Create(context.Context, *entity.Payout) error       { return nil }
func (r *ctrlPayoutRepo) UpdateStatus(context.Context, *entity.Payout) error { return nil }
func (r *ctrlPayoutRepo) FindByReference(context.Context, string) (*entity.Payout, error) {
	return nil, nil
}

type ctrlWebhookRepo struct {
	events map[string]bool
}

func (r *ctrlWebhookRepo) Create(_ context.Context, event *entity.WebhookEvent) error {
	if r.events[event.TransactionReference] {
		return repository.ErrWebhookAlreadyApplied
	}
	r.events[event.TransactionReference] = true
	return nil
}

func (r *ctrlWebhookRepo) Exists(_ context.Context, transactionReference string) (bool, error) {
	return r.events[transactionReference], nil
}

type ctrlWalletRepo struct{}

func (r *ctrlWalletRepo) FindByCustomerEmail(context.Context, string) (*entity.Wallet, error) {
	return nil, nil
}
func (r *ctrlWalletRepo) Credit(context.Context, string, int64, time.Time) error { return nil }
func (r *ctrlWalletRepo) Debit(context.Context, string, int64, time.Time) error  { return nil }

type ctrlSettlementRepo struct {
	webhooks *ctrlWebhookRepo
	payments *ctrlPaymentRepo
	wallets  *ctrlWalletRepo
}

func (r *ctrlSettlementRepo) Apply(ctx context.Context, event *entity.WebhookEvent, payment *entity.Payment) error {
	if err := r.webhooks.Create(ctx, event); err != nil {
		return err
	}
	if err := r.payments.Update(ctx, payment); err != nil {
		return err
	}
	return r.wallets.Credit(ctx, payment.CustomerEmail, payment.AmountPaidKobo, payment.UpdatedAt)
}

type ctrlIdempotencyStore struct {
	held bool
}

func (s *ctrlIdempotencyStore) ClaimEvent(context.Context, string) (bool, error) {
	return !s.held, nil
}
func (s *ctrlIdempotencyStore) MarkApplied(context.Context, string) error { return nil }
func (s *ctrlIdempotencyStore) Release(context.Context, string)           {}

const ctrlSecret = "monnify-secret"

func newControllerForTest(bank *ctrlBank, paymentRepo *ctrlPaymentRepo) *PaymentController {
	return newControllerWithStores(bank, paymentRepo, &ctrlIdempotencyStore{})
}

func newControllerWithStores(bank *ctrlBank, paymentRepo *ctrlPaymentRepo, idempotency *ctrlIdempotencyStore) *PaymentController {
	webhookRepo := &ctrlWebhookRepo{events: map[string]bool{}}
	walletRepo := &ctrlWalletRepo{}
	paymentService := service.NewPaymentService(
		bank,
		paymentRepo,
		&ctrlAccountRepo{accounts: map[string]*entity.ReservedAccount{}},
		&ctrlPayoutRepo{},
		webhookRepo,
		walletRepo,
		&ctrlSettlementRepo{webhooks: webhookRepo, payments: paymentRepo, wallets: walletRepo},
		idempotency,
		ctrlSecret,
		config.BillpayConfig{RequeryMaxAttempts: 3, PendingTimeout: time.Hour, ReconcileStaleAfter: time.Minute, JobBatchSize: 100},
	)
	return NewPaymentController(paymentService)
}

func TestProvisionAccountBadBody(t *testing.T) {
	ctrl := newControllerForTest(&ctrlBank{}, &ctrlPaymentRepo{payments: map[string]*entity.Payment{}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString("{bad"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := ctrl.ProvisionAccount(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestProvisionAccountSuccess(t *testing.T) {
	ctrl := newControllerForTest(&ctrlBank{}, &ctrlPaymentRepo{payments: map[string]*entity.Payment{}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewBufferString(`{"account_reference":"acct-1","customer_name":"Ada Obi","customer_email":"a@x.com"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.ProvisionAccount(ctx)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload types.ReservedAccountEnvelopeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.Account == nil || payload.Account.AccountReference != "acct-1" {
		t.Fatalf("unexpected account payload: %+v", payload.Account)
	}
	if len(payload.Account.Accounts) != 1 || payload.Account.Accounts[0].AccountNumber != "1234567890" {
		t.Fatalf("unexpected bank accounts: %+v", payload.Account.Accounts)
	}
}

func TestInitiatePaymentDuplicateReferenceConflict(t *testing.T) {
	repo := &ctrlPaymentRepo{payments: map[string]*entity.Payment{
		"pay-1": {Reference: "pay-1", Status: entity.PaymentStatusPending},
	}}
	ctrl := newControllerForTest(&ctrlBank{}, repo)
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"reference":"pay-1","customer_name":"Ada Obi","customer_email":"a@x.com","amount_kobo":5000}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.InitiatePayment(ctx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestConfirmPaymentNotFound(t *testing.T) {
	ctrl := newControllerForTest(&ctrlBank{}, &ctrlPaymentRepo{payments: map[string]*entity.Payment{}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/payments/missing/confirm", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.SetParamNames("reference")
	ctx.SetParamValues("missing")

	_ = ctrl.ConfirmPayment(ctx)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandleWebhookSignatureMismatch(t *testing.T) {
	ctrl := newControllerForTest(&ctrlBank{}, &ctrlPaymentRepo{payments: map[string]*entity.Payment{}})
	e := echo.New()
	body := `{"transactionReference":"MNFY|TX|1","paymentReference":"pay-1","amountPaid":1500.00,"paidOn":"2026-08-30 10:15:00.000","transactionHash":"deadbeef"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/monnify", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.HandleWebhook(ctx)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandleWebhookAppliesSettlement(t *testing.T) {
	txRef := "MNFY|TX|pay-1"
	repo := &ctrlPaymentRepo{payments: map[string]*entity.Payment{
		"pay-1": {Reference: "pay-1", CustomerEmail: "a@x.com", Status: entity.PaymentStatusPending, ProviderTxRef: &txRef},
	}}
	ctrl := newControllerForTest(&ctrlBank{}, repo)

	hash := provider.ComputeWebhookHash(ctrlSecret, "MNFY|TX|pay-1", "1500.00", "2026-08-30 10:15:00.000", "pay-1")
	body := `{"transactionReference":"MNFY|TX|pay-1","paymentReference":"pay-1","amountPaid":1500.00,"paidOn":"2026-08-30 10:15:00.000","transactionHash":"` + hash + `"}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/monnify", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	_ = ctrl.HandleWebhook(ctx)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	stored, _ := repo.FindByReference(context.Background(), "pay-1")
	if stored.Status != entity.PaymentStatusPaid {
		t.Fatalf("expected paid after webhook, got %d", stored.Status)
	}
}

func TestHandleWebhookContendedClaimReturnsConflict(t *testing.T) {
	txRef := "MNFY|TX|pay-1"
	repo := &ctrlPaymentRepo{payments: map[string]*entity.Payment{
		"pay-1": {Reference: "pay-1", CustomerEmail: "a@x.com", Status: entity.PaymentStatusPending, ProviderTxRef: &txRef},
	}}
	ctrl := newControllerWithStores(&ctrlBank{}, repo, &ctrlIdempotencyStore{held: true})

	hash := provider.ComputeWebhookHash(ctrlSecret, "MNFY|TX|pay-1", "1500.00", "2026-08-30 10:15:00.000", "pay-1")
	body := `{"transactionReference":"MNFY|TX|pay-1","paymentReference":"pay-1","amountPaid":1500.00,"paidOn":"2026-08-30 10:15:00.000","transactionHash":"` + hash + `"}`

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/monnify", bytes.NewBufferString(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	// A concurrent delivery holds the claim. The provider must keep
	// redelivering, so the response cannot be a 2xx.
	_ = ctrl.HandleWebhook(ctx)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rec.Code, rec.Body.String())
	}

	stored, _ := repo.FindByReference(context.Background(), "pay-1")
	if stored.Status != entity.PaymentStatusPending {
		t.Fatalf("contended delivery must not change the payment, got %d", stored.Status)
	}
}

func TestListProviderTransactionsPassesBodyThrough(t *testing.T) {
	ctrl := newControllerForTest(&ctrlBank{}, &ctrlPaymentRepo{payments: map[string]*entity.Payment{}})
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/transactions?page=2&size=10", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := ctrl.ListProviderTransactions(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rec.Code, rec.Body.String())
	}

	var payload struct {
		TotalElements int `json:"totalElements"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
}
