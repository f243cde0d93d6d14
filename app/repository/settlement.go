package repository

import (
	"context"
	"database/sql"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

// SettlementRepository commits a webhook settlement as one unit: the ledger
// row, the payment transition, and the wallet credit either all land or none
// do. A partial write would strand the ledger row and make the duplicate
// guard swallow the provider's retry.
type SettlementRepository struct {
	db *sql.DB
}

func NewSettlementRepository(db *sql.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

// Apply returns ErrWebhookAlreadyApplied when a ledger row already exists
// for the transaction reference. Nothing is written in that case.
func (r *SettlementRepository) Apply(ctx context.Context, event *entity.WebhookEvent, payment *entity.Payment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := NewWebhookEventRepository(tx).Create(ctx, event); err != nil {
		return err
	}
	if err := NewPaymentRepository(tx).Update(ctx, payment); err != nil {
		return err
	}
	if err := NewWalletRepository(tx).Credit(ctx, payment.CustomerEmail, payment.AmountPaidKobo, payment.UpdatedAt); err != nil {
		return err
	}
	return tx.Commit()
}
