package repository

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

// ErrWebhookAlreadyApplied means a ledger row already exists for the
// transaction reference. The unique index on that column is what makes
// reconciliation idempotent under concurrent duplicate deliveries.
var ErrWebhookAlreadyApplied = errors.New("webhook already applied")

type WebhookEventRepository struct {
	db DBTX
}

func NewWebhookEventRepository(db DBTX) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

func (r *WebhookEventRepository) Create(ctx context.Context, event *entity.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (
			transaction_reference, payment_reference, amount_paid, paid_on,
			payload_json, applied_at
		)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		event.TransactionReference,
		event.PaymentReference,
		event.AmountPaid,
		event.PaidOn,
		event.PayloadJSON,
		event.AppliedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrWebhookAlreadyApplied
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	event.ID = uint64(id)
	return nil
}

func (r *WebhookEventRepository) Exists(ctx context.Context, transactionReference string) (bool, error) {
	query := `SELECT COUNT(1) FROM webhook_events WHERE transaction_reference = ?`

	var count int64
	if err := r.db.QueryRowContext(ctx, query, transactionReference).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}
