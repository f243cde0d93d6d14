package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, reference, customer_name, customer_email, amount_kobo, currency,
	description, status, provider_tx_ref, checkout_url,
	amount_paid_kobo, paid_on, created_at, updated_at
`

// Create inserts a payment row. The reference column carries a unique index;
// that constraint is the load-bearing guard against reference reuse, so the
// insert happens before the upstream call that consumes the reference.
func (r *PaymentRepository) Create(ctx context.Context, payment *entity.Payment) error {
	query := `
		INSERT INTO payments (
			reference, customer_name, customer_email, amount_kobo, currency,
			description, status, provider_tx_ref, checkout_url,
			amount_paid_kobo, paid_on, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.Reference,
		payment.CustomerName,
		payment.CustomerEmail,
		payment.AmountKobo,
		payment.Currency,
		payment.Description,
		payment.Status,
		nullableStringValue(payment.ProviderTxRef),
		nullableStringValue(payment.CheckoutURL),
		payment.AmountPaidKobo,
		nullableStringValue(payment.PaidOn),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payment.ID = uint64(id)
	return nil
}

func (r *PaymentRepository) Update(ctx context.Context, payment *entity.Payment) error {
	query := `
		UPDATE payments SET
			status = ?,
			provider_tx_ref = ?,
			checkout_url = ?,
			amount_paid_kobo = ?,
			paid_on = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		payment.Status,
		nullableStringValue(payment.ProviderTxRef),
		nullableStringValue(payment.CheckoutURL),
		payment.AmountPaidKobo,
		nullableStringValue(payment.PaidOn),
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) FindByReference(ctx context.Context, reference string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reference = ? LIMIT 1`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, reference), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) FindByProviderTxRef(ctx context.Context, providerTxRef string) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_tx_ref = ? LIMIT 1`

	payment := &entity.Payment{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, providerTxRef), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

// ListStalePending returns non-terminal payments last touched before the
// cutoff, for the reconcile job.
func (r *PaymentRepository) ListStalePending(ctx context.Context, before time.Time, limit int32) ([]*entity.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE status IN (?, ?) AND updated_at <= ? AND provider_tx_ref IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		entity.PaymentStatusInitialized,
		entity.PaymentStatusPending,
		before,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.Payment, 0)
	for rows.Next() {
		payment := &entity.Payment{}
		if err := scanPayment(rows, payment); err != nil {
			return nil, err
		}
		items = append(items, payment)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner, payment *entity.Payment) error {
	var providerTxRef, checkoutURL, paidOn sql.NullString

	err := row.Scan(
		&payment.ID,
		&payment.Reference,
		&payment.CustomerName,
		&payment.CustomerEmail,
		&payment.AmountKobo,
		&payment.Currency,
		&payment.Description,
		&payment.Status,
		&providerTxRef,
		&checkoutURL,
		&payment.AmountPaidKobo,
		&paidOn,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.ProviderTxRef = stringPtrFromNull(providerTxRef)
	payment.CheckoutURL = stringPtrFromNull(checkoutURL)
	payment.PaidOn = stringPtrFromNull(paidOn)
	return nil
}
