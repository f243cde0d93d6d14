package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

var (
	ErrPayoutNotFound      = errors.New("payout not found")
	ErrPayoutAlreadyExists = errors.New("payout already exists")
)

type PayoutRepository struct {
	db DBTX
}

func NewPayoutRepository(db DBTX) *PayoutRepository {
	return &PayoutRepository{db: db}
}

func (r *PayoutRepository) Create(ctx context.Context, payout *entity.Payout) error {
	query := `
		INSERT INTO payouts (
			reference, batch_reference, narration,
			destination_bank_code, destination_account_number, destination_account_name,
			amount_kobo, currency, status, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		payout.Reference,
		nullableStringValue(payout.BatchReference),
		payout.Narration,
		payout.DestinationBankCode,
		payout.DestinationAccountNumber,
		payout.DestinationAccountName,
		payout.AmountKobo,
		payout.Currency,
		payout.Status,
		payout.CreatedAt,
		payout.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPayoutAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	payout.ID = uint64(id)
	return nil
}

func (r *PayoutRepository) UpdateStatus(ctx context.Context, payout *entity.Payout) error {
	query := `UPDATE payouts SET status = ?, updated_at = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, payout.Status, payout.UpdatedAt, payout.ID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPayoutNotFound
	}
	return nil
}

func (r *PayoutRepository) FindByReference(ctx context.Context, reference string) (*entity.Payout, error) {
	query := `
		SELECT id, reference, batch_reference, narration,
			destination_bank_code, destination_account_number, destination_account_name,
			amount_kobo, currency, status, created_at, updated_at
		FROM payouts
		WHERE reference = ?
		LIMIT 1
	`

	payout := &entity.Payout{}
	var batchReference sql.NullString

	err := r.db.QueryRowContext(ctx, query, reference).Scan(
		&payout.ID,
		&payout.Reference,
		&batchReference,
		&payout.Narration,
		&payout.DestinationBankCode,
		&payout.DestinationAccountNumber,
		&payout.DestinationAccountName,
		&payout.AmountKobo,
		&payout.Currency,
		&payout.Status,
		&payout.CreatedAt,
		&payout.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	payout.BatchReference = stringPtrFromNull(batchReference)
	return payout, nil
}
