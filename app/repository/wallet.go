package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

var (
	ErrWalletNotFound    = errors.New("wallet not found")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
)

type WalletRepository struct {
	db DBTX
}

func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) FindByCustomerEmail(ctx context.Context, customerEmail string) (*entity.Wallet, error) {
	query := `
		SELECT id, customer_email, balance_kobo, created_at, updated_at
		FROM wallets
		WHERE customer_email = ?
		LIMIT 1
	`

	wallet := &entity.Wallet{}
	err := r.db.QueryRowContext(ctx, query, customerEmail).Scan(
		&wallet.ID,
		&wallet.CustomerEmail,
		&wallet.BalanceKobo,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return wallet, nil
}

// Credit adds to the customer's balance, creating the wallet on first
// credit. The balance mutation happens in the database, not in application
// memory.
func (r *WalletRepository) Credit(ctx context.Context, customerEmail string, amountKobo int64, now time.Time) error {
	query := `
		INSERT INTO wallets (customer_email, balance_kobo, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE balance_kobo = balance_kobo + VALUES(balance_kobo), updated_at = VALUES(updated_at)
	`

	_, err := r.db.ExecContext(ctx, query, customerEmail, amountKobo, now, now)
	return err
}

// Debit subtracts from the balance only when sufficient funds exist; the
// conditional update keeps the check and the mutation atomic.
func (r *WalletRepository) Debit(ctx context.Context, customerEmail string, amountKobo int64, now time.Time) error {
	query := `
		UPDATE wallets
		SET balance_kobo = balance_kobo - ?, updated_at = ?
		WHERE customer_email = ? AND balance_kobo >= ?
	`

	result, err := r.db.ExecContext(ctx, query, amountKobo, now, customerEmail, amountKobo)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrInsufficientFunds
	}
	return nil
}
