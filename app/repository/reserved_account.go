package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

var ErrReservedAccountAlreadyExists = errors.New("reserved account already exists")

type ReservedAccountRepository struct {
	db DBTX
}

func NewReservedAccountRepository(db DBTX) *ReservedAccountRepository {
	return &ReservedAccountRepository{db: db}
}

func (r *ReservedAccountRepository) Create(ctx context.Context, account *entity.ReservedAccount) error {
	accountsJSON, err := serializeAccounts(account.Accounts)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reserved_accounts (
			account_reference, customer_name, customer_email, bvn,
			currency_code, accounts_json, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		account.AccountReference,
		account.CustomerName,
		account.CustomerEmail,
		nullableStringValue(account.BVN),
		account.CurrencyCode,
		accountsJSON,
		account.CreatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrReservedAccountAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = uint64(id)
	return nil
}

func (r *ReservedAccountRepository) FindByReference(ctx context.Context, accountReference string) (*entity.ReservedAccount, error) {
	query := `
		SELECT id, account_reference, customer_name, customer_email, bvn,
			currency_code, accounts_json, created_at
		FROM reserved_accounts
		WHERE account_reference = ?
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, accountReference))
}

func (r *ReservedAccountRepository) FindByCustomerEmail(ctx context.Context, customerEmail string) (*entity.ReservedAccount, error) {
	query := `
		SELECT id, account_reference, customer_name, customer_email, bvn,
			currency_code, accounts_json, created_at
		FROM reserved_accounts
		WHERE customer_email = ?
		LIMIT 1
	`

	return r.scanOne(r.db.QueryRowContext(ctx, query, customerEmail))
}

func (r *ReservedAccountRepository) scanOne(row *sql.Row) (*entity.ReservedAccount, error) {
	account := &entity.ReservedAccount{}
	var bvn sql.NullString
	var accountsJSON string

	err := row.Scan(
		&account.ID,
		&account.AccountReference,
		&account.CustomerName,
		&account.CustomerEmail,
		&bvn,
		&account.CurrencyCode,
		&accountsJSON,
		&account.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	account.BVN = stringPtrFromNull(bvn)
	accounts, err := parseAccounts(accountsJSON)
	if err != nil {
		return nil, err
	}
	account.Accounts = accounts
	return account, nil
}
