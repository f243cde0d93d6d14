package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func isDuplicateEntryError(err error) bool {
	var mysqlErr *mysqlDriver.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

func nullableStringValue(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func stringPtrFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func timePtrFromNull(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}

func serializeAccounts(accounts []entity.ReservedBankAccount) (string, error) {
	if accounts == nil {
		accounts = []entity.ReservedBankAccount{}
	}
	payload, err := json.Marshal(accounts)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

func parseAccounts(raw string) ([]entity.ReservedBankAccount, error) {
	if raw == "" {
		return []entity.ReservedBankAccount{}, nil
	}
	var accounts []entity.ReservedBankAccount
	if err := json.Unmarshal([]byte(raw), &accounts); err != nil {
		return nil, err
	}
	if accounts == nil {
		accounts = []entity.ReservedBankAccount{}
	}
	return accounts, nil
}
