package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vibast-solutions/ms-go-billpay/app/entity"
)

var (
	ErrVTUOrderNotFound      = errors.New("vtu order not found")
	ErrVTUOrderAlreadyExists = errors.New("vtu order already exists")
)

type VTUOrderRepository struct {
	db DBTX
}

func NewVTUOrderRepository(db DBTX) *VTUOrderRepository {
	return &VTUOrderRepository{db: db}
}

const vtuOrderColumns = `
	id, request_id, customer_email, service_id, category, amount_kobo,
	phone, biller_code, variation_code, status, provider_status,
	requery_attempts, created_at, updated_at
`

func (r *VTUOrderRepository) Create(ctx context.Context, order *entity.VTUOrder) error {
	query := `
		INSERT INTO vtu_orders (
			request_id, customer_email, service_id, category, amount_kobo,
			phone, biller_code, variation_code, status, provider_status,
			requery_attempts, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		order.RequestID,
		order.CustomerEmail,
		order.ServiceID,
		order.Category,
		order.AmountKobo,
		order.Phone,
		order.BillerCode,
		nullableStringValue(order.VariationCode),
		order.Status,
		nullableStringValue(order.ProviderStatus),
		order.RequeryAttempts,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrVTUOrderAlreadyExists
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	order.ID = uint64(id)
	return nil
}

func (r *VTUOrderRepository) Update(ctx context.Context, order *entity.VTUOrder) error {
	query := `
		UPDATE vtu_orders SET
			status = ?,
			provider_status = ?,
			requery_attempts = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		order.Status,
		nullableStringValue(order.ProviderStatus),
		order.RequeryAttempts,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVTUOrderNotFound
	}
	return nil
}

func (r *VTUOrderRepository) FindByRequestID(ctx context.Context, requestID string) (*entity.VTUOrder, error) {
	query := `SELECT ` + vtuOrderColumns + ` FROM vtu_orders WHERE request_id = ? LIMIT 1`

	order := &entity.VTUOrder{}
	if err := scanVTUOrder(r.db.QueryRowContext(ctx, query, requestID), order); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return order, nil
}

// ListStaleProcessing returns orders still awaiting a terminal status whose
// last update is older than the cutoff, for the requery job.
func (r *VTUOrderRepository) ListStaleProcessing(ctx context.Context, before time.Time, limit int32) ([]*entity.VTUOrder, error) {
	query := `
		SELECT ` + vtuOrderColumns + `
		FROM vtu_orders
		WHERE status IN (?, ?) AND updated_at <= ?
		ORDER BY updated_at ASC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query,
		entity.VTUOrderStatusSubmitted,
		entity.VTUOrderStatusProcessing,
		before,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]*entity.VTUOrder, 0)
	for rows.Next() {
		order := &entity.VTUOrder{}
		if err := scanVTUOrder(rows, order); err != nil {
			return nil, err
		}
		items = append(items, order)
	}
	return items, rows.Err()
}

func scanVTUOrder(row rowScanner, order *entity.VTUOrder) error {
	var variationCode, providerStatus sql.NullString

	err := row.Scan(
		&order.ID,
		&order.RequestID,
		&order.CustomerEmail,
		&order.ServiceID,
		&order.Category,
		&order.AmountKobo,
		&order.Phone,
		&order.BillerCode,
		&variationCode,
		&order.Status,
		&providerStatus,
		&order.RequeryAttempts,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return err
	}

	order.VariationCode = stringPtrFromNull(variationCode)
	order.ProviderStatus = stringPtrFromNull(providerStatus)
	return nil
}
