package ledger

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockward/stockward/internal/platform/db"
	"github.com/stockward/stockward/internal/products"
	"github.com/stockward/stockward/internal/shared"
)

// TxRepository exposes the operations that must commit as one atomic unit:
// the stock compare-and-swap, the Sale append and the alert-flag update.
type TxRepository interface {
	// UpdateStockCAS writes the new stock level and alert flag only if the
	// product row still carries expectedVersion. Returns
	// products.ErrVersionConflict when a concurrent writer won.
	UpdateStockCAS(ctx context.Context, productID uuid.UUID, expectedVersion int64, stock int, alertSent bool) error
	InsertSale(ctx context.Context, sale Sale) error
}

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetProduct loads an active (non-tombstoned) product regardless of owner,
// so the service can distinguish NotFound from Forbidden.
func (r *Repository) GetProduct(ctx context.Context, productID uuid.UUID) (products.Product, error) {
	query := `SELECT id, account_id, sku, name, stock_current, stock_minimum, alert_sent, version, created_at, updated_at, deleted_at
		FROM products WHERE id = $1 AND deleted_at IS NULL`
	var p products.Product
	err := r.pool.QueryRow(ctx, query, productID).Scan(&p.ID, &p.AccountID, &p.SKU, &p.Name, &p.StockCurrent, &p.StockMinimum, &p.AlertSent, &p.Version, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return products.Product{}, shared.ErrNotFound
		}
		return products.Product{}, shared.Infra("ledger: get product", err)
	}
	return p, nil
}

// WithTx executes the callback inside a repeatable-read transaction.
// Serialization aborts are folded into the version-conflict path so the
// service's compare-and-swap loop retries them.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
	if errors.Is(err, db.ErrSerialization) {
		return products.ErrVersionConflict
	}
	return err
}

type txRepo struct {
	tx pgx.Tx
}

func (r *txRepo) UpdateStockCAS(ctx context.Context, productID uuid.UUID, expectedVersion int64, stock int, alertSent bool) error {
	tag, err := r.tx.Exec(ctx, `UPDATE products
		SET stock_current = $1, alert_sent = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5 AND deleted_at IS NULL`,
		stock, alertSent, time.Now().UTC(), productID, expectedVersion)
	if err != nil {
		return shared.Infra("ledger: update stock", err)
	}
	if tag.RowsAffected() == 0 {
		return products.ErrVersionConflict
	}
	return nil
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sales (id, product_id, account_id, quantity, stock_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		sale.ID, sale.ProductID, sale.AccountID, sale.Quantity, sale.StockAfter, sale.CreatedAt)
	if err != nil {
		return shared.Infra("ledger: insert sale", err)
	}
	return nil
}

// ListSales returns the account's sales, newest first.
func (r *Repository) ListSales(ctx context.Context, accountID uuid.UUID, filter SaleFilter) ([]Sale, int, error) {
	where := ` WHERE account_id = $1`
	args := []any{accountID}
	if filter.ProductID != nil {
		args = append(args, *filter.ProductID)
		where += ` AND product_id = $` + strconv.Itoa(len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sales`+where, args...).Scan(&total); err != nil {
		return nil, 0, shared.Infra("ledger: count sales", err)
	}

	query := `SELECT id, product_id, account_id, quantity, stock_after, created_at FROM sales` + where + ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, shared.Infra("ledger: list sales", err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.ProductID, &s.AccountID, &s.Quantity, &s.StockAfter, &s.CreatedAt); err != nil {
			return nil, 0, shared.Infra("ledger: scan sale", err)
		}
		sales = append(sales, s)
	}
	return sales, total, rows.Err()
}

// GetSale fetches one sale scoped to the account.
func (r *Repository) GetSale(ctx context.Context, accountID, saleID uuid.UUID) (Sale, error) {
	var s Sale
	err := r.pool.QueryRow(ctx, `SELECT id, product_id, account_id, quantity, stock_after, created_at FROM sales WHERE id = $1 AND account_id = $2`, saleID, accountID).
		Scan(&s.ID, &s.ProductID, &s.AccountID, &s.Quantity, &s.StockAfter, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, shared.ErrNotFound
		}
		return Sale{}, shared.Infra("ledger: get sale", err)
	}
	return s, nil
}

// SalesStats aggregates the account's sales history, tombstoned products included.
func (r *Repository) SalesStats(ctx context.Context, accountID uuid.UUID) (Stats, error) {
	var stats Stats
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM sales WHERE account_id = $1`, accountID).
		Scan(&stats.TotalSales, &stats.TotalUnitsSold)
	if err != nil {
		return Stats{}, shared.Infra("ledger: stats", err)
	}

	err = r.pool.QueryRow(ctx, `SELECT p.name, SUM(s.quantity) AS sold
		FROM sales s JOIN products p ON p.id = s.product_id
		WHERE s.account_id = $1
		GROUP BY p.name ORDER BY sold DESC LIMIT 1`, accountID).
		Scan(&stats.TopProductName, &stats.TopProductSold)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return Stats{}, shared.Infra("ledger: stats top product", err)
	}
	return stats, nil
}
