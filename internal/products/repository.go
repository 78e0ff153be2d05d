package products

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockward/stockward/internal/shared"
)

// Repository defines persistence operations for the product store.
type Repository interface {
	Create(ctx context.Context, product Product) (Product, error)
	Get(ctx context.Context, id uuid.UUID) (Product, error)
	GetBySKU(ctx context.Context, accountID uuid.UUID, sku string) (Product, error)
	List(ctx context.Context, accountID uuid.UUID, filter ListFilter) ([]Product, int, error)
	Update(ctx context.Context, product Product) (Product, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

const productColumns = `id, account_id, sku, name, stock_current, stock_minimum, alert_sent, version, created_at, updated_at, deleted_at`

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now().UTC()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	query := `INSERT INTO products (id, account_id, sku, name, stock_current, stock_minimum, alert_sent, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $8)`
	_, err := r.pool.Exec(ctx, query, product.ID, product.AccountID, product.SKU, product.Name, product.StockCurrent, product.StockMinimum, product.AlertSent, now)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, shared.Infra("products: create", err)
	}
	product.Version = 1
	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Get(ctx context.Context, id uuid.UUID) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, id)
}

func (r *repository) GetBySKU(ctx context.Context, accountID uuid.UUID, sku string) (Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE account_id = $1 AND sku = $2 AND deleted_at IS NULL`
	return r.scanOne(ctx, query, accountID, sku)
}

func (r *repository) List(ctx context.Context, accountID uuid.UUID, filter ListFilter) ([]Product, int, error) {
	where := ` WHERE account_id = $1 AND deleted_at IS NULL`
	if filter.LowStockOnly {
		where += ` AND stock_current <= stock_minimum`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products`+where, accountID).Scan(&total); err != nil {
		return nil, 0, shared.Infra("products: count", err)
	}

	query := `SELECT ` + productColumns + ` FROM products` + where + ` ORDER BY sku ASC`
	args := []any{accountID}
	if filter.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(len(args)+1)
		args = append(args, filter.Limit)
		query += ` OFFSET $` + strconv.Itoa(len(args)+1)
		offset := filter.Offset
		if offset < 0 {
			offset = 0
		}
		args = append(args, offset)
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, shared.Infra("products: list", err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, shared.Infra("products: scan", err)
		}
		list = append(list, p)
	}
	return list, total, rows.Err()
}

// Update writes mutable fields guarded by the version column. It returns
// ErrVersionConflict when a concurrent writer got there first.
func (r *repository) Update(ctx context.Context, product Product) (Product, error) {
	now := time.Now().UTC()
	query := `UPDATE products
		SET sku = $1, name = $2, stock_current = $3, stock_minimum = $4, alert_sent = $5, version = version + 1, updated_at = $6
		WHERE id = $7 AND version = $8 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, query, product.SKU, product.Name, product.StockCurrent, product.StockMinimum, product.AlertSent, now, product.ID, product.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return Product{}, ErrDuplicateSKU
		}
		return Product{}, shared.Infra("products: update", err)
	}
	if tag.RowsAffected() == 0 {
		return Product{}, ErrVersionConflict
	}
	product.Version++
	product.UpdatedAt = now
	return product, nil
}

// SoftDelete tombstones the product. Historical sales keep referencing it.
func (r *repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	tag, err := r.pool.Exec(ctx, `UPDATE products SET deleted_at = $1, updated_at = $1 WHERE id = $2 AND deleted_at IS NULL`, now, id)
	if err != nil {
		return shared.Infra("products: delete", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) scanOne(ctx context.Context, query string, args ...any) (Product, error) {
	row := r.pool.QueryRow(ctx, query, args...)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, shared.Infra("products: get", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.AccountID, &p.SKU, &p.Name, &p.StockCurrent, &p.StockMinimum, &p.AlertSent, &p.Version, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt)
	return p, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
