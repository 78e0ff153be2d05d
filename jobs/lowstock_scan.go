package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockward/stockward/internal/products"
)

const (
	// TaskLowStockScan sweeps for products that slipped under their minimum
	// without an alert on record, e.g. after a missed dispatch or a manual
	// database correction. The sweep arms nothing by itself; it re-runs the
	// same transition the ledger applies.
	TaskLowStockScan = "stock:lowscan"
)

// LowStockScanPayload carries scheduling metadata.
type LowStockScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockScanTask constructs an Asynq task for the sweep.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockScan, body, asynq.Queue(QueueDefault)), nil
}

// AlertDispatcher delivers low-stock alerts for swept products.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, product products.Product)
}

// LowStockScanJob finds products in an unflagged low-stock state and fires
// their pending alert.
type LowStockScanJob struct {
	pool       *pgxpool.Pool
	dispatcher AlertDispatcher
	logger     *slog.Logger
}

// NewLowStockScanJob builds LowStockScanJob.
func NewLowStockScanJob(pool *pgxpool.Pool, dispatcher AlertDispatcher, logger *slog.Logger) *LowStockScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &LowStockScanJob{pool: pool, dispatcher: dispatcher, logger: logger}
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload LowStockScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	rows, err := j.pool.Query(ctx, `SELECT id, account_id, sku, name, stock_current, stock_minimum, alert_sent, version, created_at, updated_at
		FROM products
		WHERE deleted_at IS NULL AND stock_current <= stock_minimum AND alert_sent = FALSE`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var pending []products.Product
	for rows.Next() {
		var p products.Product
		if err := rows.Scan(&p.ID, &p.AccountID, &p.SKU, &p.Name, &p.StockCurrent, &p.StockMinimum, &p.AlertSent, &p.Version, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
		pending = append(pending, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, p := range pending {
		// Same compare-and-swap guard the ledger uses: only the writer that
		// flips the flag dispatches, so a concurrent sale cannot double-fire.
		tag, err := j.pool.Exec(ctx, `UPDATE products
			SET alert_sent = TRUE, version = version + 1, updated_at = $1
			WHERE id = $2 AND version = $3 AND alert_sent = FALSE`,
			time.Now().UTC(), p.ID, p.Version)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			continue
		}
		p.AlertSent = true
		if j.dispatcher != nil {
			j.dispatcher.Dispatch(ctx, p)
		}
	}

	j.logger.Info("low-stock sweep finished",
		slog.Int("pending", len(pending)),
		slog.Time("scheduled_for", payload.ScheduledFor))
	return nil
}
