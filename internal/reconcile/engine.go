package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/stockward/stockward/internal/products"
	"github.com/stockward/stockward/internal/shared"
)

// Mode selects how rows matching an existing SKU are handled.
type Mode string

const (
	// ModeCreateOnly leaves existing products untouched; matching rows are skipped.
	ModeCreateOnly Mode = "create_only"
	// ModeUpsert overwrites name and minimum of existing products from the row.
	ModeUpsert Mode = "upsert"
)

// Options configures a single reconciliation run.
type Options struct {
	Mode Mode
	// AuthoritativeStock makes the row's stock count win over the live
	// counter on upsert. Off by default: a spreadsheet exported hours ago
	// must not clobber sales recorded since.
	AuthoritativeStock bool
}

// ProductStore is the slice of the product repository the engine needs.
type ProductStore interface {
	GetBySKU(ctx context.Context, accountID uuid.UUID, sku string) (products.Product, error)
	Create(ctx context.Context, product products.Product) (products.Product, error)
	Update(ctx context.Context, product products.Product) (products.Product, error)
}

// MetricsPort records per-row outcomes.
type MetricsPort interface {
	RecordImportRow(outcome string)
}

const upsertMaxRetries = 3

// Engine folds a batch of import rows into the product store, one row at a
// time. Each row is its own unit of work: a rejected or conflicting row never
// rolls back its neighbours.
type Engine struct {
	store    ProductStore
	metrics  MetricsPort
	logger   *slog.Logger
	validate *validator.Validate
}

func NewEngine(store ProductStore, metrics MetricsPort, logger *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		metrics:  metrics,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Reconcile applies rows in order and returns the aggregated report. Only
// infrastructure failures abort the batch; everything else becomes a per-row
// outcome. Rows already counted before an abort have been committed.
func (e *Engine) Reconcile(ctx context.Context, accountID uuid.UUID, rows []Row, opts Options) (Report, error) {
	if opts.Mode == "" {
		opts.Mode = ModeCreateOnly
	}
	if opts.Mode != ModeCreateOnly && opts.Mode != ModeUpsert {
		return Report{}, fmt.Errorf("unknown import mode %q: %w", opts.Mode, shared.ErrValidation)
	}

	var report Report
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		detail, err := e.applyRow(ctx, accountID, row, opts, seen)
		if err != nil {
			return report, err
		}
		report.add(detail)
		if e.metrics != nil {
			e.metrics.RecordImportRow(string(detail.Outcome))
		}
	}
	e.logger.Info("import reconciled",
		"account_id", accountID,
		"total", report.Total,
		"created", report.Created,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"rejected", report.Rejected,
	)
	return report, nil
}

func (e *Engine) applyRow(ctx context.Context, accountID uuid.UUID, row Row, opts Options, seen map[string]struct{}) (RowDetail, error) {
	row = row.normalized()

	if reason := e.validateRow(row); reason != "" {
		return RowDetail{Line: row.Line, SKU: row.SKU, Outcome: OutcomeRejected, Reason: reason}, nil
	}
	if _, dup := seen[row.SKU]; dup {
		return RowDetail{Line: row.Line, SKU: row.SKU, Outcome: OutcomeSkippedDuplicate, Reason: "duplicate sku earlier in batch"}, nil
	}

	existing, err := e.store.GetBySKU(ctx, accountID, row.SKU)
	switch {
	case err == nil:
		detail, err := e.applyExisting(ctx, row, existing, opts)
		if err != nil {
			return RowDetail{}, err
		}
		seen[row.SKU] = struct{}{}
		return detail, nil
	case errors.Is(err, shared.ErrNotFound):
		detail, err := e.createFromRow(ctx, accountID, row)
		if err != nil {
			return RowDetail{}, err
		}
		seen[row.SKU] = struct{}{}
		return detail, nil
	default:
		return RowDetail{}, err
	}
}

func (e *Engine) createFromRow(ctx context.Context, accountID uuid.UUID, row Row) (RowDetail, error) {
	_, err := e.store.Create(ctx, products.Product{
		AccountID:    accountID,
		Name:         row.Name,
		SKU:          row.SKU,
		StockCurrent: row.StockCurrent,
		StockMinimum: row.StockMinimum,
	})
	switch {
	case err == nil:
		return RowDetail{Line: row.Line, SKU: row.SKU, Outcome: OutcomeCreated}, nil
	case errors.Is(err, products.ErrDuplicateSKU):
		// Raced with a concurrent writer; the record exists now, same as
		// having found it up front in create-only mode.
		return RowDetail{Line: row.Line, SKU: row.SKU, Outcome: OutcomeSkippedDuplicate, Reason: "sku already exists"}, nil
	default:
		return RowDetail{}, err
	}
}

func (e *Engine) applyExisting(ctx context.Context, row Row, existing products.Product, opts Options) (RowDetail, error) {
	if opts.Mode == ModeCreateOnly {
		return RowDetail{Line: row.Line, SKU: row.SKU, Outcome: OutcomeSkippedDuplicate, Reason: "sku already exists"}, nil
	}

	current := existing
	for attempt := 0; attempt < upsertMaxRetries; attempt++ {
		current.Name = row.Name
		current.StockMinimum = row.StockMinimum
		if opts.AuthoritativeStock {
			current.StockCurrent = row.StockCurrent
		}
		if current.StockCurrent > current.StockMinimum {
			current.AlertSent = false
		}

		_, err := e.store.Update(ctx, current)
		switch {
		case err == nil:
			return RowDetail{Line: row.Line, SKU: row.SKU, Outcome: OutcomeUpdated}, nil
		case errors.Is(err, products.ErrVersionConflict):
			reloaded, rerr := e.store.GetBySKU(ctx, current.AccountID, row.SKU)
			if errors.Is(rerr, shared.ErrNotFound) {
				// Deleted out from under the import; recreate below.
				return e.createFromRow(ctx, current.AccountID, row)
			}
			if rerr != nil {
				return RowDetail{}, rerr
			}
			current = reloaded
		default:
			return RowDetail{}, err
		}
	}
	e.logger.Warn("import row gave up after version conflicts", "sku", row.SKU, "line", row.Line)
	return RowDetail{Line: row.Line, SKU: row.SKU, Outcome: OutcomeRejected, Reason: "concurrent modification, retry import"}, nil
}

func (e *Engine) validateRow(row Row) string {
	err := e.validate.Struct(row)
	if err == nil {
		return ""
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) || len(fields) == 0 {
		return "invalid row"
	}
	switch f := fields[0]; f.StructField() {
	case "Name":
		return "name must not be empty"
	case "SKU":
		return "sku must not be empty"
	case "StockCurrent":
		return "stock_current must not be negative"
	case "StockMinimum":
		return "stock_minimum must not be negative"
	default:
		return fmt.Sprintf("%s is invalid", f.StructField())
	}
}
