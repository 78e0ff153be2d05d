package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stockward/stockward/internal/products"
	"github.com/stockward/stockward/internal/shared"
)

// casMaxRetries bounds the optimistic read-modify-write loop. A conflict means
// another writer committed between our read and our conditional update; the
// whole sequence is retried against fresh state, never silently dropped.
const casMaxRetries = 5

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (products.Product, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListSales(ctx context.Context, accountID uuid.UUID, filter SaleFilter) ([]Sale, int, error)
	GetSale(ctx context.Context, accountID, saleID uuid.UUID) (Sale, error)
	SalesStats(ctx context.Context, accountID uuid.UUID) (Stats, error)
}

// DispatcherPort delivers low-stock alerts. Implementations are best-effort;
// the ledger never fails a committed mutation over a notification problem.
type DispatcherPort interface {
	Dispatch(ctx context.Context, product products.Product)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// MetricsPort counts committed sales.
type MetricsPort interface {
	RecordSale()
}

// Service owns the stock ledger: sale registration, manual adjustments and
// the per-product alert state machine.
type Service struct {
	repo       RepositoryPort
	dispatcher DispatcherPort
	audit      AuditPort
	metrics    MetricsPort
	stats      *StatsCache
	logger     *slog.Logger
}

// NewService builds Service. dispatcher, audit, metrics and stats may be nil.
func NewService(repo RepositoryPort, dispatcher DispatcherPort, audit AuditPort, metrics MetricsPort, stats *StatsCache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, dispatcher: dispatcher, audit: audit, metrics: metrics, stats: stats, logger: logger}
}

// nextAlertState computes the two-state alert machine transition for a new
// stock level. It returns the next flag value and whether the ARMED→TRIGGERED
// edge fired. TRIGGERED→ARMED (stock raised above minimum) is silent, and
// staying below the minimum while already triggered never re-fires.
func nextAlertState(stock, minimum int, alertSent bool) (next bool, triggered bool) {
	switch {
	case stock <= minimum && !alertSent:
		return true, true
	case stock > minimum:
		return false, false
	default:
		return alertSent, false
	}
}

// RegisterSale atomically decrements stock, appends an immutable Sale record
// and evaluates the alert transition. The three writes commit as one unit.
func (s *Service) RegisterSale(ctx context.Context, accountID, productID uuid.UUID, quantity int) (SaleResult, error) {
	if quantity <= 0 {
		return SaleResult{}, ErrInvalidQuantity
	}

	for attempt := 0; attempt < casMaxRetries; attempt++ {
		product, err := s.loadOwned(ctx, accountID, productID)
		if err != nil {
			return SaleResult{}, err
		}
		if quantity > product.StockCurrent {
			return SaleResult{}, &InsufficientStockError{Available: product.StockCurrent, Requested: quantity}
		}

		newStock := product.StockCurrent - quantity
		newAlert, triggered := nextAlertState(newStock, product.StockMinimum, product.AlertSent)
		sale := Sale{
			ID:         uuid.New(),
			ProductID:  product.ID,
			AccountID:  accountID,
			Quantity:   quantity,
			StockAfter: newStock,
			CreatedAt:  time.Now().UTC(),
		}

		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			if err := tx.UpdateStockCAS(ctx, product.ID, product.Version, newStock, newAlert); err != nil {
				return err
			}
			return tx.InsertSale(ctx, sale)
		})
		if errors.Is(err, products.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return SaleResult{}, err
		}

		if s.metrics != nil {
			s.metrics.RecordSale()
		}
		s.stats.Invalidate(ctx, accountID)
		s.recordAudit(ctx, accountID, "ledger:sale", sale.ID, map[string]any{
			"product_id":  product.ID.String(),
			"sku":         product.SKU,
			"quantity":    quantity,
			"stock_after": newStock,
		})
		if triggered {
			s.dispatchAlert(ctx, product, newStock, newAlert)
		}
		return SaleResult{Sale: sale, StockRemaining: newStock, AlertTriggered: triggered}, nil
	}
	return SaleResult{}, fmt.Errorf("ledger: register sale: %w", products.ErrVersionConflict)
}

// AdjustStock applies a signed delta to the stock level. A delta of zero is a
// no-op. The non-negative invariant is enforced before any write.
func (s *Service) AdjustStock(ctx context.Context, accountID, productID uuid.UUID, delta int) (products.Product, error) {
	if delta == 0 {
		return s.loadOwned(ctx, accountID, productID)
	}
	return s.mutateStock(ctx, accountID, productID, "ledger:adjust", func(current int) (int, error) {
		next := current + delta
		if next < 0 {
			return 0, ErrInvalidAdjustment
		}
		return next, nil
	})
}

// SetStock overwrites the absolute stock level, re-evaluating the alert
// transition the same way adjustments do.
func (s *Service) SetStock(ctx context.Context, accountID, productID uuid.UUID, level int) (products.Product, error) {
	if level < 0 {
		return products.Product{}, ErrInvalidAdjustment
	}
	return s.mutateStock(ctx, accountID, productID, "ledger:set_stock", func(int) (int, error) {
		return level, nil
	})
}

func (s *Service) mutateStock(ctx context.Context, accountID, productID uuid.UUID, action string, compute func(current int) (int, error)) (products.Product, error) {
	for attempt := 0; attempt < casMaxRetries; attempt++ {
		product, err := s.loadOwned(ctx, accountID, productID)
		if err != nil {
			return products.Product{}, err
		}

		newStock, err := compute(product.StockCurrent)
		if err != nil {
			return products.Product{}, err
		}
		newAlert, triggered := nextAlertState(newStock, product.StockMinimum, product.AlertSent)
		if newStock == product.StockCurrent && newAlert == product.AlertSent {
			return product, nil
		}

		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.UpdateStockCAS(ctx, product.ID, product.Version, newStock, newAlert)
		})
		if errors.Is(err, products.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return products.Product{}, err
		}

		s.recordAudit(ctx, accountID, action, product.ID, map[string]any{
			"sku":         product.SKU,
			"stock_from":  product.StockCurrent,
			"stock_to":    newStock,
			"alert_fired": triggered,
		})
		if triggered {
			s.dispatchAlert(ctx, product, newStock, newAlert)
		}
		product.StockCurrent = newStock
		product.AlertSent = newAlert
		product.Version++
		return product, nil
	}
	return products.Product{}, fmt.Errorf("ledger: %s: %w", action, products.ErrVersionConflict)
}

// ListSales returns the account's sales, newest first.
func (s *Service) ListSales(ctx context.Context, accountID uuid.UUID, filter SaleFilter) ([]Sale, int, error) {
	return s.repo.ListSales(ctx, accountID, filter)
}

// GetSale fetches one sale scoped to the account.
func (s *Service) GetSale(ctx context.Context, accountID, saleID uuid.UUID) (Sale, error) {
	return s.repo.GetSale(ctx, accountID, saleID)
}

// SalesStats aggregates the account's sales history, served from the stats
// cache when one is configured.
func (s *Service) SalesStats(ctx context.Context, accountID uuid.UUID) (Stats, error) {
	return s.stats.Fetch(ctx, accountID, func(ctx context.Context) (Stats, error) {
		return s.repo.SalesStats(ctx, accountID)
	})
}

func (s *Service) loadOwned(ctx context.Context, accountID, productID uuid.UUID) (products.Product, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return products.Product{}, err
	}
	if product.AccountID != accountID {
		return products.Product{}, shared.ErrForbidden
	}
	return product, nil
}

// dispatchAlert notifies sinks after the transaction committed and the store
// lock is released. The committed mutation stands regardless of delivery, and
// caller cancellation no longer applies to the side effect.
func (s *Service) dispatchAlert(ctx context.Context, product products.Product, stock int, alertSent bool) {
	if s.dispatcher == nil {
		return
	}
	snapshot := product
	snapshot.StockCurrent = stock
	snapshot.AlertSent = alertSent
	s.dispatcher.Dispatch(context.WithoutCancel(ctx), snapshot)
}

func (s *Service) recordAudit(ctx context.Context, accountID uuid.UUID, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		AccountID: accountID,
		Action:    action,
		Entity:    "ledger",
		EntityID:  entityID.String(),
		Meta:      meta,
	}); err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}
