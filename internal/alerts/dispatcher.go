// Package alerts delivers low-stock notifications to configured sinks.
package alerts

import (
	"context"
	"log/slog"
	"time"

	"github.com/stockward/stockward/internal/products"
)

// NotificationSink is a delivery capability for low-stock alerts.
type NotificationSink interface {
	Name() string
	Notify(ctx context.Context, product products.Product) error
}

// MetricsPort counts delivery attempts per sink.
type MetricsPort interface {
	RecordAlert(sink string, ok bool)
}

// Dispatcher fans an alert out to every registered sink. Delivery is
// best-effort: failures are logged and swallowed, one sink failing never
// blocks the others, and the ledger transaction is long committed by the
// time Dispatch runs.
type Dispatcher struct {
	sinks   []NotificationSink
	timeout time.Duration
	logger  *slog.Logger
	metrics MetricsPort
}

// NewDispatcher builds Dispatcher. A non-positive timeout falls back to 5s.
func NewDispatcher(timeout time.Duration, logger *slog.Logger, metrics MetricsPort, sinks ...NotificationSink) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sinks: sinks, timeout: timeout, logger: logger, metrics: metrics}
}

// Dispatch notifies every sink about the product entering a low-stock episode.
// Each sink gets its own bounded deadline.
func (d *Dispatcher) Dispatch(ctx context.Context, product products.Product) {
	for _, sink := range d.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err := sink.Notify(sinkCtx, product)
		cancel()
		if d.metrics != nil {
			d.metrics.RecordAlert(sink.Name(), err == nil)
		}
		if err != nil {
			d.logger.Warn("alert delivery failed",
				slog.String("sink", sink.Name()),
				slog.String("sku", product.SKU),
				slog.Any("error", err))
			continue
		}
		d.logger.Info("low-stock alert delivered",
			slog.String("sink", sink.Name()),
			slog.String("sku", product.SKU),
			slog.Int("stock_current", product.StockCurrent),
			slog.Int("stock_minimum", product.StockMinimum))
	}
}
