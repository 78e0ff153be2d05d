package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/stockward/stockward/internal/products"
	"github.com/stockward/stockward/jobs"
)

// AccountDirectory resolves the notification address of a product's owner.
type AccountDirectory interface {
	EmailFor(ctx context.Context, accountID uuid.UUID) (string, error)
}

// EmailEnqueuer hands alert mail off to the background queue.
type EmailEnqueuer interface {
	EnqueueAlertEmail(ctx context.Context, payload jobs.AlertEmailPayload) error
}

// EmailSink queues a low-stock email to the account owner. Actual transport
// happens in the worker so delivery latency never sits on the sale path.
type EmailSink struct {
	directory AccountDirectory
	enqueuer  EmailEnqueuer
}

// NewEmailSink builds EmailSink.
func NewEmailSink(directory AccountDirectory, enqueuer EmailEnqueuer) *EmailSink {
	return &EmailSink{directory: directory, enqueuer: enqueuer}
}

// Name implements NotificationSink.
func (s *EmailSink) Name() string { return "email" }

// Notify implements NotificationSink.
func (s *EmailSink) Notify(ctx context.Context, product products.Product) error {
	email, err := s.directory.EmailFor(ctx, product.AccountID)
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	return s.enqueuer.EnqueueAlertEmail(ctx, jobs.AlertEmailPayload{
		To:           email,
		ProductName:  product.Name,
		SKU:          product.SKU,
		StockCurrent: product.StockCurrent,
		StockMinimum: product.StockMinimum,
	})
}

// LogSink records the alert in the application log. Useful as an always-on
// fallback when no other sink is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink builds LogSink.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name implements NotificationSink.
func (s *LogSink) Name() string { return "log" }

// Notify implements NotificationSink.
func (s *LogSink) Notify(_ context.Context, product products.Product) error {
	s.logger.Warn("product entered low-stock episode",
		slog.String("sku", product.SKU),
		slog.String("name", product.Name),
		slog.Int("stock_current", product.StockCurrent),
		slog.Int("stock_minimum", product.StockMinimum))
	return nil
}

// MarketplaceSink asks a downstream marketplace integration to pause the
// listing for a depleted product.
type MarketplaceSink struct {
	endpoint string
	client   *http.Client
}

// NewMarketplaceSink builds MarketplaceSink.
func NewMarketplaceSink(endpoint string, client *http.Client) *MarketplaceSink {
	if client == nil {
		client = http.DefaultClient
	}
	return &MarketplaceSink{endpoint: endpoint, client: client}
}

// Name implements NotificationSink.
func (s *MarketplaceSink) Name() string { return "marketplace" }

type pauseRequest struct {
	AccountID string `json:"account_id"`
	ProductID string `json:"product_id"`
	SKU       string `json:"sku"`
	Reason    string `json:"reason"`
}

// Notify implements NotificationSink.
func (s *MarketplaceSink) Notify(ctx context.Context, product products.Product) error {
	body, err := json.Marshal(pauseRequest{
		AccountID: product.AccountID.String(),
		ProductID: product.ID.String(),
		SKU:       product.SKU,
		Reason:    "low_stock",
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("marketplace pause returned status %d", resp.StatusCode)
	}
	return nil
}
