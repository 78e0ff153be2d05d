package e2e

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/stockward/stockward/internal/alerts"
	"github.com/stockward/stockward/internal/ledger"
	"github.com/stockward/stockward/internal/products"
	"github.com/stockward/stockward/internal/shared"
	"github.com/stockward/stockward/jobs"
	_ "github.com/stockward/stockward/testing"
)

// memoryLedger is a minimal in-process stand-in for the postgres repository,
// enough to drive the sale → alert → queue pipeline end to end.
type memoryLedger struct {
	product products.Product
	sales   []ledger.Sale
}

func (m *memoryLedger) GetProduct(ctx context.Context, productID uuid.UUID) (products.Product, error) {
	if m.product.ID != productID {
		return products.Product{}, shared.ErrNotFound
	}
	return m.product, nil
}

func (m *memoryLedger) WithTx(ctx context.Context, fn func(context.Context, ledger.TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryLedger) UpdateStockCAS(ctx context.Context, productID uuid.UUID, expectedVersion int64, stock int, alertSent bool) error {
	if m.product.ID != productID || m.product.Version != expectedVersion {
		return products.ErrVersionConflict
	}
	m.product.StockCurrent = stock
	m.product.AlertSent = alertSent
	m.product.Version++
	return nil
}

func (m *memoryLedger) InsertSale(ctx context.Context, sale ledger.Sale) error {
	m.sales = append(m.sales, sale)
	return nil
}

func (m *memoryLedger) ListSales(ctx context.Context, accountID uuid.UUID, filter ledger.SaleFilter) ([]ledger.Sale, int, error) {
	return m.sales, len(m.sales), nil
}

func (m *memoryLedger) GetSale(ctx context.Context, accountID, saleID uuid.UUID) (ledger.Sale, error) {
	for _, s := range m.sales {
		if s.ID == saleID {
			return s, nil
		}
	}
	return ledger.Sale{}, shared.ErrNotFound
}

func (m *memoryLedger) SalesStats(ctx context.Context, accountID uuid.UUID) (ledger.Stats, error) {
	return ledger.Stats{TotalSales: len(m.sales)}, nil
}

type staticDirectory string

func (d staticDirectory) EmailFor(ctx context.Context, accountID uuid.UUID) (string, error) {
	return string(d), nil
}

func TestSaleToAlertEmailPipeline(t *testing.T) {
	mr := miniredis.RunT(t)
	redisOpts := asynq.RedisClientOpt{Addr: mr.Addr()}

	client, err := jobs.NewClient(redisOpts)
	require.NoError(t, err)
	defer client.Close()

	accountID := uuid.New()
	repo := &memoryLedger{product: products.Product{
		ID:           uuid.New(),
		AccountID:    accountID,
		SKU:          "BEV-COLA-15",
		Name:         "Cola 1.5L",
		StockCurrent: 12,
		StockMinimum: 10,
		Version:      1,
	}}

	logger := slog.New(slog.DiscardHandler)
	dispatcher := alerts.NewDispatcher(time.Second, logger, nil,
		alerts.NewEmailSink(staticDirectory("owner@example.com"), client))
	svc := ledger.NewService(repo, dispatcher, nil, nil, nil, logger)

	inspector := asynq.NewInspector(redisOpts)
	defer inspector.Close()

	// First sale stays above the minimum; nothing is queued.
	_, err = svc.RegisterSale(context.Background(), accountID, repo.product.ID, 1)
	require.NoError(t, err)
	pending, err := inspector.ListPendingTasks(jobs.QueueDefault)
	require.NoError(t, err)
	require.Empty(t, pending)

	// Crossing the threshold queues exactly one alert email.
	result, err := svc.RegisterSale(context.Background(), accountID, repo.product.ID, 2)
	require.NoError(t, err)
	require.True(t, result.AlertTriggered)
	pending, err = inspector.ListPendingTasks(jobs.QueueDefault)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, jobs.TaskTypeAlertEmail, pending[0].Type)

	// Further depletion inside the episode queues nothing new.
	_, err = svc.RegisterSale(context.Background(), accountID, repo.product.ID, 3)
	require.NoError(t, err)
	pending, err = inspector.ListPendingTasks(jobs.QueueDefault)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	// Restock, then deplete again: a new episode, a second email.
	_, err = svc.AdjustStock(context.Background(), accountID, repo.product.ID, 10)
	require.NoError(t, err)
	_, err = svc.RegisterSale(context.Background(), accountID, repo.product.ID, 8)
	require.NoError(t, err)
	pending, err = inspector.ListPendingTasks(jobs.QueueDefault)
	require.NoError(t, err)
	require.Len(t, pending, 2)
}
