package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stockward/stockward/internal/products"
	"github.com/stockward/stockward/jobs"
)

type stubSink struct {
	name     string
	err      error
	notified []products.Product
	sawCtx   context.Context
}

func (s *stubSink) Name() string { return s.name }

func (s *stubSink) Notify(ctx context.Context, product products.Product) error {
	s.sawCtx = ctx
	s.notified = append(s.notified, product)
	return s.err
}

type recordingMetrics struct {
	results map[string]bool
}

func (m *recordingMetrics) RecordAlert(sink string, ok bool) {
	if m.results == nil {
		m.results = make(map[string]bool)
	}
	m.results[sink] = ok
}

func testProduct() products.Product {
	return products.Product{
		ID:           uuid.New(),
		AccountID:    uuid.New(),
		SKU:          "BEV-1",
		Name:         "Cola",
		StockCurrent: 3,
		StockMinimum: 10,
		AlertSent:    true,
	}
}

func TestDispatchFansOutToAllSinks(t *testing.T) {
	first := &stubSink{name: "first"}
	second := &stubSink{name: "second"}
	d := NewDispatcher(time.Second, slog.New(slog.DiscardHandler), nil, first, second)

	d.Dispatch(context.Background(), testProduct())

	require.Len(t, first.notified, 1)
	require.Len(t, second.notified, 1)
}

func TestDispatchFailingSinkDoesNotBlockOthers(t *testing.T) {
	failing := &stubSink{name: "failing", err: errors.New("smtp down")}
	healthy := &stubSink{name: "healthy"}
	metrics := &recordingMetrics{}
	d := NewDispatcher(time.Second, slog.New(slog.DiscardHandler), metrics, failing, healthy)

	d.Dispatch(context.Background(), testProduct())

	require.Len(t, healthy.notified, 1)
	require.False(t, metrics.results["failing"])
	require.True(t, metrics.results["healthy"])
}

func TestDispatchBoundsSinkDeadline(t *testing.T) {
	sink := &stubSink{name: "slow"}
	d := NewDispatcher(50*time.Millisecond, slog.New(slog.DiscardHandler), nil, sink)

	d.Dispatch(context.Background(), testProduct())

	require.NotNil(t, sink.sawCtx)
	deadline, ok := sink.sawCtx.Deadline()
	require.True(t, ok)
	require.LessOrEqual(t, time.Until(deadline), 50*time.Millisecond)
}

type stubDirectory struct {
	email string
	err   error
}

func (d stubDirectory) EmailFor(ctx context.Context, accountID uuid.UUID) (string, error) {
	return d.email, d.err
}

type stubEnqueuer struct {
	payloads []jobs.AlertEmailPayload
	err      error
}

func (e *stubEnqueuer) EnqueueAlertEmail(ctx context.Context, payload jobs.AlertEmailPayload) error {
	e.payloads = append(e.payloads, payload)
	return e.err
}

func TestEmailSinkQueuesAlert(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	sink := NewEmailSink(stubDirectory{email: "owner@example.com"}, enqueuer)

	product := testProduct()
	require.NoError(t, sink.Notify(context.Background(), product))
	require.Len(t, enqueuer.payloads, 1)
	require.Equal(t, "owner@example.com", enqueuer.payloads[0].To)
	require.Equal(t, product.SKU, enqueuer.payloads[0].SKU)
	require.Equal(t, 3, enqueuer.payloads[0].StockCurrent)
}

func TestEmailSinkPropagatesDirectoryFailure(t *testing.T) {
	enqueuer := &stubEnqueuer{}
	sink := NewEmailSink(stubDirectory{err: errors.New("no such account")}, enqueuer)

	err := sink.Notify(context.Background(), testProduct())
	require.Error(t, err)
	require.Empty(t, enqueuer.payloads)
}

func TestMarketplaceSinkPostsPauseRequest(t *testing.T) {
	var got pauseRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	product := testProduct()
	sink := NewMarketplaceSink(server.URL, server.Client())
	require.NoError(t, sink.Notify(context.Background(), product))
	require.Equal(t, product.SKU, got.SKU)
	require.Equal(t, "low_stock", got.Reason)
}

func TestMarketplaceSinkRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	sink := NewMarketplaceSink(server.URL, server.Client())
	err := sink.Notify(context.Background(), testProduct())
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}
