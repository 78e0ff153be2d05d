package jobs

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	_ "github.com/stockward/stockward/testing"
)

func TestNewAlertEmailTask(t *testing.T) {
	task, err := NewAlertEmailTask(AlertEmailPayload{
		To:           "owner@example.com",
		ProductName:  "Cola",
		SKU:          "BEV-1",
		StockCurrent: 3,
		StockMinimum: 10,
	})
	require.NoError(t, err)
	require.Equal(t, TaskTypeAlertEmail, task.Type())

	var payload AlertEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "owner@example.com", payload.To)
	require.Equal(t, "BEV-1", payload.SKU)
}

func TestHandleAlertEmailTask(t *testing.T) {
	task, err := NewAlertEmailTask(AlertEmailPayload{To: "owner@example.com", SKU: "BEV-1"})
	require.NoError(t, err)
	require.NoError(t, HandleAlertEmailTask(context.Background(), task))
}

func TestHandleAlertEmailTaskSkipsBadPayload(t *testing.T) {
	task := asynq.NewTask(TaskTypeAlertEmail, []byte("{not json"))
	err := HandleAlertEmailTask(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestNewLowStockScanTask(t *testing.T) {
	at := time.Date(2026, 3, 1, 6, 0, 0, 0, time.UTC)
	task, err := NewLowStockScanTask(at)
	require.NoError(t, err)
	require.Equal(t, TaskLowStockScan, task.Type())

	var payload LowStockScanPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, at, payload.ScheduledFor)
}

func TestClientEnqueueAlertEmail(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(asynq.RedisClientOpt{Addr: mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.EnqueueAlertEmail(context.Background(), AlertEmailPayload{
		To:  "owner@example.com",
		SKU: "BEV-1",
	}))

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	defer inspector.Close()

	pending, err := inspector.ListPendingTasks(QueueDefault)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, TaskTypeAlertEmail, pending[0].Type)
}
