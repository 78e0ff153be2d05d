package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAlertEmail is the task type for low-stock alert emails.
	TaskTypeAlertEmail = "alerts:email"
)

// AlertEmailPayload describes the information required to send a low-stock
// alert email to the product owner.
type AlertEmailPayload struct {
	To           string `json:"to"`
	ProductName  string `json:"product_name"`
	SKU          string `json:"sku"`
	StockCurrent int    `json:"stock_current"`
	StockMinimum int    `json:"stock_minimum"`
}

// NewAlertEmailTask constructs an Asynq task.
func NewAlertEmailTask(payload AlertEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAlertEmail, data), nil
}

// HandleAlertEmailTask processes TaskTypeAlertEmail tasks.
func HandleAlertEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload AlertEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder transport: the mail gateway integration plugs in here.
	fmt.Printf("[jobs] low-stock alert to %s sku=%s stock=%d min=%d\n",
		payload.To, payload.SKU, payload.StockCurrent, payload.StockMinimum)
	return nil
}
