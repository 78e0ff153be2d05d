package products

import (
	"time"

	"github.com/google/uuid"
)

// Product represents a stock-tracked product owned by one account.
type Product struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	SKU          string     `json:"sku"`
	Name         string     `json:"name"`
	StockCurrent int        `json:"stock_current"`
	StockMinimum int        `json:"stock_minimum"`
	AlertSent    bool       `json:"alert_sent"`
	Version      int64      `json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

// LowStock reports whether the product sits at or below its minimum threshold.
func (p Product) LowStock() bool {
	return p.StockCurrent <= p.StockMinimum
}

// NeedsAlert reports whether a low-stock alert is due and not yet fired
// for the current depletion episode.
func (p Product) NeedsAlert() bool {
	return p.LowStock() && !p.AlertSent
}

// ListFilter narrows product listings.
type ListFilter struct {
	LowStockOnly bool
	Limit        int
	Offset       int
}
