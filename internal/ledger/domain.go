package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stockward/stockward/internal/shared"
)

// Sale is an immutable, append-only ledger entry. It is never updated or
// deleted by normal operation; StockAfter snapshots the level the sale left.
type Sale struct {
	ID         uuid.UUID `json:"id"`
	ProductID  uuid.UUID `json:"product_id"`
	AccountID  uuid.UUID `json:"account_id"`
	Quantity   int       `json:"quantity"`
	StockAfter int       `json:"stock_after"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaleResult reports the outcome of a registered sale.
type SaleResult struct {
	Sale           Sale `json:"sale"`
	StockRemaining int  `json:"stock_remaining"`
	AlertTriggered bool `json:"alert_triggered"`
}

// Stats aggregates the account's sales history.
type Stats struct {
	TotalSales     int    `json:"total_sales"`
	TotalUnitsSold int    `json:"total_units_sold"`
	TopProductName string `json:"top_product_name,omitempty"`
	TopProductSold int    `json:"top_product_sold"`
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	ProductID *uuid.UUID
	Limit     int
	Offset    int
}

// ErrInvalidQuantity indicates a non-positive sale quantity.
var ErrInvalidQuantity = fmt.Errorf("%w: quantity must be positive", shared.ErrValidation)

// ErrInvalidAdjustment indicates the adjustment would drive stock negative.
var ErrInvalidAdjustment = fmt.Errorf("%w: adjustment would drive stock below zero", shared.ErrValidation)

// InsufficientStockError rejects a sale exceeding the available quantity.
type InsufficientStockError struct {
	Available int
	Requested int
}

// Error implements the error interface.
func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %d, requested %d", e.Available, e.Requested)
}

// Unwrap classifies the rejection as a conflict with current state.
func (e *InsufficientStockError) Unwrap() error {
	return shared.ErrConflict
}
