package products

import (
	"fmt"

	"github.com/stockward/stockward/internal/shared"
)

// ErrDuplicateSKU indicates the account already owns a product with this SKU.
var ErrDuplicateSKU = fmt.Errorf("%w: sku already exists for account", shared.ErrConflict)

// ErrVersionConflict indicates a concurrent writer changed the product since it was read.
var ErrVersionConflict = fmt.Errorf("%w: product changed concurrently", shared.ErrConflict)

// CreateInput describes a product creation request.
type CreateInput struct {
	SKU          string
	Name         string
	StockCurrent int
	StockMinimum int
}

// UpdateInput describes a partial product update. Nil fields are left unchanged.
// Stock level changes go through the ledger, never through this path.
type UpdateInput struct {
	SKU          *string
	Name         *string
	StockMinimum *int
}
