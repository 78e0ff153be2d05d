package products

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/stockward/stockward/internal/shared"
)

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates product store operations.
type Service struct {
	repo   Repository
	audit  AuditPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// Create registers a new product for the account. SKU must be unique within it.
func (s *Service) Create(ctx context.Context, accountID uuid.UUID, input CreateInput) (Product, error) {
	if err := validateCreate(input); err != nil {
		return Product{}, err
	}
	product := Product{
		ID:           uuid.New(),
		AccountID:    accountID,
		SKU:          input.SKU,
		Name:         input.Name,
		StockCurrent: input.StockCurrent,
		StockMinimum: input.StockMinimum,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, accountID, "product:create", created.ID, map[string]any{"sku": created.SKU})
	return created, nil
}

// Get fetches one product, enforcing account ownership.
func (s *Service) Get(ctx context.Context, accountID, productID uuid.UUID) (Product, error) {
	product, err := s.repo.Get(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if product.AccountID != accountID {
		return Product{}, shared.ErrForbidden
	}
	return product, nil
}

// GetBySKU resolves a product by its natural key within the account.
func (s *Service) GetBySKU(ctx context.Context, accountID uuid.UUID, sku string) (Product, error) {
	if sku == "" {
		return Product{}, &shared.FieldError{Field: "sku", Reason: "must not be empty"}
	}
	return s.repo.GetBySKU(ctx, accountID, sku)
}

// List returns the account's active products plus the total count.
func (s *Service) List(ctx context.Context, accountID uuid.UUID, filter ListFilter) ([]Product, int, error) {
	return s.repo.List(ctx, accountID, filter)
}

// Update applies a partial update. Stock level changes are rejected here and
// must go through the ledger so the alert transition stays authoritative.
func (s *Service) Update(ctx context.Context, accountID, productID uuid.UUID, input UpdateInput) (Product, error) {
	product, err := s.Get(ctx, accountID, productID)
	if err != nil {
		return Product{}, err
	}
	if input.SKU != nil {
		if *input.SKU == "" {
			return Product{}, &shared.FieldError{Field: "sku", Reason: "must not be empty"}
		}
		product.SKU = *input.SKU
	}
	if input.Name != nil {
		if *input.Name == "" {
			return Product{}, &shared.FieldError{Field: "name", Reason: "must not be empty"}
		}
		product.Name = *input.Name
	}
	if input.StockMinimum != nil {
		if *input.StockMinimum < 0 {
			return Product{}, &shared.FieldError{Field: "stock_minimum", Reason: "must be >= 0"}
		}
		product.StockMinimum = *input.StockMinimum
	}
	// Raising the minimum never fires an alert by itself; lowering it below
	// the current stock closes the episode.
	if product.StockCurrent > product.StockMinimum {
		product.AlertSent = false
	}
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, accountID, "product:update", updated.ID, map[string]any{"sku": updated.SKU})
	return updated, nil
}

// Delete tombstones the product so historical sales stay resolvable.
func (s *Service) Delete(ctx context.Context, accountID, productID uuid.UUID) error {
	product, err := s.Get(ctx, accountID, productID)
	if err != nil {
		return err
	}
	if err := s.repo.SoftDelete(ctx, product.ID); err != nil {
		return err
	}
	s.recordAudit(ctx, accountID, "product:delete", product.ID, map[string]any{"sku": product.SKU})
	return nil
}

func (s *Service) recordAudit(ctx context.Context, accountID uuid.UUID, action string, entityID uuid.UUID, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		AccountID: accountID,
		Action:    action,
		Entity:    "product",
		EntityID:  entityID.String(),
		Meta:      meta,
	}); err != nil {
		s.logger.Warn("audit record failed", slog.Any("error", err))
	}
}

func validateCreate(input CreateInput) error {
	if input.SKU == "" {
		return &shared.FieldError{Field: "sku", Reason: "must not be empty"}
	}
	if input.Name == "" {
		return &shared.FieldError{Field: "name", Reason: "must not be empty"}
	}
	if input.StockCurrent < 0 {
		return &shared.FieldError{Field: "stock_current", Reason: "must be >= 0"}
	}
	if input.StockMinimum < 0 {
		return &shared.FieldError{Field: "stock_minimum", Reason: "must be >= 0"}
	}
	return nil
}
