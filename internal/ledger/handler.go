package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockward/stockward/internal/platform/httpx"
	"github.com/stockward/stockward/internal/shared"
)

// Handler wires HTTP endpoints for sales and stock movements.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountSaleRoutes registers the sale history endpoints.
func (h *Handler) MountSaleRoutes(r chi.Router) {
	r.Post("/", h.handleRegisterSale)
	r.Get("/", h.handleListSales)
	r.Get("/stats", h.handleStats)
	r.Get("/{saleID}", h.handleGetSale)
}

// MountStockRoutes registers the stock level endpoints. They are mounted
// under the product routes because they address a product, but all stock
// movement flows through this module.
func (h *Handler) MountStockRoutes(r chi.Router) {
	r.Put("/{productID}/stock", h.handleSetStock)
	r.Post("/{productID}/stock/adjustments", h.handleAdjustStock)
}

type saleRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

type setStockRequest struct {
	StockCurrent int `json:"stock_current"`
}

type adjustStockRequest struct {
	Delta int `json:"delta"`
}

type salesResponse struct {
	Sales      []Sale            `json:"sales"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleRegisterSale(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	var req saleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	if req.ProductID == uuid.Nil {
		httpx.FieldProblem(w, http.StatusBadRequest, "Validation failed", "product_id", "must be a valid UUID")
		return
	}

	result, err := h.service.RegisterSale(r.Context(), accountID, req.ProductID, req.Quantity)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

func (h *Handler) handleListSales(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)

	filter := SaleFilter{Limit: pagination.PerPage, Offset: pagination.Offset()}
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		productID, err := uuid.Parse(raw)
		if err != nil {
			httpx.FieldProblem(w, http.StatusBadRequest, "Validation failed", "product_id", "must be a valid UUID")
			return
		}
		filter.ProductID = &productID
	}

	sales, total, err := h.service.ListSales(r.Context(), accountID, filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, salesResponse{
		Sales:      sales,
		Pagination: shared.NewPagination(pagination.Page, pagination.PerPage, total),
	})
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	saleID, err := uuid.Parse(chi.URLParam(r, "saleID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "sale id must be a valid UUID")
		return
	}

	sale, err := h.service.GetSale(r.Context(), accountID, saleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	stats, err := h.service.SalesStats(r.Context(), accountID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleSetStock(w http.ResponseWriter, r *http.Request) {
	accountID, productID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	var req setStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}

	product, err := h.service.SetStock(r.Context(), accountID, productID, req.StockCurrent)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	accountID, productID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	var req adjustStockRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}

	product, err := h.service.AdjustStock(r.Context(), accountID, productID, req.Delta)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) requestIDs(w http.ResponseWriter, r *http.Request) (accountID, productID uuid.UUID, ok bool) {
	accountID, found := shared.AccountFromContext(r.Context())
	if !found {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return uuid.Nil, uuid.Nil, false
	}
	productID, err := uuid.Parse(chi.URLParam(r, "productID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "product id must be a valid UUID")
		return uuid.Nil, uuid.Nil, false
	}
	return accountID, productID, true
}
