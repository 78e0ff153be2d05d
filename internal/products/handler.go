package products

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/stockward/stockward/internal/platform/httpx"
	"github.com/stockward/stockward/internal/shared"
)

// Handler wires HTTP endpoints for the product catalog.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers product routes on the provided router. The router is
// expected to carry an authenticated account in the request context.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/sku/{sku}", h.handleGetBySKU)
	r.Get("/{productID}", h.handleGet)
	r.Put("/{productID}", h.handleUpdate)
	r.Delete("/{productID}", h.handleDelete)
}

type createRequest struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	StockCurrent int    `json:"stock_current"`
	StockMinimum int    `json:"stock_minimum"`
}

type updateRequest struct {
	SKU          *string `json:"sku"`
	Name         *string `json:"name"`
	StockMinimum *int    `json:"stock_minimum"`
}

type listResponse struct {
	Products   []Product         `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}

	product, err := h.service.Create(r.Context(), accountID, CreateInput{
		SKU:          req.SKU,
		Name:         req.Name,
		StockCurrent: req.StockCurrent,
		StockMinimum: req.StockMinimum,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)

	lowStockOnly, _ := strconv.ParseBool(r.URL.Query().Get("low_stock"))

	items, total, err := h.service.List(r.Context(), accountID, ListFilter{
		LowStockOnly: lowStockOnly,
		Limit:        pagination.PerPage,
		Offset:       pagination.Offset(),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{
		Products:   items,
		Pagination: shared.NewPagination(pagination.Page, pagination.PerPage, total),
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	accountID, productID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}
	product, err := h.service.Get(r.Context(), accountID, productID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleGetBySKU(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}
	product, err := h.service.GetBySKU(r.Context(), accountID, chi.URLParam(r, "sku"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	accountID, productID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}

	product, err := h.service.Update(r.Context(), accountID, productID, UpdateInput{
		SKU:          req.SKU,
		Name:         req.Name,
		StockMinimum: req.StockMinimum,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	accountID, productID, ok := h.requestIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), accountID, productID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
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
