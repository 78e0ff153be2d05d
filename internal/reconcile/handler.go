package reconcile

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockward/stockward/internal/platform/httpx"
	"github.com/stockward/stockward/internal/shared"
)

const maxImportBytes = 10 << 20

// Handler wires HTTP endpoints for bulk imports.
type Handler struct {
	logger   *slog.Logger
	engine   *Engine
	defaults Options
}

// NewHandler constructs a Handler. defaults seeds the per-request options
// when the caller does not override them.
func NewHandler(logger *slog.Logger, engine *Engine, defaults Options) *Handler {
	return &Handler{logger: logger, engine: engine, defaults: defaults}
}

// MountRoutes registers import routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleImportJSON)
	r.Post("/csv", h.handleImportCSV)
	r.Post("/grid", h.handleImportGrid)
	r.Get("/template", h.handleTemplate)
}

type importRequest struct {
	Mode               string `json:"mode"`
	AuthoritativeStock *bool  `json:"authoritative_stock"`
	Rows               []Row  `json:"rows"`
}

func (h *Handler) handleImportJSON(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}
	for i := range req.Rows {
		if req.Rows[i].Line == 0 {
			req.Rows[i].Line = i + 1
		}
	}

	report, err := h.engine.Reconcile(r.Context(), accountID, req.Rows, h.options(req.Mode, req.AuthoritativeStock))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

type gridImportRequest struct {
	Mode               string     `json:"mode"`
	AuthoritativeStock *bool      `json:"authoritative_stock"`
	Values             [][]string `json:"values"`
}

// handleImportGrid accepts raw sheet values, header row included, as pulled
// from a spreadsheet API.
func (h *Handler) handleImportGrid(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	var req gridImportRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "request body must be valid JSON")
		return
	}

	rows, err := RowsFromGrid(req.Values)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	report, err := h.engine.Reconcile(r.Context(), accountID, rows, h.options(req.Mode, req.AuthoritativeStock))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleImportCSV(w http.ResponseWriter, r *http.Request) {
	accountID, ok := shared.AccountFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrInvalidCredentials)
		return
	}

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid request", "expected a multipart form with a file field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		httpx.FieldProblem(w, http.StatusBadRequest, "Invalid request", "file", "is required")
		return
	}
	defer file.Close()

	rows, err := RowsFromCSV(file)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	var authoritative *bool
	if raw := r.FormValue("authoritative_stock"); raw != "" {
		v, perr := strconv.ParseBool(raw)
		if perr != nil {
			httpx.FieldProblem(w, http.StatusBadRequest, "Invalid request", "authoritative_stock", "must be a boolean")
			return
		}
		authoritative = &v
	}

	report, err := h.engine.Reconcile(r.Context(), accountID, rows, h.options(r.FormValue("mode"), authoritative))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, report)
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="stockward-import-template.csv"`)
	_, _ = w.Write(TemplateCSV())
}

func (h *Handler) options(mode string, authoritative *bool) Options {
	opts := h.defaults
	if mode != "" {
		opts.Mode = Mode(mode)
	}
	if authoritative != nil {
		opts.AuthoritativeStock = *authoritative
	}
	return opts
}
