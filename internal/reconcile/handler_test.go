package reconcile

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/stockward/stockward/internal/shared"

	_ "github.com/stockward/stockward/testing"
)

func testRouter(store ProductStore) chi.Router {
	h := NewHandler(slog.New(slog.DiscardHandler), testEngine(store), Options{Mode: ModeCreateOnly})
	r := chi.NewRouter()
	r.Route("/imports", h.MountRoutes)
	return r
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	ctx := shared.ContextWithAccount(req.Context(), uuid.New())
	return req.WithContext(ctx)
}

func TestHandleImportGrid(t *testing.T) {
	store := newMemoryStore()
	router := testRouter(store)

	body := `{"values":[
		["name","sku","stock_current","stock_minimum"],
		["Cola","BEV-1","50","10"],
		["Water","BEV-2","30","8"]
	]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/imports/grid", body))

	require.Equal(t, http.StatusOK, rec.Code)
	var report Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, 2, report.Total)
	require.Equal(t, 2, report.Created)
}

func TestHandleImportGridMissingColumn(t *testing.T) {
	router := testRouter(newMemoryStore())

	body := `{"values":[["name","sku","stock_current"],["Cola","BEV-1","50"]]}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/imports/grid", body))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "stock_minimum")
}

func TestHandleImportGridRequiresAccount(t *testing.T) {
	router := testRouter(newMemoryStore())

	req := httptest.NewRequest(http.MethodPost, "/imports/grid", strings.NewReader(`{"values":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}
