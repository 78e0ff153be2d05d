package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stockward/stockward/internal/shared"
)

func TestRespondErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", shared.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("product: %w", shared.ErrNotFound), http.StatusNotFound},
		{"forbidden", shared.ErrForbidden, http.StatusForbidden},
		{"conflict", fmt.Errorf("sku taken: %w", shared.ErrConflict), http.StatusConflict},
		{"validation", fmt.Errorf("bad input: %w", shared.ErrValidation), http.StatusBadRequest},
		{"credentials", shared.ErrInvalidCredentials, http.StatusUnauthorized},
		{"infrastructure", shared.Infra("query", errors.New("conn refused")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			RespondError(rec, tc.err)
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var problem ProblemDetail
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			require.Equal(t, tc.status, problem.Status)
		})
	}
}

func TestRespondErrorFieldDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, &shared.FieldError{Field: "sku", Reason: "must not be empty"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.Equal(t, "sku", problem.Field)
	require.Equal(t, "must not be empty", problem.Detail)
}

func TestRespondErrorHidesInfrastructureDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, shared.Infra("query", errors.New("password=hunter2 connection refused")))

	var problem ProblemDetail
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	require.NotContains(t, problem.Detail, "hunter2")
}
