package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mes-staging/internal/storage"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("op: %w", storage.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("op: %w", storage.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("op: %w", storage.ErrNoTargetWarehouse), http.StatusUnprocessableEntity},
		{fmt.Errorf("op: %w: %w", storage.ErrLedger, errors.New("deadlock")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			got, _ := Status(tt.err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestError_HidesInternalMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	Error(rr, req, slog.Default(), "test", errors.New("dial tcp: refused"))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body.Error)
	assert.Equal(t, "INTERNAL", body.Code)
}

func TestError_KeepsClientMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	Error(rr, req, slog.Default(), "test", fmt.Errorf("order WO-9: %w", storage.ErrNotFound))

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "order WO-9")
}

func TestError_HidesLedgerMessage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rr := httptest.NewRecorder()

	driverErr := errors.New("Error 1213 (40001): Deadlock found when trying to get lock on mes_movements")
	Error(rr, req, slog.Default(), "test", fmt.Errorf("mysql.CommitMovements: %w: %w", storage.ErrLedger, driverErr))

	assert.Equal(t, http.StatusBadGateway, rr.Code)

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "stock ledger unavailable", body.Error)
	assert.Equal(t, "LEDGER_ERROR", body.Code)
	assert.NotContains(t, rr.Body.String(), "Deadlock")
	assert.NotContains(t, rr.Body.String(), "mes_movements")
}
