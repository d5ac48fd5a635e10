package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/rbac-control-plane/repositories"
	"github.com/upb/rbac-control-plane/services"
	"github.com/upb/rbac-control-plane/utils"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name           string
		err            error
		expectedStatus int
		expectedError  string
	}{
		{"not found", services.ErrUserNotFound, http.StatusNotFound, "not_found"},
		{"validation", services.Validation("user_id", "user_id is required"), http.StatusBadRequest, "bad_request"},
		{"conflict", services.FromRepository("role already exists", repositories.ErrConflict), http.StatusConflict, "conflict"},
		{"referential", services.FromRepository("unknown user", repositories.ErrReferential), http.StatusUnprocessableEntity, "unprocessable_entity"},
		{"unauthorized", services.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"rate limit", services.ErrRateLimitExceeded, http.StatusTooManyRequests, "rate_limit_exceeded"},
		{"internal", services.WrapInternal("failed", errors.New("connection reset")), http.StatusInternalServerError, "internal_error"},
		{"plain error", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()

			HandleServiceError(w, tt.err, logger)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response utils.ErrorResponse
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.expectedError, response.Error)
		})
	}
}

func TestHandleServiceError_HidesInternalCause(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, services.WrapInternal("failed", errors.New("password=secret")), zap.NewNop())

	assert.NotContains(t, w.Body.String(), "password")
}

func TestHandleServiceError_ValidationDetails(t *testing.T) {
	w := httptest.NewRecorder()

	HandleServiceError(w, services.Validation("action", "action is required"), zap.NewNop())

	var response utils.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "action is required", response.Message)
	assert.Equal(t, "action", response.Details["field"])
}

func TestHandleServiceError_Nil(t *testing.T) {
	w := httptest.NewRecorder()
	HandleServiceError(w, nil, zap.NewNop())
	assert.Equal(t, 0, w.Body.Len())
}

func TestHandleValidationError(t *testing.T) {
	logger := zap.NewNop()

	t.Run("struct validation", func(t *testing.T) {
		err := utils.ValidateStruct(&GrantRequest{})
		require.Error(t, err)

		w := httptest.NewRecorder()
		HandleValidationError(w, err, logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var response utils.ErrorResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		assert.Equal(t, "Validation failed", response.Message)
		assert.Contains(t, response.Details, "resource_id")
		assert.Contains(t, response.Details, "action")
	})

	t.Run("generic error", func(t *testing.T) {
		w := httptest.NewRecorder()
		HandleValidationError(w, errors.New("invalid request body"), logger)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid request body")
	})
}
