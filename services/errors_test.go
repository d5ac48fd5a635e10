package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/rbac-control-plane/repositories"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(ErrorTypeNotFound, "resource not found", baseErr)

	assert.Equal(t, ErrorTypeNotFound, domainErr.Type)
	assert.Equal(t, "resource not found", domainErr.Message)
	assert.Equal(t, baseErr, domainErr.Err)
	assert.NotNil(t, domainErr.Details)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name: "error with wrapped error",
			err: &DomainError{
				Type:    ErrorTypeNotFound,
				Message: "user not found",
				Err:     errors.New("db error"),
			},
			wantMsg: "not_found: user not found (db error)",
		},
		{
			name: "error without wrapped error",
			err: &DomainError{
				Type:    ErrorTypeValidation,
				Message: "action is required",
			},
			wantMsg: "validation: action is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_IsMatchesByType(t *testing.T) {
	err := NewDomainError(ErrorTypeNotFound, "role r1 not found", nil)

	assert.True(t, errors.Is(err, ErrRoleNotFound))
	assert.True(t, errors.Is(err, ErrUserNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyExists))

	wrapped := fmt.Errorf("handler: %w", err)
	assert.True(t, IsNotFoundError(wrapped))
}

func TestDomainError_WithDetail(t *testing.T) {
	err := Validation("action", "action is required")

	assert.True(t, IsValidationError(err))
	assert.Equal(t, "action", GetErrorDetails(err)["field"])
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		err   error
		check func(error) bool
	}{
		{ErrUserNotFound, IsNotFoundError},
		{ErrInvalidInput, IsValidationError},
		{ErrAlreadyExists, IsConflictError},
		{ErrUnknownReference, IsReferentialError},
		{ErrInvalidToken, IsUnauthorizedError},
		{ErrInsufficientPermissions, IsForbiddenError},
		{ErrRateLimitExceeded, IsRateLimitError},
		{ErrInternal, IsInternalError},
	}

	for _, tt := range tests {
		t.Run(string(GetErrorType(tt.err)), func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
		})
	}

	assert.False(t, IsNotFoundError(errors.New("plain")))
	assert.Equal(t, ErrorType(""), GetErrorType(errors.New("plain")))
	assert.Nil(t, GetErrorDetails(errors.New("plain")))
}

func TestFromRepository(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"not found", fmt.Errorf("%w: user u1", repositories.ErrNotFound), ErrorTypeNotFound},
		{"conflict", fmt.Errorf("failed to create role: %w", repositories.ErrConflict), ErrorTypeConflict},
		{"referential", fmt.Errorf("failed to grant: %w", repositories.ErrReferential), ErrorTypeReferential},
		{"other", errors.New("connection reset"), ErrorTypeInternal},
		{"domain passes through", ErrForbidden, ErrorTypeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromRepository("operation failed", tt.err)
			require.Error(t, err)
			assert.Equal(t, tt.want, GetErrorType(err))
			assert.True(t, errors.Is(err, tt.err))
		})
	}

	assert.NoError(t, FromRepository("noop", nil))
}

func TestRequireFields(t *testing.T) {
	assert.NoError(t, RequireFields("org_id", "o1", "user_id", "u1"))
	assert.NoError(t, RequireFields())

	err := RequireFields("org_id", "o1", "action", "  ", "user_id", "")
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "action", GetErrorDetails(err)["field"])
}
